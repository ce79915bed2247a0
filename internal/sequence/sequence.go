// Package sequence generates date-prefixed purchase order numbers.
package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// DefaultPrefix is used when no prefix is configured
const DefaultPrefix = "PO"

// Counter hands out the next value of a per-day counter
type Counter interface {
	Increment(ctx context.Context, prefix string, day time.Time) (int64, error)
}

// Generator formats order numbers as PREFIX-YYYYMMDD-NNNN
type Generator struct {
	prefix string
}

// New creates a generator for the given prefix
func New(prefix string) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix}
}

// Prefix returns the configured prefix
func (g *Generator) Prefix() string {
	return g.prefix
}

// Next draws the next order number for the day of at from c. c must belong to
// the transaction that inserts the receipt.
func (g *Generator) Next(ctx context.Context, c Counter, at time.Time) (string, error) {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	n, err := c.Increment(ctx, g.prefix, day)
	if err != nil {
		return "", fmt.Errorf("failed to increment order sequence: %w", err)
	}
	return Format(g.prefix, day, n), nil
}

// Format renders an order number; counters past 9999 widen the last field
func Format(prefix string, day time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), n)
}

// SQLCounter keeps counters in the order_sequences table
type SQLCounter struct {
	q sqlx.QueryerContext
}

// NewSQLCounter binds a counter to a transaction or database handle
func NewSQLCounter(q sqlx.QueryerContext) *SQLCounter {
	return &SQLCounter{q: q}
}

// Increment upserts the day's row and returns the new value
func (c *SQLCounter) Increment(ctx context.Context, prefix string, day time.Time) (int64, error) {
	query := `
		INSERT INTO order_sequences (prefix, day, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, day) DO UPDATE SET last_value = order_sequences.last_value + 1
		RETURNING last_value`

	var n int64
	if err := sqlx.GetContext(ctx, c.q, &n, query, prefix, day); err != nil {
		return 0, fmt.Errorf("failed to upsert order sequence: %w", err)
	}
	return n, nil
}

// MemoryCounter keeps counters in process
type MemoryCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounter creates an empty in-process counter
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{values: make(map[string]int64)}
}

// Increment bumps and returns the day's counter
func (c *MemoryCounter) Increment(_ context.Context, prefix string, day time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := prefix + "/" + day.Format("20060102")
	c.values[key]++
	return c.values[key], nil
}
