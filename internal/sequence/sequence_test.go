package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	day := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "PO-20250105-0001", Format("PO", day, 1))
	assert.Equal(t, "PO-20250105-0420", Format("PO", day, 420))
	assert.Equal(t, "PO-20250105-12345", Format("PO", day, 12345))
}

func TestGenerator_DailyCounter(t *testing.T) {
	ctx := context.Background()
	g := New("")
	c := NewMemoryCounter()

	morning := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 1, 5, 23, 0, 0, 0, time.UTC)
	nextDay := time.Date(2025, 1, 6, 0, 30, 0, 0, time.UTC)

	first, err := g.Next(ctx, c, morning)
	require.NoError(t, err)
	second, err := g.Next(ctx, c, evening)
	require.NoError(t, err)
	third, err := g.Next(ctx, c, nextDay)
	require.NoError(t, err)

	assert.Equal(t, "PO-20250105-0001", first)
	assert.Equal(t, "PO-20250105-0002", second)
	assert.Equal(t, "PO-20250106-0001", third)
	assert.Equal(t, DefaultPrefix, g.Prefix())
}

type failingCounter struct{}

func (failingCounter) Increment(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestGenerator_CounterError(t *testing.T) {
	_, err := New("PO").Next(context.Background(), failingCounter{}, time.Now())
	assert.ErrorContains(t, err, "connection reset")
}
