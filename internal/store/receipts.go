package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/models"
	"material-service/internal/sequence"
)

// CreateReceipt inserts a receipt, drawing its order number from gen in the
// same transaction.
func (s *Store) CreateReceipt(ctx context.Context, r *models.ScheduledReceipt, gen *sequence.Generator, at time.Time) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM parts WHERE code = $1)", r.PartCode); err != nil {
		return fmt.Errorf("failed to check part: %w", err)
	}
	if !exists {
		return apperr.NotFound("part %s not found", r.PartCode)
	}

	orderNo, err := gen.Next(ctx, sequence.NewSQLCounter(tx), at)
	if err != nil {
		return err
	}
	r.OrderNo = orderNo

	query := `
		INSERT INTO scheduled_receipts (order_no, part_code, order_quantity, order_amount, status, remarks, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, r, query,
		r.OrderNo, r.PartCode, r.OrderQuantity, r.OrderAmount, r.Status, r.Remarks, r.CreatedBy)
	if isUniqueViolation(err) {
		return apperr.Conflict("order number %s already exists", r.OrderNo)
	}
	if err != nil {
		return fmt.Errorf("failed to create receipt: %w", err)
	}

	return tx.Commit()
}

// GetReceipt retrieves a receipt by ID
func (s *Store) GetReceipt(ctx context.Context, id int64) (*models.ScheduledReceipt, error) {
	var r models.ScheduledReceipt
	err := s.db.GetContext(ctx, &r, "SELECT * FROM scheduled_receipts WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("scheduled receipt %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return &r, nil
}

// ListReceipts retrieves receipts matching f, newest first
func (s *Store) ListReceipts(ctx context.Context, f models.ReceiptFilter) ([]models.ScheduledReceipt, error) {
	conditions := []string{}
	args := []interface{}{}
	if f.Status != "" {
		args = append(args, f.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.PartCode != "" {
		args = append(args, f.PartCode)
		conditions = append(conditions, fmt.Sprintf("part_code = $%d", len(args)))
	}

	query := "SELECT * FROM scheduled_receipts"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"

	receipts := []models.ScheduledReceipt{}
	if err := s.db.SelectContext(ctx, &receipts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}

// MutateReceipt applies fn to the locked receipt and saves it. A stock mutation
// returned by fn is applied to the receipt's part in the same transaction.
func (s *Store) MutateReceipt(ctx context.Context, id int64, fn models.ReceiptMutation) (*models.ScheduledReceipt, *models.StockChange, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var r models.ScheduledReceipt
	err = tx.GetContext(ctx, &r, "SELECT * FROM scheduled_receipts WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.NotFound("scheduled receipt %d not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock receipt: %w", err)
	}

	mutation, err := fn(&r)
	if err != nil {
		return nil, nil, err
	}

	err = tx.GetContext(ctx, &r.UpdatedAt, `
		UPDATE scheduled_receipts
		SET scheduled_quantity = $1, scheduled_date = $2, received_quantity = $3, received_date = $4,
		    status = $5, remarks = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`,
		r.ScheduledQuantity, r.ScheduledDate, r.ReceivedQuantity, r.ReceivedDate, r.Status, r.Remarks, r.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update receipt: %w", err)
	}

	var change *models.StockChange
	if mutation != nil {
		if change, err = applyStock(ctx, tx, r.PartCode, mutation); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit receipt: %w", err)
	}
	return &r, change, nil
}
