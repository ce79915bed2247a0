package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"material-service/internal/apperr"
	"material-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// lockInventory makes sure the part has an inventory row and locks it (FOR UPDATE)
func lockInventory(ctx context.Context, tx *sqlx.Tx, partCode string) (*models.Inventory, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (part_code)
		SELECT code FROM parts WHERE code = $1
		ON CONFLICT (part_code) DO NOTHING`, partCode)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory row: %w", err)
	}

	var inv models.Inventory
	err = tx.GetContext(ctx, &inv, "SELECT * FROM inventory WHERE part_code = $1 FOR UPDATE", partCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("part %s not found", partCode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory: %w", err)
	}
	return &inv, nil
}

func saveInventory(ctx context.Context, tx *sqlx.Tx, inv *models.Inventory) error {
	err := tx.GetContext(ctx, &inv.UpdatedAt, `
		UPDATE inventory SET current_stock = $1, reserved_stock = $2, updated_at = NOW()
		WHERE part_code = $3
		RETURNING updated_at`,
		inv.CurrentStock, inv.ReservedStock, inv.PartCode)
	if isCheckViolation(err) {
		return apperr.InsufficientStock("part %s: stock %d below reserved %d",
			inv.PartCode, inv.CurrentStock, inv.ReservedStock)
	}
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	return nil
}

func insertLedger(ctx context.Context, tx *sqlx.Tx, entry *models.StockTransaction) error {
	query := `
		INSERT INTO stock_transactions
			(part_code, type, quantity_change, stock_before, stock_after, reason_code, reference_type, reference_id, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := tx.GetContext(ctx, entry, query,
		entry.PartCode, entry.Type, entry.QuantityChange, entry.StockBefore, entry.StockAfter,
		entry.ReasonCode, entry.ReferenceType, entry.ReferenceID, entry.Actor)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// applyStock runs fn against the locked row and persists the result with its ledger entry
func applyStock(ctx context.Context, tx *sqlx.Tx, partCode string, fn models.StockMutation) (*models.StockChange, error) {
	inv, err := lockInventory(ctx, tx, partCode)
	if err != nil {
		return nil, err
	}

	entry, err := fn(inv)
	if err != nil {
		return nil, err
	}
	entry.PartCode = partCode

	if err := saveInventory(ctx, tx, inv); err != nil {
		return nil, err
	}
	if err := insertLedger(ctx, tx, entry); err != nil {
		return nil, err
	}
	return &models.StockChange{Inventory: *inv, Transaction: *entry}, nil
}

// MutateStock changes a part's stock in one transaction
func (s *Store) MutateStock(ctx context.Context, partCode string, fn models.StockMutation) (*models.StockChange, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	change, err := applyStock(ctx, tx, partCode, fn)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit stock change: %w", err)
	}
	return change, nil
}

// MutatePlanStock changes a part's stock on behalf of a plan, letting fn adjust
// the plan's reservation in the same transaction.
func (s *Store) MutatePlanStock(ctx context.Context, planID int64, partCode string, fn models.PlanStockMutation) (*models.StockChange, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := lockPlan(ctx, tx, planID, "FOR SHARE"); err != nil {
		return nil, err
	}
	inv, err := lockInventory(ctx, tx, partCode)
	if err != nil {
		return nil, err
	}
	res, err := lockReservation(ctx, tx, planID, partCode)
	if err != nil {
		return nil, err
	}

	entry, err := fn(inv, res)
	if err != nil {
		return nil, err
	}
	entry.PartCode = partCode

	if err := saveInventory(ctx, tx, inv); err != nil {
		return nil, err
	}
	if err := saveReservation(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := insertLedger(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan stock change: %w", err)
	}
	return &models.StockChange{Inventory: *inv, Transaction: *entry}, nil
}
