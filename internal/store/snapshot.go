package store

import (
	"context"
	"database/sql"
	"fmt"

	"material-service/internal/engine"
	"material-service/internal/models"
)

// LoadSnapshot reads everything the requirement engine needs in one read-only
// repeatable-read transaction. planID, when non-zero, is included even if the
// plan is no longer active.
func (s *Store) LoadSnapshot(ctx context.Context, planID int64) (*engine.Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var parts []models.Part
	if err := tx.SelectContext(ctx, &parts, "SELECT * FROM parts ORDER BY code"); err != nil {
		return nil, fmt.Errorf("failed to load parts: %w", err)
	}

	var inventory []models.Inventory
	if err := tx.SelectContext(ctx, &inventory, "SELECT * FROM inventory"); err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	var plans []models.ProductionPlan
	err = tx.SelectContext(ctx, &plans,
		"SELECT * FROM production_plans WHERE status IN ($1, $2) OR id = $3 ORDER BY start_date, id",
		models.PlanStatusPlanned, models.PlanStatusInProgress, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}

	var bomItems []models.BomItem
	err = tx.SelectContext(ctx, &bomItems,
		"SELECT * FROM bom_items WHERE active ORDER BY product_code, station_code, part_code")
	if err != nil {
		return nil, fmt.Errorf("failed to load bom items: %w", err)
	}

	var receipts []models.ScheduledReceipt
	err = tx.SelectContext(ctx, &receipts,
		"SELECT * FROM scheduled_receipts WHERE status = $1 ORDER BY id", models.ReceiptStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to close snapshot: %w", err)
	}
	return engine.NewSnapshot(parts, inventory, plans, bomItems, receipts), nil
}
