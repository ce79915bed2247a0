package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"material-service/internal/apperr"
	"material-service/internal/models"
)

// GetPart retrieves a part by code
func (s *Store) GetPart(ctx context.Context, code string) (*models.Part, error) {
	var part models.Part
	err := s.db.GetContext(ctx, &part, "SELECT * FROM parts WHERE code = $1", code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("part %s not found", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get part: %w", err)
	}
	return &part, nil
}

// GetInventory retrieves the stock head of a part; a part never stocked reads as zero
func (s *Store) GetInventory(ctx context.Context, code string) (*models.Inventory, error) {
	if _, err := s.GetPart(ctx, code); err != nil {
		return nil, err
	}

	var inv models.Inventory
	err := s.db.GetContext(ctx, &inv, "SELECT * FROM inventory WHERE part_code = $1", code)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Inventory{PartCode: code}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	return &inv, nil
}

// ListLedger returns a part's ledger entries oldest first. A positive limit
// keeps only the latest entries.
func (s *Store) ListLedger(ctx context.Context, code string, limit int) ([]models.StockTransaction, error) {
	if _, err := s.GetPart(ctx, code); err != nil {
		return nil, err
	}

	entries := []models.StockTransaction{}
	var err error
	if limit > 0 {
		err = s.db.SelectContext(ctx, &entries, `
			SELECT * FROM (
				SELECT * FROM stock_transactions WHERE part_code = $1 ORDER BY id DESC LIMIT $2
			) latest ORDER BY id`, code, limit)
	} else {
		err = s.db.SelectContext(ctx, &entries,
			"SELECT * FROM stock_transactions WHERE part_code = $1 ORDER BY id", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	return entries, nil
}

// ListBomItems retrieves the active BOM rows of a product
func (s *Store) ListBomItems(ctx context.Context, productCode string) ([]models.BomItem, error) {
	items := []models.BomItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM bom_items WHERE product_code = $1 AND active ORDER BY station_code, part_code", productCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list bom items: %w", err)
	}
	return items, nil
}
