package service

import (
	"context"
	"time"

	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/sequence"
)

// SnapshotStore loads consistent engine snapshots
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, planID int64) (*engine.Snapshot, error)
}

// CatalogStore reads master data and stock heads
type CatalogStore interface {
	GetPart(ctx context.Context, code string) (*models.Part, error)
	GetInventory(ctx context.Context, code string) (*models.Inventory, error)
	ListLedger(ctx context.Context, code string, limit int) ([]models.StockTransaction, error)
	ListBomItems(ctx context.Context, productCode string) ([]models.BomItem, error)
}

// StockStore applies stock mutations atomically with their ledger entries
type StockStore interface {
	MutateStock(ctx context.Context, partCode string, fn models.StockMutation) (*models.StockChange, error)
	MutatePlanStock(ctx context.Context, planID int64, partCode string, fn models.PlanStockMutation) (*models.StockChange, error)
}

// ReceiptStore persists scheduled receipts
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, r *models.ScheduledReceipt, gen *sequence.Generator, at time.Time) error
	GetReceipt(ctx context.Context, id int64) (*models.ScheduledReceipt, error)
	ListReceipts(ctx context.Context, f models.ReceiptFilter) ([]models.ScheduledReceipt, error)
	MutateReceipt(ctx context.Context, id int64, fn models.ReceiptMutation) (*models.ScheduledReceipt, *models.StockChange, error)
}

// PlanStore persists plan status and reservations
type PlanStore interface {
	GetPlan(ctx context.Context, id int64) (*models.ProductionPlan, error)
	ListReservations(ctx context.Context, planID int64) ([]models.Reservation, error)
	ReplacePlanReservations(ctx context.Context, planID int64, targets map[string]int64) ([]models.Reservation, error)
	TransitionPlanStatus(ctx context.Context, planID int64, fn func(p *models.ProductionPlan) error) (*models.ProductionPlan, []models.Reservation, error)
}

// Store is everything the services need from persistence
type Store interface {
	SnapshotStore
	CatalogStore
	StockStore
	ReceiptStore
	PlanStore
	Ping(ctx context.Context) error
	Close() error
}
