package service

import (
	"context"

	"material-service/internal/apperr"
	"material-service/internal/models"
	"material-service/internal/stock"
	"material-service/internal/util"

	"go.uber.org/zap"
)

// InventoryStore is what InventoryService needs from persistence
type InventoryStore interface {
	CatalogStore
	StockStore
}

// InventoryService handles stock reads and ledger mutations
type InventoryService struct {
	store          InventoryStore
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(store InventoryStore, eventPublisher EventPublisher) *InventoryService {
	return &InventoryService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// PartStock is a part with its stock head
type PartStock struct {
	Part      models.Part      `json:"part"`
	Inventory models.Inventory `json:"inventory"`
	Free      int64            `json:"free_stock"`
}

// GetPart returns a part with its current and reserved stock
func (s *InventoryService) GetPart(ctx context.Context, code string) (*PartStock, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.GetPart")
	defer span.End()

	part, err := s.store.GetPart(ctx, code)
	if err != nil {
		return nil, err
	}
	inv, err := s.store.GetInventory(ctx, code)
	if err != nil {
		return nil, err
	}
	return &PartStock{Part: *part, Inventory: *inv, Free: inv.CurrentStock - inv.ReservedStock}, nil
}

// GetInventory returns a part's stock head
func (s *InventoryService) GetInventory(ctx context.Context, code string) (*models.Inventory, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.GetInventory")
	defer span.End()

	return s.store.GetInventory(ctx, code)
}

// ListLedger returns the latest limit ledger entries of a part, oldest first
func (s *InventoryService) ListLedger(ctx context.Context, code string, limit int) ([]models.StockTransaction, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ListLedger")
	defer span.End()

	if limit < 0 {
		return nil, apperr.InvalidInput("limit must not be negative, got %d", limit)
	}
	return s.store.ListLedger(ctx, code, limit)
}

// LedgerReplay compares the stock rebuilt from the ledger with the stored head
type LedgerReplay struct {
	PartCode      string `json:"part_code"`
	Entries       int    `json:"entries"`
	ReplayedStock int64  `json:"replayed_stock"`
	CurrentStock  int64  `json:"current_stock"`
	Consistent    bool   `json:"consistent"`
}

// ReplayLedger rebuilds a part's stock from its full ledger
func (s *InventoryService) ReplayLedger(ctx context.Context, code string) (*LedgerReplay, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReplayLedger", util.AttrPartCode.String(code))
	defer span.End()

	entries, err := s.store.ListLedger(ctx, code, 0)
	if err != nil {
		return nil, err
	}
	inv, err := s.store.GetInventory(ctx, code)
	if err != nil {
		return nil, err
	}

	result := &LedgerReplay{PartCode: code, Entries: len(entries), CurrentStock: inv.CurrentStock}
	if len(entries) == 0 {
		result.ReplayedStock = inv.CurrentStock
		result.Consistent = true
		return result, nil
	}

	replayed, err := stock.Replay(entries)
	if err != nil {
		s.logger.Warn("Ledger replay failed", zap.String("part_code", code), zap.Error(err))
		return nil, err
	}
	result.ReplayedStock = replayed
	result.Consistent = replayed == inv.CurrentStock
	if !result.Consistent {
		s.logger.Warn("Ledger does not match stock head",
			zap.String("part_code", code),
			zap.Int64("replayed", replayed),
			zap.Int64("current", inv.CurrentStock))
	}
	return result, nil
}

// StockRequest is a stock quantity change made by a user
type StockRequest struct {
	Quantity   int64  `json:"quantity"`
	PlanID     int64  `json:"plan_id,omitempty"`
	ReasonCode string `json:"reason_code,omitempty"`
	Actor      string `json:"-"`
}

func (s *InventoryService) commit(ctx context.Context, code string, change *models.StockChange, err error) (*models.StockChange, error) {
	if err != nil {
		recordRejection(ctx, err)
		s.logger.Info("Stock mutation rejected",
			zap.String("part_code", code),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))
		return nil, err
	}

	util.StockMutationsTotal.WithLabelValues(string(change.Transaction.Type)).Inc()
	s.logger.Info("Stock changed",
		zap.String("part_code", code),
		zap.String("type", string(change.Transaction.Type)),
		zap.Int64("change", change.Transaction.QuantityChange),
		zap.Int64("stock_after", change.Transaction.StockAfter),
		zap.String("actor", change.Transaction.Actor))

	logPublishError(s.logger, models.EventTypeStockChanged,
		s.eventPublisher.PublishStockChanged(ctx, change), zap.String("part_code", code))
	return change, nil
}

// ReceiveStock adds delivered goods outside any scheduled receipt
func (s *InventoryService) ReceiveStock(ctx context.Context, code string, req *StockRequest) (*models.StockChange, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReceiveStock", util.AttrPartCode.String(code))
	defer span.End()

	change, err := s.store.MutateStock(ctx, code, stock.Receive(req.Quantity, req.Actor, stock.Reference{}))
	return s.commit(ctx, code, change, err)
}

// IssueStock removes goods; with a plan id the plan's reservation is consumed first
func (s *InventoryService) IssueStock(ctx context.Context, code string, req *StockRequest) (*models.StockChange, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.IssueStock", util.AttrPartCode.String(code))
	defer span.End()

	var change *models.StockChange
	var err error
	if req.PlanID > 0 {
		change, err = s.store.MutatePlanStock(ctx, req.PlanID, code, stock.IssueForPlan(req.PlanID, req.Quantity, req.Actor))
	} else {
		change, err = s.store.MutateStock(ctx, code, stock.Issue(req.Quantity, req.Actor))
	}
	return s.commit(ctx, code, change, err)
}

// AdjustStock applies a signed correction with a reason code
func (s *InventoryService) AdjustStock(ctx context.Context, code string, req *StockRequest) (*models.StockChange, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AdjustStock", util.AttrPartCode.String(code))
	defer span.End()

	change, err := s.store.MutateStock(ctx, code, stock.Adjust(req.Quantity, req.ReasonCode, req.Actor))
	return s.commit(ctx, code, change, err)
}

// RecordStocktake sets stock to a counted quantity
func (s *InventoryService) RecordStocktake(ctx context.Context, code string, req *StockRequest) (*models.StockChange, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.RecordStocktake", util.AttrPartCode.String(code))
	defer span.End()

	change, err := s.store.MutateStock(ctx, code, stock.Stocktake(req.Quantity, req.Actor))
	return s.commit(ctx, code, change, err)
}
