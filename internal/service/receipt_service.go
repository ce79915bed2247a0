package service

import (
	"context"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/sequence"
	"material-service/internal/stock"
	"material-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptServiceStore is what ReceiptService needs from persistence
type ReceiptServiceStore interface {
	ReceiptStore
	GetPart(ctx context.Context, code string) (*models.Part, error)
}

// ReceiptService manages scheduled receipts (open purchase orders)
type ReceiptService struct {
	store          ReceiptServiceStore
	eventPublisher EventPublisher
	generator      *sequence.Generator
	clock          Clock
	logger         *zap.Logger
}

// NewReceiptService creates a new receipt service
func NewReceiptService(store ReceiptServiceStore, eventPublisher EventPublisher, gen *sequence.Generator, clock Clock) *ReceiptService {
	if gen == nil {
		gen = sequence.New(sequence.DefaultPrefix)
	}
	return &ReceiptService{
		store:          store,
		eventPublisher: eventPublisher,
		generator:      gen,
		clock:          clock,
		logger:         util.GetLogger(),
	}
}

// CreateReceiptRequest represents a new purchase order
type CreateReceiptRequest struct {
	PartCode      string `json:"part_code" binding:"required"`
	OrderQuantity int64  `json:"order_quantity" binding:"required"`
	Remarks       string `json:"remarks"`
	Actor         string `json:"-"`
}

// CreateReceipt opens a receipt awaiting its delivery date
func (s *ReceiptService) CreateReceipt(ctx context.Context, req *CreateReceiptRequest) (*models.ScheduledReceipt, error) {
	ctx, span := util.StartSpan(ctx, "ReceiptService.CreateReceipt")
	defer span.End()

	if req.PartCode == "" {
		return nil, apperr.InvalidInput("part_code is required")
	}
	if req.OrderQuantity <= 0 {
		return nil, apperr.InvalidInput("order_quantity must be positive, got %d", req.OrderQuantity)
	}

	part, err := s.store.GetPart(ctx, req.PartCode)
	if err != nil {
		return nil, err
	}

	receipt := &models.ScheduledReceipt{
		PartCode:      part.Code,
		OrderQuantity: req.OrderQuantity,
		OrderAmount:   part.UnitPrice.Mul(decimal.NewFromInt(req.OrderQuantity)),
		Status:        models.ReceiptStatusAwaitingDeliveryDate,
		Remarks:       req.Remarks,
		CreatedBy:     req.Actor,
	}
	if err := s.store.CreateReceipt(ctx, receipt, s.generator, s.clock.At().In(s.location())); err != nil {
		s.logger.Error("Failed to create receipt", zap.String("part_code", req.PartCode), zap.Error(err))
		return nil, err
	}

	util.ReceiptsCreatedTotal.Inc()
	s.logger.Info("Receipt created",
		zap.Int64("receipt_id", receipt.ID),
		zap.String("order_no", receipt.OrderNo),
		zap.String("part_code", receipt.PartCode),
		zap.Int64("order_quantity", receipt.OrderQuantity),
		zap.String("order_amount", receipt.OrderAmount.StringFixed(2)))

	logPublishError(s.logger, models.EventTypeReceiptCreated,
		s.eventPublisher.PublishReceiptCreated(ctx, receipt), zap.Int64("receipt_id", receipt.ID))
	return receipt, nil
}

func (s *ReceiptService) location() *time.Location {
	if s.clock.Location == nil {
		return time.UTC
	}
	return s.clock.Location
}

// GetReceipt retrieves a receipt by ID
func (s *ReceiptService) GetReceipt(ctx context.Context, id int64) (*models.ScheduledReceipt, error) {
	ctx, span := util.StartSpan(ctx, "ReceiptService.GetReceipt")
	defer span.End()

	return s.store.GetReceipt(ctx, id)
}

// ListReceipts lists receipts newest first, optionally filtered
func (s *ReceiptService) ListReceipts(ctx context.Context, f models.ReceiptFilter) ([]models.ScheduledReceipt, error) {
	ctx, span := util.StartSpan(ctx, "ReceiptService.ListReceipts")
	defer span.End()

	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.InvalidInput("unknown receipt status %q", f.Status)
	}
	return s.store.ListReceipts(ctx, f)
}

// TransitionRequest moves a receipt to Target. Scheduling needs a quantity and
// date; receiving defaults to the scheduled quantity on the current day.
type TransitionRequest struct {
	Target            models.ReceiptStatus
	ScheduledQuantity *int64
	ScheduledDate     *time.Time
	ReceivedQuantity  *int64
	ReceivedDate      *time.Time
	Remarks           string
	Actor             string
}

// ReceiptTransition is a committed receipt transition with its stock effect
type ReceiptTransition struct {
	Receipt     *models.ScheduledReceipt `json:"receipt"`
	From        models.ReceiptStatus     `json:"from"`
	StockChange *models.StockChange      `json:"stock_change,omitempty"`
}

// TransitionReceiptStatus applies one lifecycle step. Receiving increases the
// part's stock in the same transaction.
func (s *ReceiptService) TransitionReceiptStatus(ctx context.Context, id int64, req *TransitionRequest) (*ReceiptTransition, error) {
	ctx, span := util.StartSpan(ctx, "ReceiptService.TransitionReceiptStatus", util.AttrReceiptID.Int64(id))
	defer span.End()

	if !req.Target.Valid() {
		return nil, apperr.InvalidInput("unknown receipt status %q", req.Target)
	}
	today := s.clock.Today()

	var from models.ReceiptStatus
	receipt, change, err := s.store.MutateReceipt(ctx, id, func(r *models.ScheduledReceipt) (models.StockMutation, error) {
		from = r.Status
		if !r.Status.CanTransitionTo(req.Target) {
			return nil, apperr.InvalidStateTransition("receipt %s cannot move from %s to %s", r.OrderNo, r.Status, req.Target)
		}
		if req.Remarks != "" {
			r.Remarks = req.Remarks
		}

		switch req.Target {
		case models.ReceiptStatusScheduled:
			if req.ScheduledQuantity == nil || *req.ScheduledQuantity <= 0 {
				return nil, apperr.InvalidInput("scheduled_quantity must be positive")
			}
			if req.ScheduledDate == nil || req.ScheduledDate.IsZero() {
				return nil, apperr.InvalidInput("scheduled_date is required")
			}
			qty := *req.ScheduledQuantity
			date := engine.Day(*req.ScheduledDate)
			r.ScheduledQuantity = &qty
			r.ScheduledDate = &date

		case models.ReceiptStatusReceived:
			var qty int64
			switch {
			case req.ReceivedQuantity != nil:
				qty = *req.ReceivedQuantity
			case r.ScheduledQuantity != nil:
				qty = *r.ScheduledQuantity
			}
			if qty <= 0 {
				return nil, apperr.InvalidInput("received_quantity must be positive, got %d", qty)
			}
			date := today
			if req.ReceivedDate != nil && !req.ReceivedDate.IsZero() {
				date = engine.Day(*req.ReceivedDate)
			}
			r.ReceivedQuantity = &qty
			r.ReceivedDate = &date
			r.Status = req.Target
			return stock.Receive(qty, req.Actor, stock.ReceiptReference(r.ID)), nil
		}

		r.Status = req.Target
		return nil, nil
	})
	if err != nil {
		recordRejection(ctx, err)
		s.logger.Info("Receipt transition rejected",
			zap.Int64("receipt_id", id),
			zap.String("target", string(req.Target)),
			zap.Error(err))
		return nil, err
	}

	util.ReceiptTransitionsTotal.WithLabelValues(string(receipt.Status)).Inc()
	s.logger.Info("Receipt status changed",
		zap.Int64("receipt_id", receipt.ID),
		zap.String("order_no", receipt.OrderNo),
		zap.String("from", string(from)),
		zap.String("to", string(receipt.Status)),
		zap.String("actor", req.Actor))

	logPublishError(s.logger, models.EventTypeReceiptStatusChanged,
		s.eventPublisher.PublishReceiptStatusChanged(ctx, receipt, from, req.Actor), zap.Int64("receipt_id", receipt.ID))
	if change != nil {
		util.StockMutationsTotal.WithLabelValues(string(change.Transaction.Type)).Inc()
		logPublishError(s.logger, models.EventTypeStockChanged,
			s.eventPublisher.PublishStockChanged(ctx, change), zap.String("part_code", change.Inventory.PartCode))
	}

	return &ReceiptTransition{Receipt: receipt, From: from, StockChange: change}, nil
}
