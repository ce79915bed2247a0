package broker

import (
	"context"
	"fmt"
	"time"

	"material-service/internal/models"

	"github.com/google/uuid"
)

// Sink writes a keyed event to the bus
type Sink interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	sink Sink
	now  func() time.Time
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(sink Sink) *EventPublisher {
	return &EventPublisher{sink: sink, now: time.Now}
}

func (ep *EventPublisher) base(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: ep.now(),
	}
}

// PublishStockChanged publishes StockChanged event keyed by part
func (ep *EventPublisher) PublishStockChanged(ctx context.Context, change *models.StockChange) error {
	event := &models.StockChangedEvent{
		BaseEvent:      ep.base(models.EventTypeStockChanged),
		PartCode:       change.Inventory.PartCode,
		TransactionID:  change.Transaction.ID,
		Type:           change.Transaction.Type,
		QuantityChange: change.Transaction.QuantityChange,
		StockBefore:    change.Transaction.StockBefore,
		StockAfter:     change.Transaction.StockAfter,
		ReservedStock:  change.Inventory.ReservedStock,
		Actor:          change.Transaction.Actor,
	}
	return ep.sink.PublishEvent(ctx, fmt.Sprintf("part-%s", event.PartCode), event)
}

// PublishReceiptCreated publishes ReceiptCreated event keyed by receipt
func (ep *EventPublisher) PublishReceiptCreated(ctx context.Context, r *models.ScheduledReceipt) error {
	event := &models.ReceiptCreatedEvent{
		BaseEvent:     ep.base(models.EventTypeReceiptCreated),
		ReceiptID:     r.ID,
		OrderNo:       r.OrderNo,
		PartCode:      r.PartCode,
		OrderQuantity: r.OrderQuantity,
	}
	return ep.sink.PublishEvent(ctx, fmt.Sprintf("receipt-%d", r.ID), event)
}

// PublishReceiptStatusChanged publishes ReceiptStatusChanged event keyed by receipt
func (ep *EventPublisher) PublishReceiptStatusChanged(ctx context.Context, r *models.ScheduledReceipt, from models.ReceiptStatus, actor string) error {
	event := &models.ReceiptStatusChangedEvent{
		BaseEvent: ep.base(models.EventTypeReceiptStatusChanged),
		ReceiptID: r.ID,
		OrderNo:   r.OrderNo,
		PartCode:  r.PartCode,
		From:      from,
		To:        r.Status,
		Actor:     actor,
	}
	return ep.sink.PublishEvent(ctx, fmt.Sprintf("receipt-%d", r.ID), event)
}

// PublishReservationsUpdated publishes ReservationsUpdated event keyed by plan
func (ep *EventPublisher) PublishReservationsUpdated(ctx context.Context, planID int64, reservations []models.Reservation) error {
	quantities := make(map[string]int64, len(reservations))
	for _, r := range reservations {
		quantities[r.PartCode] = r.ReservedQuantity
	}
	event := &models.ReservationsUpdatedEvent{
		BaseEvent:    ep.base(models.EventTypeReservationsUpdated),
		PlanID:       planID,
		Reservations: quantities,
	}
	return ep.sink.PublishEvent(ctx, fmt.Sprintf("plan-%d", planID), event)
}

// PublishPlanStatusChanged publishes PlanStatusChanged event keyed by plan
func (ep *EventPublisher) PublishPlanStatusChanged(ctx context.Context, plan *models.ProductionPlan, from models.PlanStatus, actor string) error {
	event := &models.PlanStatusChangedEvent{
		BaseEvent: ep.base(models.EventTypePlanStatusChanged),
		PlanID:    plan.ID,
		From:      from,
		To:        plan.Status,
		Actor:     actor,
	}
	return ep.sink.PublishEvent(ctx, fmt.Sprintf("plan-%d", plan.ID), event)
}

// NopSink drops every event; used when no brokers are configured
type NopSink struct{}

// PublishEvent discards the event
func (NopSink) PublishEvent(context.Context, string, interface{}) error {
	return nil
}
