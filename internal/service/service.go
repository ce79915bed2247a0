package service

import (
	"context"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/util"

	"go.uber.org/zap"
)

// EventPublisher publishes domain events after commit
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, change *models.StockChange) error
	PublishReceiptCreated(ctx context.Context, r *models.ScheduledReceipt) error
	PublishReceiptStatusChanged(ctx context.Context, r *models.ScheduledReceipt, from models.ReceiptStatus, actor string) error
	PublishReservationsUpdated(ctx context.Context, planID int64, reservations []models.Reservation) error
	PublishPlanStatusChanged(ctx context.Context, plan *models.ProductionPlan, from models.PlanStatus, actor string) error
}

// Clock reports the current calendar day in the business timezone
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock reads the wall clock in loc
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today is the current business day as UTC midnight
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return engine.Day(now().In(loc))
}

// At is the current instant
func (c Clock) At() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// logPublishError records an event that could not be published. The mutation
// has already committed so the error is not returned to the caller.
func logPublishError(logger *zap.Logger, eventType string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	util.EventsPublishFailed.WithLabelValues(eventType).Inc()
	logger.Error("Failed to publish event", append(fields, zap.String("event_type", eventType), zap.Error(err))...)
}

// recordRejection counts a refused mutation by error kind and fails the span
func recordRejection(ctx context.Context, err error) {
	util.RecordError(ctx, err)
	util.StockMutationsRejected.WithLabelValues(string(apperr.KindOf(err))).Inc()
}
