package service

import (
	"context"

	"material-service/internal/apperr"
	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/util"

	"go.uber.org/zap"
)

// PlanServiceStore is what PlanService needs from persistence
type PlanServiceStore interface {
	SnapshotStore
	PlanStore
}

// PlanService manages plan lifecycle and stock reservations
type PlanService struct {
	store          PlanServiceStore
	engine         *engine.Engine
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewPlanService creates a new plan service
func NewPlanService(store PlanServiceStore, eng *engine.Engine, eventPublisher EventPublisher) *PlanService {
	return &PlanService{
		store:          store,
		engine:         eng,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// GetPlan retrieves a production plan by ID
func (s *PlanService) GetPlan(ctx context.Context, id int64) (*models.ProductionPlan, error) {
	ctx, span := util.StartSpan(ctx, "PlanService.GetPlan")
	defer span.End()

	return s.store.GetPlan(ctx, id)
}

// ListReservations returns the plan's reservation rows
func (s *PlanService) ListReservations(ctx context.Context, planID int64) ([]models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "PlanService.ListReservations", util.AttrPlanID.Int64(planID))
	defer span.End()

	if _, err := s.store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	return s.store.ListReservations(ctx, planID)
}

// RecordPlanReservations replaces the plan's reservations with what it can
// claim from stock on hand in priority order.
func (s *PlanService) RecordPlanReservations(ctx context.Context, planID int64) ([]models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "PlanService.RecordPlanReservations", util.AttrPlanID.Int64(planID))
	defer span.End()

	snap, err := s.store.LoadSnapshot(ctx, planID)
	if err != nil {
		return nil, err
	}
	targets, err := s.engine.ReservationTargets(snap, planID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.store.ReplacePlanReservations(ctx, planID, targets)
	if err != nil {
		recordRejection(ctx, err)
		s.logger.Error("Failed to record reservations", zap.Int64("plan_id", planID), zap.Error(err))
		return nil, err
	}

	var total int64
	for _, r := range reservations {
		total += r.ReservedQuantity
	}
	s.logger.Info("Reservations recorded",
		zap.Int64("plan_id", planID),
		zap.Int("parts", len(reservations)),
		zap.Int64("reserved_total", total))

	logPublishError(s.logger, models.EventTypeReservationsUpdated,
		s.eventPublisher.PublishReservationsUpdated(ctx, planID, reservations), zap.Int64("plan_id", planID))
	return reservations, nil
}

// PlanTransition is a committed plan status change
type PlanTransition struct {
	Plan     *models.ProductionPlan `json:"plan"`
	From     models.PlanStatus      `json:"from"`
	Released []models.Reservation   `json:"released_reservations"`
}

// TransitionPlanStatus moves a plan along its lifecycle; terminal states
// release its reservations.
func (s *PlanService) TransitionPlanStatus(ctx context.Context, planID int64, target models.PlanStatus, actor string) (*PlanTransition, error) {
	ctx, span := util.StartSpan(ctx, "PlanService.TransitionPlanStatus", util.AttrPlanID.Int64(planID))
	defer span.End()

	if !target.Valid() {
		return nil, apperr.InvalidInput("unknown plan status %q", target)
	}

	var from models.PlanStatus
	plan, released, err := s.store.TransitionPlanStatus(ctx, planID, func(p *models.ProductionPlan) error {
		from = p.Status
		if !p.Status.CanTransitionTo(target) {
			return apperr.InvalidStateTransition("plan %d cannot move from %s to %s", p.ID, p.Status, target)
		}
		p.Status = target
		return nil
	})
	if err != nil {
		recordRejection(ctx, err)
		s.logger.Info("Plan transition rejected",
			zap.Int64("plan_id", planID),
			zap.String("target", string(target)),
			zap.Error(err))
		return nil, err
	}

	util.PlanTransitionsTotal.WithLabelValues(string(plan.Status)).Inc()
	s.logger.Info("Plan status changed",
		zap.Int64("plan_id", plan.ID),
		zap.String("from", string(from)),
		zap.String("to", string(plan.Status)),
		zap.Int("released", len(released)),
		zap.String("actor", actor))

	logPublishError(s.logger, models.EventTypePlanStatusChanged,
		s.eventPublisher.PublishPlanStatusChanged(ctx, plan, from, actor), zap.Int64("plan_id", plan.ID))
	if len(released) > 0 {
		logPublishError(s.logger, models.EventTypeReservationsUpdated,
			s.eventPublisher.PublishReservationsUpdated(ctx, plan.ID, []models.Reservation{}), zap.Int64("plan_id", plan.ID))
	}
	return &PlanTransition{Plan: plan, From: from, Released: released}, nil
}
