package service

import (
	"context"
	"time"

	"material-service/internal/engine"
	"material-service/internal/util"

	"go.uber.org/zap"
)

// AlertService builds the procurement dashboard alerts
type AlertService struct {
	store  SnapshotStore
	engine *engine.Engine
	clock  Clock
	logger *zap.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(store SnapshotStore, eng *engine.Engine, clock Clock) *AlertService {
	return &AlertService{
		store:  store,
		engine: eng,
		clock:  clock,
		logger: util.GetLogger(),
	}
}

// AlertReport is the alert listing for one or all categories
type AlertReport struct {
	Category engine.AlertCategory `json:"category"`
	Today    time.Time            `json:"today"`
	Buckets  []engine.AlertBucket `json:"buckets"`
	Summary  engine.AlertSummary  `json:"summary"`
}

// ListAlerts computes alerts for category ("" means all)
func (s *AlertService) ListAlerts(ctx context.Context, category string) (*AlertReport, error) {
	ctx, span := util.StartSpan(ctx, "AlertService.ListAlerts")
	defer span.End()
	defer timed("alerts")()

	c, err := engine.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	snap, err := s.store.LoadSnapshot(ctx, 0)
	if err != nil {
		return nil, err
	}
	today := s.clock.Today()
	buckets, err := s.engine.Alerts(snap, c, today)
	if err != nil {
		return nil, err
	}

	report := &AlertReport{Category: c, Today: today, Buckets: buckets}
	for _, b := range buckets {
		report.Summary.Urgent += b.Summary.Urgent
		report.Summary.Warning += b.Summary.Warning
		report.Summary.Total += b.Summary.Total
		util.AlertsRaised.WithLabelValues(string(b.Category), string(engine.TierUrgent)).Set(float64(b.Summary.Urgent))
		util.AlertsRaised.WithLabelValues(string(b.Category), string(engine.TierWarning)).Set(float64(b.Summary.Warning))
	}

	s.logger.Debug("Alerts computed",
		zap.String("category", string(c)),
		zap.Int("urgent", report.Summary.Urgent),
		zap.Int("warning", report.Summary.Warning))
	return report, nil
}
