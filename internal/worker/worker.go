package worker

import (
	"context"
	"sync"
	"time"

	"material-service/internal/service"
	"material-service/internal/util"

	"go.uber.org/zap"
)

// AlertLister computes the alert dashboard
type AlertLister interface {
	ListAlerts(ctx context.Context, category string) (*service.AlertReport, error)
}

// AlertWorker optionally recomputes all alert categories on a fixed interval
// so the alert gauges stay current between dashboard requests. A zero
// interval leaves every computation request driven.
type AlertWorker struct {
	alerts   AlertLister
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewAlertWorker creates a new alert worker
func NewAlertWorker(alerts AlertLister, interval time.Duration) *AlertWorker {
	return &AlertWorker{
		alerts:   alerts,
		interval: interval,
		logger:   util.GetLogger(),
		stop:     make(chan struct{}),
	}
}

// Start refreshes once and then on every tick until ctx is done or Stop is called
func (w *AlertWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		w.logger.Info("Alert worker disabled")
		return nil
	}
	w.logger.Info("Starting alert worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.refresh(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-w.stop:
			return nil
		case <-ticker.C:
		}
	}
}

func (w *AlertWorker) refresh(ctx context.Context) {
	report, err := w.alerts.ListAlerts(ctx, "")
	if err != nil {
		w.logger.Error("Failed to refresh alerts", zap.Error(err))
		return
	}
	w.logger.Debug("Alerts refreshed",
		zap.Int("urgent", report.Summary.Urgent),
		zap.Int("warning", report.Summary.Warning))
}

// Stop stops the worker
func (w *AlertWorker) Stop() error {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping alert worker")
		close(w.stop)
	})
	return nil
}
