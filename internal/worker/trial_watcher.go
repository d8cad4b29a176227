package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/venuepulse/venuepulse/internal/domain/account"
	"github.com/venuepulse/venuepulse/internal/pkg/logger"
	"github.com/venuepulse/venuepulse/internal/pkg/metrics"
)

// TrialWatcher periodically counts trials that will lapse within the
// configured horizon and publishes the count as a gauge. Support uses the
// gauge to reach out before venues lose dashboard access.
type TrialWatcher struct {
	accounts account.Repository
	schedule string
	horizon  time.Duration
	cron     *cron.Cron
	logger   *logger.Logger
}

// NewTrialWatcher creates a new trial watcher worker
func NewTrialWatcher(accounts account.Repository, schedule string, horizon time.Duration, log *logger.Logger) *TrialWatcher {
	return &TrialWatcher{
		accounts: accounts,
		schedule: schedule,
		horizon:  horizon,
		cron:     cron.New(),
		logger:   log,
	}
}

// Start schedules the sweep and runs one immediately so the gauge is
// populated before the first tick.
func (w *TrialWatcher) Start(ctx context.Context) error {
	w.logger.Infof("Starting trial watcher (schedule %s, horizon %s)", w.schedule, w.horizon)

	w.sweep(ctx)

	if _, err := w.cron.AddFunc(w.schedule, func() {
		w.sweep(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (w *TrialWatcher) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info("Trial watcher stopped")
}

func (w *TrialWatcher) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deadline := time.Now().Add(w.horizon)
	count, err := w.accounts.CountTrialsExpiringBefore(sweepCtx, deadline)
	if err != nil {
		w.logger.ErrorWithErr(err, "Failed to count expiring trials")
		return
	}

	metrics.SetTrialsExpiring(float64(count))
	w.logger.WithFields(map[string]interface{}{
		"count":   count,
		"horizon": w.horizon.String(),
	}).Info("Expiring-trial sweep completed")
}
