// Package retention deletes recorded messages once they age out of the
// retention window.
package retention

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/toxbot/toxbot/internal/database"
	"github.com/toxbot/toxbot/internal/setup/config"
)

// Worker periodically purges messages older than the retention window.
type Worker struct {
	db       database.Client
	logger   *zap.Logger
	window   time.Duration
	interval time.Duration
}

// New creates a retention worker from the retention config.
func New(db database.Client, cfg *config.Retention, logger *zap.Logger) *Worker {
	return &Worker{
		db:       db,
		logger:   logger.Named("retention"),
		window:   time.Duration(cfg.WindowDays) * 24 * time.Hour,
		interval: time.Duration(cfg.SweepIntervalHours) * time.Hour,
	}
}

// Start runs an immediate sweep and then sweeps on the configured interval
// until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Retention worker started",
		zap.Duration("window", w.window),
		zap.Duration("interval", w.interval))

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			w.logger.Info("Retention worker stopped")
			return
		}
	}
}

// Sweep deletes messages outside the retention window once and reports how
// many rows were removed.
func (w *Worker) Sweep(ctx context.Context) (int64, error) {
	return w.db.Model().Message().PurgeOlderThan(ctx, w.window)
}

func (w *Worker) sweep(ctx context.Context) {
	purged, err := w.Sweep(ctx)
	if err != nil {
		w.logger.Error("Failed to purge expired messages", zap.Error(err))
		return
	}

	if purged > 0 {
		w.logger.Info("Purged expired messages", zap.Int64("count", purged))
	} else {
		w.logger.Debug("No expired messages to purge")
	}
}
