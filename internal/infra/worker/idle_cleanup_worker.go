package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

type ClientCleaner interface {
	ListAll(ctx context.Context) ([]*entity.Client, error)
	Delete(ctx context.Context, phone string) (bool, error)
}

// IdleCleanupWorker removes clients that never finished the conversation and
// went quiet. Protected and manually added records are never touched.
type IdleCleanupWorker struct {
	clients  ClientCleaner
	idle     time.Duration
	schedule string
	now      func() time.Time
	logger   *zap.SugaredLogger
}

func NewIdleCleanupWorker(clients ClientCleaner, schedule string, idle time.Duration, logger *zap.SugaredLogger) *IdleCleanupWorker {
	if schedule == "" {
		schedule = "@daily"
	}
	if idle <= 0 {
		idle = 30 * 24 * time.Hour
	}
	return &IdleCleanupWorker{
		clients:  clients,
		idle:     idle,
		schedule: schedule,
		now:      time.Now,
		logger:   logger,
	}
}

func (w *IdleCleanupWorker) WithClock(now func() time.Time) *IdleCleanupWorker {
	w.now = now
	return w
}

// Start blocks until ctx is done, running RunOnce on the cron schedule.
func (w *IdleCleanupWorker) Start(ctx context.Context) error {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))
	if _, err := c.AddFunc(w.schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Errorw("❌ [CLEANUP] falha na limpeza", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", w.schedule, err)
	}

	w.logger.Infow("🕒 Idle cleanup worker iniciado", "schedule", w.schedule, "idle", w.idle)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("⚠️ Idle cleanup worker encerrado")
	return nil
}

// RunOnce deletes every eligible idle client and returns how many were removed.
func (w *IdleCleanupWorker) RunOnce(ctx context.Context) (int, error) {
	all, err := w.clients.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := w.now().Add(-w.idle)
	removed := 0
	for _, c := range all {
		if !w.shouldRemove(c, cutoff) {
			continue
		}
		ok, err := w.clients.Delete(ctx, c.Phone)
		if err != nil {
			w.logger.Warnw("⚠️ [CLEANUP] erro ao remover cliente", "phone", c.Phone, "error", err)
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		w.logger.Infof("✅ [CLEANUP] %d cliente(s) ocioso(s) removido(s)", removed)
	}
	return removed, nil
}

func (w *IdleCleanupWorker) shouldRemove(c *entity.Client, cutoff time.Time) bool {
	if c.IsProtected || c.ManuallyAdded || c.State == entity.StateCompleted {
		return false
	}
	last := c.UpdatedAt
	if c.LastMessageAt != nil {
		last = *c.LastMessageAt
	}
	return last.Before(cutoff)
}
