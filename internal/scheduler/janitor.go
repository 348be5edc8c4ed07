package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CleanupStore is the retention-sweep contract. Implemented by
// storage.Storage.
type CleanupStore interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// Janitor deletes terminal jobs older than the retention window on a
// low-frequency timer. It runs independently of the processor: stale rows
// accumulate regardless of current load.
type Janitor struct {
	logger        *slog.Logger
	store         CleanupStore
	interval      time.Duration
	retentionDays int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewJanitor creates a new Janitor instance
func NewJanitor(logger *slog.Logger, store CleanupStore, interval time.Duration, retentionDays int) *Janitor {
	return &Janitor{
		logger:        logger,
		store:         store,
		interval:      interval,
		retentionDays: retentionDays,
	}
}

// Start begins the sweep loop, running one sweep immediately. No-op when
// already running.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.running = true

	j.wg.Add(1)
	go j.run(ctx)

	j.logger.Info("Janitor started",
		slog.Duration("interval", j.interval),
		slog.Int("retention_days", j.retentionDays),
	)
}

// Stop cancels the sweep loop. Idempotent.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	cancel := j.cancel
	j.mu.Unlock()

	cancel()
	j.wg.Wait()

	j.logger.Info("Janitor stopped")
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	deleted, err := j.store.Cleanup(ctx, j.retentionDays)
	if err != nil {
		j.logger.Error("Retention sweep failed",
			slog.String("error", err.Error()),
		)
		return
	}

	j.logger.Info("Retention sweep finished",
		slog.Int64("deleted", deleted),
		slog.Int("retention_days", j.retentionDays),
	)
}
