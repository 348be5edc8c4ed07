package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulsedesk/notifyq/internal/delivery"
	"github.com/pulsedesk/notifyq/internal/domain"
)

// ErrTickInFlight is returned by Tick when a previous tick has not finished
// yet. The caller skips the tick entirely; no work is lost because the next
// tick claims the same rows.
var ErrTickInFlight = errors.New("tick already in flight")

// Store is the persistence contract the processor drives. Implemented by
// storage.Storage; tests supply an in-memory version.
type Store interface {
	ClaimReady(ctx context.Context, limit int) ([]domain.Job, error)
	MarkProcessing(ctx context.Context, jobID string) (bool, error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID, errorMsg string) (string, error)
}

// Config holds processor configuration
type Config struct {
	Logger             *slog.Logger
	Store              Store
	Deliverer          delivery.Deliverer
	PollInterval       time.Duration
	BatchSize          int
	IdleTicksThreshold int
}

// Status is a snapshot of the processor's run state.
type Status struct {
	Running      bool       `json:"running"`
	PollInterval string     `json:"poll_interval"`
	BatchSize    int        `json:"batch_size"`
	IdleTicks    int        `json:"idle_ticks"`
	LastTickAt   *time.Time `json:"last_tick_at,omitempty"`
}

// Processor drives the job lifecycle against the store on a fixed interval.
// All of its mutable state is instance-local; it must not be treated as
// authoritative across replicas.
type Processor struct {
	logger        *slog.Logger
	store         Store
	deliverer     delivery.Deliverer
	interval      time.Duration
	batchSize     int
	idleThreshold int

	busy atomic.Bool

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	idleTicks int
	lastTick  *time.Time
}

// NewProcessor creates a new Processor instance
func NewProcessor(cfg *Config) *Processor {
	return &Processor{
		logger:        cfg.Logger,
		store:         cfg.Store,
		deliverer:     cfg.Deliverer,
		interval:      cfg.PollInterval,
		batchSize:     cfg.BatchSize,
		idleThreshold: cfg.IdleTicksThreshold,
	}
}

// Start begins the tick loop. No-op when already running. The loop holds its
// own context so a request-scoped caller waking the processor does not tear
// it down when the request ends.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.idleTicks = 0

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("Notification processor started",
		slog.Duration("poll_interval", p.interval),
		slog.Int("batch_size", p.batchSize),
		slog.Int("idle_ticks_threshold", p.idleThreshold),
	)
}

// Stop cancels the tick loop and waits for an in-flight tick to finish.
// Idempotent.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	p.logger.Info("Notification processor stopped")
}

// Running reports whether the tick loop is active.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// GetStatus returns a snapshot of the processor state.
func (p *Processor) GetStatus() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Status{
		Running:      p.running,
		PollInterval: p.interval.String(),
		BatchSize:    p.batchSize,
		IdleTicks:    p.idleTicks,
		LastTickAt:   p.lastTick,
	}
}

// run is the tick loop. Tick errors end the tick early but never the loop;
// the idle counter auto-stops the loop once enough consecutive ticks claim
// nothing.
func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := p.Tick(ctx)

			now := time.Now()
			p.mu.Lock()
			p.lastTick = &now
			p.mu.Unlock()

			if err != nil {
				if errors.Is(err, ErrTickInFlight) {
					continue
				}
				p.logger.Error("Processor tick failed",
					slog.String("error", err.Error()),
				)
				continue
			}

			if processed > 0 {
				p.mu.Lock()
				p.idleTicks = 0
				p.mu.Unlock()
				continue
			}

			p.mu.Lock()
			p.idleTicks++
			idle := p.idleTicks
			shouldStop := idle >= p.idleThreshold && p.running
			if shouldStop {
				p.running = false
				p.cancel()
			}
			p.mu.Unlock()

			if shouldStop {
				p.logger.Info("Notification processor idle, auto-stopping",
					slog.Int("idle_ticks", idle),
				)
				return
			}
		}
	}
}

// Tick claims up to the batch limit of due jobs and runs one delivery attempt
// per job, sequentially. Failures are isolated per job and never abort the
// batch. Returns the number of jobs processed; zero signals an idle tick.
func (p *Processor) Tick(ctx context.Context) (int, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return 0, ErrTickInFlight
	}
	defer p.busy.Store(false)

	jobs, err := p.store.ClaimReady(ctx, p.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range jobs {
		job := jobs[i]

		claimed, err := p.store.MarkProcessing(ctx, job.JobID)
		if err != nil {
			p.logger.Error("Failed to mark job processing",
				slog.String("job_id", job.JobID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !claimed {
			// Cancelled (or taken elsewhere) between claim and mark.
			p.logger.Debug("Job no longer pending, skipping",
				slog.String("job_id", job.JobID),
			)
			continue
		}

		if err := p.deliverer.Deliver(ctx, &job); err != nil {
			status, markErr := p.store.MarkFailed(ctx, job.JobID, err.Error())
			if markErr != nil {
				p.logger.Error("Failed to record delivery failure",
					slog.String("job_id", job.JobID),
					slog.String("error", markErr.Error()),
				)
			} else {
				p.logger.Warn("Delivery attempt failed",
					slog.String("job_id", job.JobID),
					slog.Int("attempt", job.Attempts+1),
					slog.Int("max_attempts", job.MaxAttempts),
					slog.String("status", status),
					slog.String("error", err.Error()),
				)
			}
		} else {
			if markErr := p.store.MarkCompleted(ctx, job.JobID); markErr != nil {
				p.logger.Error("Failed to mark job completed",
					slog.String("job_id", job.JobID),
					slog.String("error", markErr.Error()),
				)
			}
		}

		processed++
	}

	return processed, nil
}
