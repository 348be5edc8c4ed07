package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsedesk/notifyq/internal/cache"
	"github.com/pulsedesk/notifyq/internal/domain"
	"github.com/pulsedesk/notifyq/internal/scheduler"
	"github.com/pulsedesk/notifyq/internal/storage"
)

// Store is the persistence surface the service needs. Implemented by
// storage.Storage.
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	CancelJob(ctx context.Context, jobID string) (bool, error)
	GetStats(ctx context.Context) (*storage.Stats, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, int64, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// Processor is the lifecycle-controller surface the service needs.
type Processor interface {
	Start()
	Running() bool
	GetStatus() scheduler.Status
}

// Config holds service configuration
type Config struct {
	Logger             *slog.Logger
	Store              Store
	Cache              *cache.StatusCache // optional
	Processor          Processor
	StartOnDemand      bool
	DefaultMaxAttempts int
}

// Service implements the enqueue and administrative contracts over the job
// store, waking the processor on demand when new work arrives.
type Service struct {
	logger             *slog.Logger
	store              Store
	cache              *cache.StatusCache
	processor          Processor
	startOnDemand      bool
	defaultMaxAttempts int
}

// New creates a new Service instance
func New(cfg *Config) *Service {
	return &Service{
		logger:             cfg.Logger,
		store:              cfg.Store,
		cache:              cfg.Cache,
		processor:          cfg.Processor,
		startOnDemand:      cfg.StartOnDemand,
		defaultMaxAttempts: cfg.DefaultMaxAttempts,
	}
}

// CreateJobInput carries the enqueue contract fields.
type CreateJobInput struct {
	Title              string
	Body               string
	Icon               string
	Badge              string
	Image              string
	Tag                string
	Data               json.RawMessage
	Actions            json.RawMessage
	RequireInteraction bool
	Silent             bool
	Vibrate            json.RawMessage
	Recipients         []string
	Broadcast          bool
	ScheduledAt        time.Time
	CreatedBy          string
	MaxAttempts        int
}

// CreateJob validates targeting, applies defaults, persists the job in
// pending state and wakes the processor when start-on-demand is enabled.
func (s *Service) CreateJob(ctx context.Context, input CreateJobInput) (*domain.Job, error) {
	if err := domain.ValidateTargeting(input.Recipients, input.Broadcast); err != nil {
		return nil, err
	}

	maxAttempts := input.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.defaultMaxAttempts
	}

	now := time.Now()
	scheduledAt := input.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = now
	}

	job := &domain.Job{
		JobID:              domain.NewJobID(),
		Title:              input.Title,
		Body:               input.Body,
		Icon:               input.Icon,
		Badge:              input.Badge,
		Image:              input.Image,
		Tag:                input.Tag,
		Data:               input.Data,
		Actions:            input.Actions,
		RequireInteraction: input.RequireInteraction,
		Silent:             input.Silent,
		Vibrate:            input.Vibrate,
		Recipients:         input.Recipients,
		Broadcast:          input.Broadcast,
		ScheduledAt:        scheduledAt,
		CreatedAt:          now,
		CreatedBy:          input.CreatedBy,
		MaxAttempts:        maxAttempts,
		Status:             domain.StatusPending,
		UpdatedAt:          now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.cache != nil {
		s.cache.SetStatus(ctx, job.JobID, job.Status)
	}

	if s.startOnDemand && !s.processor.Running() {
		s.logger.Info("Waking notification processor for new job",
			slog.String("job_id", job.JobID),
		)
		s.processor.Start()
	}

	return job, nil
}

// GetJob retrieves a job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.store.GetJobByID(ctx, jobID)
}

// GetJobStatus returns a job's status, served from the cache when possible.
// Staleness is bounded by the cache TTL.
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (string, error) {
	if s.cache != nil {
		if status := s.cache.GetStatus(ctx, jobID); status != "" {
			return status, nil
		}
	}

	job, err := s.store.GetJobByID(ctx, jobID)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		s.cache.SetStatus(ctx, jobID, job.Status)
	}

	return job.Status, nil
}

// CancelJob transitions a pending or processing job to cancelled.
// Distinguishes a missing job from one already terminal.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	changed, err := s.store.CancelJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}

	if !changed {
		if _, err := s.store.GetJobByID(ctx, jobID); err != nil {
			return err
		}
		return domain.ErrJobTerminal
	}

	if s.cache != nil {
		s.cache.SetStatus(ctx, jobID, domain.StatusCancelled)
	}

	s.logger.Info("Job cancelled",
		slog.String("job_id", jobID),
	)

	return nil
}

// GetStats returns job counts by status.
func (s *Service) GetStats(ctx context.Context) (*storage.Stats, error) {
	return s.store.GetStats(ctx)
}

// ListJobs returns one page of jobs plus the total match count.
func (s *Service) ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, int64, error) {
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("unknown status filter: %q", filter.Status)
	}
	return s.store.ListJobs(ctx, filter)
}

// Cleanup runs a manual retention sweep. The retention window is validated
// before the store is touched.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if err := domain.ValidateRetention(retentionDays); err != nil {
		return 0, err
	}
	return s.store.Cleanup(ctx, retentionDays)
}

// ProcessorStatus reports the processor's run state.
func (s *Service) ProcessorStatus() scheduler.Status {
	return s.processor.GetStatus()
}
