package handler

import (
	"context"
	"log/slog"

	"github.com/pulsedesk/notifyq/internal/domain"
	"github.com/pulsedesk/notifyq/internal/scheduler"
	"github.com/pulsedesk/notifyq/internal/service"
	"github.com/pulsedesk/notifyq/internal/storage"
)

// NotificationService is the service surface the handlers consume.
// Implemented by service.Service.
type NotificationService interface {
	CreateJob(ctx context.Context, input service.CreateJobInput) (*domain.Job, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	GetJobStatus(ctx context.Context, jobID string) (string, error)
	CancelJob(ctx context.Context, jobID string) error
	GetStats(ctx context.Context) (*storage.Stats, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, int64, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
	ProcessorStatus() scheduler.Status
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Service NotificationService
}

// NotificationHandler handles notification-job HTTP requests
type NotificationHandler struct {
	logger  *slog.Logger
	service NotificationService
}

// NewNotificationHandler creates a new NotificationHandler instance
func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}
