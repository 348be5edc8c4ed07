package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsedesk/notifyq/internal/api/dto"
	"github.com/pulsedesk/notifyq/internal/domain"
	"github.com/pulsedesk/notifyq/internal/service"
	"github.com/pulsedesk/notifyq/internal/storage"
)

// CreateNotification handles POST /api/v1/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req dto.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	var scheduledAt time.Time
	if req.ScheduledAt != "" {
		var err error
		scheduledAt, err = time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "scheduled_at must be RFC3339",
			})
			return
		}
	}

	job, err := h.service.CreateJob(c.Request.Context(), service.CreateJobInput{
		Title:              req.Title,
		Body:               req.Body,
		Icon:               req.Icon,
		Badge:              req.Badge,
		Image:              req.Image,
		Tag:                req.Tag,
		Data:               req.Data,
		Actions:            req.Actions,
		RequireInteraction: req.RequireInteraction,
		Silent:             req.Silent,
		Vibrate:            req.Vibrate,
		Recipients:         req.Recipients,
		Broadcast:          req.Broadcast,
		ScheduledAt:        scheduledAt,
		CreatedBy:          req.CreatedBy,
		MaxAttempts:        req.MaxAttempts,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoTarget) || errors.Is(err, domain.ErrAmbiguousTarget) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create notification job",
		})
		return
	}

	h.logger.Info("Notification job created",
		slog.String("job_id", job.JobID),
		slog.String("created_by", job.CreatedBy),
		slog.Time("scheduled_at", job.ScheduledAt),
	)

	c.JSON(http.StatusCreated, jobToDTO(job))
}

// GetNotification handles GET /api/v1/notifications/:job_id
func (h *NotificationHandler) GetNotification(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.service.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get notification job",
		})
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// GetNotificationStatus handles GET /api/v1/notifications/:job_id/status
func (h *NotificationHandler) GetNotificationStatus(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	status, err := h.service.GetJobStatus(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification job not found"})
			return
		}
		h.logger.Error("Failed to get job status", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get notification job status",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": status,
	})
}

// ListNotifications handles GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	jobs, total, err := h.service.ListJobs(c.Request.Context(), storage.JobFilter{
		Status:    req.Status,
		CreatedBy: req.CreatedBy,
		PageSize:  req.PageSize,
		Cursor:    cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list notification jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	resp := dto.ListNotificationsResponse{
		Jobs:       make([]dto.NotificationDTO, len(jobs)),
		TotalCount: total,
	}
	for i := range jobs {
		resp.Jobs[i] = jobToDTO(&jobs[i])
	}

	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// CancelNotification handles POST /api/v1/notifications/:job_id/cancel
func (h *NotificationHandler) CancelNotification(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	err := h.service.CancelJob(c.Request.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification job not found"})
		case errors.Is(err, domain.ErrJobTerminal):
			c.JSON(http.StatusConflict, gin.H{"error": "Notification job is already in a terminal status"})
		default:
			h.logger.Error("Failed to cancel job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to cancel notification job",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"status": domain.StatusCancelled,
	})
}

// GetStats handles GET /api/v1/notifications/stats
func (h *NotificationHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetSchedulerStatus handles GET /api/v1/scheduler/status
func (h *NotificationHandler) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ProcessorStatus())
}

// Cleanup handles POST /api/v1/maintenance/cleanup
func (h *NotificationHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "retention_days is required",
		})
		return
	}

	deleted, err := h.service.Cleanup(c.Request.Context(), req.RetentionDays)
	if err != nil {
		var re *domain.RetentionError
		if errors.As(err, &re) {
			c.JSON(http.StatusBadRequest, gin.H{"error": re.Error()})
			return
		}
		h.logger.Error("Cleanup failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Cleanup failed",
		})
		return
	}

	c.JSON(http.StatusOK, dto.CleanupResponse{
		Deleted:       deleted,
		RetentionDays: req.RetentionDays,
	})
}

// jobIDParam validates the job_id path parameter.
func (h *NotificationHandler) jobIDParam(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return "", false
	}
	return jobID, true
}

func jobToDTO(job *domain.Job) dto.NotificationDTO {
	d := dto.NotificationDTO{
		JobID:              job.JobID,
		Title:              job.Title,
		Body:               job.Body,
		Icon:               job.Icon,
		Badge:              job.Badge,
		Image:              job.Image,
		Tag:                job.Tag,
		Data:               job.Data,
		Actions:            job.Actions,
		RequireInteraction: job.RequireInteraction,
		Silent:             job.Silent,
		Vibrate:            job.Vibrate,
		Recipients:         job.Recipients,
		Broadcast:          job.Broadcast,
		ScheduledAt:        job.ScheduledAt.Format(time.RFC3339),
		CreatedAt:          job.CreatedAt.Format(time.RFC3339),
		CreatedBy:          job.CreatedBy,
		Attempts:           job.Attempts,
		MaxAttempts:        job.MaxAttempts,
		Status:             job.Status,
	}

	if job.LastError != nil {
		d.LastError = *job.LastError
	}
	if job.ProcessedAt != nil {
		d.ProcessedAt = job.ProcessedAt.Format(time.RFC3339)
	}

	return d
}
