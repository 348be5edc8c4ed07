package dto

import "encoding/json"

// CreateNotificationRequest is the enqueue contract.
type CreateNotificationRequest struct {
	Title              string          `json:"title" binding:"required"`
	Body               string          `json:"body" binding:"required"`
	Icon               string          `json:"icon"`
	Badge              string          `json:"badge"`
	Image              string          `json:"image"`
	Tag                string          `json:"tag"`
	Data               json.RawMessage `json:"data"`
	Actions            json.RawMessage `json:"actions"`
	RequireInteraction bool            `json:"require_interaction"`
	Silent             bool            `json:"silent"`
	Vibrate            json.RawMessage `json:"vibrate"`
	Recipients         []string        `json:"recipients"`
	Broadcast          bool            `json:"broadcast"`
	ScheduledAt        string          `json:"scheduled_at"`
	CreatedBy          string          `json:"created_by" binding:"required"`
	MaxAttempts        int             `json:"max_attempts"`
}

// ListNotificationsRequest carries list filters and pagination.
type ListNotificationsRequest struct {
	Status    string `form:"status"`
	CreatedBy string `form:"created_by"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

// ListNotificationsResponse is one page of jobs plus the total match count.
type ListNotificationsResponse struct {
	Jobs       []NotificationDTO `json:"jobs"`
	TotalCount int64             `json:"total_count"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// NotificationDTO is the wire representation of a job.
type NotificationDTO struct {
	JobID              string          `json:"job_id"`
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Icon               string          `json:"icon,omitempty"`
	Badge              string          `json:"badge,omitempty"`
	Image              string          `json:"image,omitempty"`
	Tag                string          `json:"tag,omitempty"`
	Data               json.RawMessage `json:"data,omitempty"`
	Actions            json.RawMessage `json:"actions,omitempty"`
	RequireInteraction bool            `json:"require_interaction,omitempty"`
	Silent             bool            `json:"silent,omitempty"`
	Vibrate            json.RawMessage `json:"vibrate,omitempty"`
	Recipients         []string        `json:"recipients,omitempty"`
	Broadcast          bool            `json:"broadcast,omitempty"`
	ScheduledAt        string          `json:"scheduled_at"`
	CreatedAt          string          `json:"created_at"`
	CreatedBy          string          `json:"created_by"`
	Attempts           int             `json:"attempts"`
	MaxAttempts        int             `json:"max_attempts"`
	Status             string          `json:"status"`
	LastError          string          `json:"last_error,omitempty"`
	ProcessedAt        string          `json:"processed_at,omitempty"`
}

// CleanupRequest is the manual retention-sweep contract.
type CleanupRequest struct {
	RetentionDays int `json:"retention_days" binding:"required"`
}

// CleanupResponse reports how many rows a sweep removed.
type CleanupResponse struct {
	Deleted       int64 `json:"deleted"`
	RetentionDays int   `json:"retention_days"`
}
