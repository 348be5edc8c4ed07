package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// DefaultMaxAttempts is the retry budget applied when the caller does not set one.
const DefaultMaxAttempts = 3

// Action is a single interaction option attached to a notification.
// Interpreted only by the delivery gateway.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Job is a single scheduled notification-delivery unit with its own retry budget.
// The payload fields below the targeting block are opaque to the scheduler.
type Job struct {
	JobID string `db:"job_id" json:"job_id"`

	Title string `db:"title" json:"title"`
	Body  string `db:"body" json:"body"`

	Icon               string          `db:"icon" json:"icon,omitempty"`
	Badge              string          `db:"badge" json:"badge,omitempty"`
	Image              string          `db:"image" json:"image,omitempty"`
	Tag                string          `db:"tag" json:"tag,omitempty"`
	Data               json.RawMessage `db:"data" json:"data,omitempty"`
	Actions            json.RawMessage `db:"actions" json:"actions,omitempty"`
	RequireInteraction bool            `db:"require_interaction" json:"require_interaction,omitempty"`
	Silent             bool            `db:"silent" json:"silent,omitempty"`
	Vibrate            json.RawMessage `db:"vibrate" json:"vibrate,omitempty"`

	// Exactly one targeting mode is populated: a recipient list or broadcast.
	Recipients pq.StringArray `db:"recipients" json:"recipients,omitempty"`
	Broadcast  bool           `db:"broadcast" json:"broadcast,omitempty"`

	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	CreatedBy   string    `db:"created_by" json:"created_by"`

	Attempts    int        `db:"attempts" json:"attempts"`
	MaxAttempts int        `db:"max_attempts" json:"max_attempts"`
	Status      string     `db:"status" json:"status"`
	LastError   *string    `db:"last_error" json:"last_error,omitempty"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// NewJobID generates a globally unique job identifier.
func NewJobID() string {
	return uuid.New().String()
}

// IsTerminal reports whether a status permits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known job status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle state machine permits
// moving a job from one status to another. Cancellation is the only
// transition reachable from two states.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusPending || to == StatusCancelled
	default:
		// completed, failed, cancelled: terminal
		return false
	}
}

// NextStatusOnFailure applies the fixed-budget retry rule: a failed delivery
// returns the job to pending while budget remains, otherwise it fails
// permanently. Attempts is the value after the markProcessing increment.
func NextStatusOnFailure(attempts, maxAttempts int) string {
	if attempts >= maxAttempts {
		return StatusFailed
	}
	return StatusPending
}

// Eligible reports whether a job may be claimed for processing at the given
// instant.
func (j *Job) Eligible(now time.Time) bool {
	return j.Status == StatusPending && !j.ScheduledAt.After(now) && j.Attempts < j.MaxAttempts
}
