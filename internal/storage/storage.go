package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulsedesk/notifyq/internal/domain"
	"github.com/pulsedesk/notifyq/shared/postgresql"
)

const jobColumns = `
	job_id, title, body, icon, badge, image, tag, data, actions,
	require_interaction, silent, vibrate, recipients, broadcast,
	scheduled_at, created_at, created_by, attempts, max_attempts,
	status, last_error, processed_at, updated_at`

// Storage handles all database operations for notification jobs
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// EnsureSchema creates the notification_jobs table and its indexes when they
// do not exist yet. Safe to call on every startup.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notification_jobs (
		job_id              TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		body                TEXT NOT NULL,
		icon                TEXT NOT NULL DEFAULT '',
		badge               TEXT NOT NULL DEFAULT '',
		image               TEXT NOT NULL DEFAULT '',
		tag                 TEXT NOT NULL DEFAULT '',
		data                JSONB,
		actions             JSONB,
		require_interaction BOOLEAN NOT NULL DEFAULT FALSE,
		silent              BOOLEAN NOT NULL DEFAULT FALSE,
		vibrate             JSONB,
		recipients          TEXT[] NOT NULL DEFAULT '{}',
		broadcast           BOOLEAN NOT NULL DEFAULT FALSE,
		scheduled_at        TIMESTAMPTZ NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by          TEXT NOT NULL,
		attempts            INTEGER NOT NULL DEFAULT 0,
		max_attempts        INTEGER NOT NULL DEFAULT 3,
		status              TEXT NOT NULL DEFAULT 'pending',
		last_error          TEXT,
		processed_at        TIMESTAMPTZ,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_notification_jobs_claim
		ON notification_jobs (status, scheduled_at);
	CREATE INDEX IF NOT EXISTS idx_notification_jobs_created_by
		ON notification_jobs (created_by, created_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// CreateJob persists a new job in pending state with zero attempts.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO notification_jobs (
			job_id, title, body, icon, badge, image, tag, data, actions,
			require_interaction, silent, vibrate, recipients, broadcast,
			scheduled_at, created_at, created_by, attempts, max_attempts,
			status, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, 0, $18,
			$19, $16
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Title,
		job.Body,
		job.Icon,
		job.Badge,
		job.Image,
		job.Tag,
		job.Data,
		job.Actions,
		job.RequireInteraction,
		job.Silent,
		job.Vibrate,
		job.Recipients,
		job.Broadcast,
		job.ScheduledAt,
		job.CreatedAt,
		job.CreatedBy,
		job.MaxAttempts,
		job.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a job by its ID.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM notification_jobs WHERE job_id = $1`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ClaimReady returns up to limit jobs eligible for processing, oldest-due
// first with ties broken by job id so the result is deterministic. Claimed
// rows are not marked processing here; MarkProcessing is the separate,
// conditional step.
func (s *Storage) ClaimReady(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM notification_jobs
		WHERE status = $1
		  AND scheduled_at <= NOW()
		  AND attempts < max_attempts
		ORDER BY scheduled_at ASC, job_id ASC
		LIMIT $2
	`

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, domain.StatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to claim ready jobs: %w", err)
	}

	return jobs, nil
}

// MarkProcessing moves a pending job to processing and consumes one attempt.
// The increment happens before delivery so a crash mid-delivery still counts
// against the retry budget. Returns false when the row was not pending
// anymore (cancelled, or taken by another processor).
func (s *Storage) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE notification_jobs
		SET status = $1,
		    attempts = attempts + 1,
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.StatusProcessing, jobID, domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark job processing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// MarkCompleted finishes a processing job successfully. The write is
// conditional on the processing status so a concurrent cancellation is never
// overwritten.
func (s *Storage) MarkCompleted(ctx context.Context, jobID string) error {
	query := `
		UPDATE notification_jobs
		SET status = $1,
		    processed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.StatusCompleted, jobID, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		s.logger.Warn("Completed delivery for a job no longer processing",
			slog.String("job_id", jobID),
		)
	}

	return nil
}

// MarkFailed records a delivery failure. The job returns to pending while
// retry budget remains, otherwise it fails permanently and processed_at is
// set. Conditional on the processing status for the same reason as
// MarkCompleted. Returns the resulting status.
func (s *Storage) MarkFailed(ctx context.Context, jobID, errorMsg string) (string, error) {
	query := `
		UPDATE notification_jobs
		SET last_error = $1,
		    status = CASE WHEN attempts >= max_attempts THEN $2 ELSE $3 END,
		    processed_at = CASE WHEN attempts >= max_attempts THEN NOW() ELSE processed_at END,
		    updated_at = NOW()
		WHERE job_id = $4
		  AND status = $5
		RETURNING status
	`

	var status string
	err := s.db.QueryRowContext(ctx, query, errorMsg, domain.StatusFailed, domain.StatusPending, jobID, domain.StatusProcessing).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed delivery for a job no longer processing",
				slog.String("job_id", jobID),
			)
			return "", nil
		}
		return "", fmt.Errorf("failed to mark job failed: %w", err)
	}

	return status, nil
}

// CancelJob transitions a pending or processing job to cancelled. Returns
// false when the job was already terminal; a delivery attempt in flight for
// the job is not interrupted, its eventual status write will find the row no
// longer processing and leave it cancelled.
func (s *Storage) CancelJob(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE notification_jobs
		SET status = $1,
		    processed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $2
		  AND status IN ($3, $4)
	`

	result, err := s.db.ExecContext(ctx, query, domain.StatusCancelled, jobID, domain.StatusPending, domain.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("failed to cancel job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Stats holds job counts grouped by status.
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
	Total      int64 `json:"total"`
}

// GetStats returns job counts by status.
func (s *Storage) GetStats(ctx context.Context) (*Stats, error) {
	query := `SELECT status, COUNT(*) AS count FROM notification_jobs GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}

		switch status {
		case domain.StatusPending:
			stats.Pending = count
		case domain.StatusProcessing:
			stats.Processing = count
		case domain.StatusCompleted:
			stats.Completed = count
		case domain.StatusFailed:
			stats.Failed = count
		case domain.StatusCancelled:
			stats.Cancelled = count
		}
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stats rows: %w", err)
	}

	return &stats, nil
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	Status    string
	CreatedBy string
	PageSize  int
	Cursor    *JobCursor
}

// JobCursor marks the position after the last returned row, newest first.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns one page of jobs matching the filter (newest first) plus
// the total match count. One extra row beyond PageSize is fetched so the
// caller can tell whether more pages exist.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, int64, error) {
	query := `SELECT ` + jobColumns + ` FROM notification_jobs WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM notification_jobs WHERE 1=1`

	args := []interface{}{}
	countArgs := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		clause := fmt.Sprintf(" AND status = $%d", argIdx)
		query += clause
		countQuery += clause
		args = append(args, filter.Status)
		countArgs = append(countArgs, filter.Status)
		argIdx++
	}

	if filter.CreatedBy != "" {
		clause := fmt.Sprintf(" AND created_by = $%d", argIdx)
		query += clause
		countQuery += clause
		args = append(args, filter.CreatedBy)
		countArgs = append(countArgs, filter.CreatedBy)
		argIdx++
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, total, nil
}

// Cleanup deletes terminal jobs whose processed_at is older than the
// retention window. The retention value is validated before any query runs;
// pending and processing rows are never touched.
func (s *Storage) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if err := domain.ValidateRetention(retentionDays); err != nil {
		return 0, err
	}

	query := `
		DELETE FROM notification_jobs
		WHERE status IN ($1, $2, $3)
		  AND processed_at < NOW() - ($4 * INTERVAL '1 day')
	`

	result, err := s.db.ExecContext(ctx, query, domain.StatusCompleted, domain.StatusFailed, domain.StatusCancelled, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up jobs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		s.logger.Info("Deleted expired terminal jobs",
			slog.Int64("deleted", deleted),
			slog.Int("retention_days", retentionDays),
		)
	}

	return deleted, nil
}
