package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedesk/notifyq/internal/domain"
	"github.com/pulsedesk/notifyq/shared/logger"
)

func TestJanitorSweepsTerminalJobs(t *testing.T) {
	store := newMemStore()

	old := time.Now().AddDate(0, 0, -60)
	recent := time.Now().Add(-time.Hour)

	store.add(&domain.Job{JobID: "old-completed", Status: domain.StatusCompleted, ProcessedAt: &old})
	store.add(&domain.Job{JobID: "old-failed", Status: domain.StatusFailed, ProcessedAt: &old})
	store.add(&domain.Job{JobID: "old-cancelled", Status: domain.StatusCancelled, ProcessedAt: &old})
	store.add(&domain.Job{JobID: "recent-completed", Status: domain.StatusCompleted, ProcessedAt: &recent})
	// Pending and processing rows are never deleted, no matter how old.
	store.add(&domain.Job{JobID: "old-pending", Status: domain.StatusPending, ScheduledAt: old})
	store.add(&domain.Job{JobID: "old-processing", Status: domain.StatusProcessing, ScheduledAt: old, Attempts: 1})

	j := NewJanitor(logger.NewDefault().Logger, store, time.Hour, 30)
	j.Start()
	defer j.Stop()

	require.Eventually(t, func() bool {
		return store.get("old-completed") == nil
	}, 2*time.Second, 5*time.Millisecond)

	assert.Nil(t, store.get("old-failed"))
	assert.Nil(t, store.get("old-cancelled"))
	assert.NotNil(t, store.get("recent-completed"))
	assert.NotNil(t, store.get("old-pending"))
	assert.NotNil(t, store.get("old-processing"))
}

func TestJanitorStartStopIdempotent(t *testing.T) {
	store := newMemStore()
	j := NewJanitor(logger.NewDefault().Logger, store, time.Hour, 30)

	j.Start()
	j.Start()
	j.Stop()
	j.Stop()
}

func TestCleanupRejectsInvalidRetention(t *testing.T) {
	store := newMemStore()

	old := time.Now().AddDate(0, 0, -60)
	store.add(&domain.Job{JobID: "old-completed", Status: domain.StatusCompleted, ProcessedAt: &old})

	deleted, err := store.Cleanup(t.Context(), -1)
	require.Error(t, err)

	var re *domain.RetentionError
	assert.ErrorAs(t, err, &re)
	assert.Zero(t, deleted)
	assert.NotNil(t, store.get("old-completed"), "nothing may be deleted on invalid input")
}
