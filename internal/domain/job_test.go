package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{name: "pending to processing", from: StatusPending, to: StatusProcessing, want: true},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled, want: true},
		{name: "pending to completed", from: StatusPending, to: StatusCompleted, want: false},
		{name: "processing to completed", from: StatusProcessing, to: StatusCompleted, want: true},
		{name: "processing to failed", from: StatusProcessing, to: StatusFailed, want: true},
		{name: "processing back to pending (retry)", from: StatusProcessing, to: StatusPending, want: true},
		{name: "processing to cancelled", from: StatusProcessing, to: StatusCancelled, want: true},
		{name: "completed is terminal", from: StatusCompleted, to: StatusPending, want: false},
		{name: "failed is terminal", from: StatusFailed, to: StatusPending, want: false},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusProcessing, want: false},
		{name: "cancelled stays cancelled", from: StatusCancelled, to: StatusCancelled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestNextStatusOnFailure(t *testing.T) {
	tests := []struct {
		name        string
		attempts    int
		maxAttempts int
		want        string
	}{
		{name: "budget remains", attempts: 1, maxAttempts: 3, want: StatusPending},
		{name: "one attempt left", attempts: 2, maxAttempts: 3, want: StatusPending},
		{name: "budget exhausted", attempts: 3, maxAttempts: 3, want: StatusFailed},
		{name: "over budget", attempts: 4, maxAttempts: 3, want: StatusFailed},
		{name: "single attempt budget", attempts: 1, maxAttempts: 1, want: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatusOnFailure(tt.attempts, tt.maxAttempts))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusProcessing))
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusFailed))
	assert.True(t, IsTerminal(StatusCancelled))
}

func TestJobEligible(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		job  Job
		want bool
	}{
		{
			name: "due pending job",
			job:  Job{Status: StatusPending, ScheduledAt: now.Add(-time.Minute), Attempts: 0, MaxAttempts: 3},
			want: true,
		},
		{
			name: "scheduled exactly now",
			job:  Job{Status: StatusPending, ScheduledAt: now, Attempts: 0, MaxAttempts: 3},
			want: true,
		},
		{
			name: "future job is not eligible",
			job:  Job{Status: StatusPending, ScheduledAt: now.Add(time.Hour), Attempts: 0, MaxAttempts: 3},
			want: false,
		},
		{
			name: "processing job is not eligible",
			job:  Job{Status: StatusProcessing, ScheduledAt: now.Add(-time.Minute), Attempts: 1, MaxAttempts: 3},
			want: false,
		},
		{
			name: "exhausted budget is not eligible",
			job:  Job{Status: StatusPending, ScheduledAt: now.Add(-time.Minute), Attempts: 3, MaxAttempts: 3},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.Eligible(now))
		})
	}
}

func TestValidateRetention(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		wantErr bool
	}{
		{name: "one day", days: 1, wantErr: false},
		{name: "thirty days", days: 30, wantErr: false},
		{name: "max", days: MaxRetentionDays, wantErr: false},
		{name: "zero", days: 0, wantErr: true},
		{name: "negative", days: -1, wantErr: true},
		{name: "absurdly large", days: MaxRetentionDays + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRetention(tt.days)
			if tt.wantErr {
				require.Error(t, err)
				var re *RetentionError
				assert.ErrorAs(t, err, &re)
				assert.Equal(t, tt.days, re.Days)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateTargeting(t *testing.T) {
	assert.NoError(t, ValidateTargeting([]string{"user-1"}, false))
	assert.NoError(t, ValidateTargeting(nil, true))
	assert.ErrorIs(t, ValidateTargeting(nil, false), ErrNoTarget)
	assert.ErrorIs(t, ValidateTargeting([]string{"user-1"}, true), ErrAmbiguousTarget)
}

func TestNewJobID(t *testing.T) {
	a := NewJobID()
	b := NewJobID()
	require.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
