package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulsedesk/notifyq/internal/domain"
)

// memStore mirrors the Postgres store's conditional-write semantics in
// memory so processor and janitor behavior can be tested deterministically.
type memStore struct {
	mu   sync.Mutex
	now  func() time.Time
	jobs map[string]*domain.Job
}

func newMemStore() *memStore {
	return &memStore{
		now:  time.Now,
		jobs: make(map[string]*domain.Job),
	}
}

func (s *memStore) add(job *domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.JobID == "" {
		job.JobID = domain.NewJobID()
	}
	if job.Status == "" {
		job.Status = domain.StatusPending
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = domain.DefaultMaxAttempts
	}
	s.jobs[job.JobID] = job
}

func (s *memStore) get(jobID string) *domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j, ok := s.jobs[jobID]; ok {
		copied := *j
		return &copied
	}
	return nil
}

func (s *memStore) ClaimReady(_ context.Context, limit int) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var ready []domain.Job
	for _, j := range s.jobs {
		if j.Eligible(now) {
			ready = append(ready, *j)
		}
	}

	sort.Slice(ready, func(a, b int) bool {
		if !ready[a].ScheduledAt.Equal(ready[b].ScheduledAt) {
			return ready[a].ScheduledAt.Before(ready[b].ScheduledAt)
		}
		return ready[a].JobID < ready[b].JobID
	})

	if len(ready) > limit {
		ready = ready[:limit]
	}
	return ready, nil
}

func (s *memStore) MarkProcessing(_ context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.StatusPending {
		return false, nil
	}
	j.Status = domain.StatusProcessing
	j.Attempts++
	return true, nil
}

func (s *memStore) MarkCompleted(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.StatusProcessing {
		return nil
	}
	j.Status = domain.StatusCompleted
	now := s.now()
	j.ProcessedAt = &now
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, jobID, errorMsg string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.StatusProcessing {
		return "", nil
	}
	j.LastError = &errorMsg
	j.Status = domain.NextStatusOnFailure(j.Attempts, j.MaxAttempts)
	if j.Status == domain.StatusFailed {
		now := s.now()
		j.ProcessedAt = &now
	}
	return j.Status, nil
}

func (s *memStore) CancelJob(_ context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok || domain.IsTerminal(j.Status) {
		return false, nil
	}
	j.Status = domain.StatusCancelled
	now := s.now()
	j.ProcessedAt = &now
	return true, nil
}

func (s *memStore) Cleanup(_ context.Context, retentionDays int) (int64, error) {
	if err := domain.ValidateRetention(retentionDays); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	var deleted int64
	for id, j := range s.jobs {
		if domain.IsTerminal(j.Status) && j.ProcessedAt != nil && j.ProcessedAt.Before(cutoff) {
			delete(s.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

// hookStore wraps memStore so tests can inject behavior between the claim
// and mark-processing steps, or fail calls outright.
type hookStore struct {
	*memStore
	afterClaim    func(jobs []domain.Job)
	claimFailures int
}

func (s *hookStore) ClaimReady(ctx context.Context, limit int) ([]domain.Job, error) {
	if s.claimFailures > 0 {
		s.claimFailures--
		return nil, context.DeadlineExceeded
	}

	jobs, err := s.memStore.ClaimReady(ctx, limit)
	if err == nil && s.afterClaim != nil {
		s.afterClaim(jobs)
	}
	return jobs, err
}

// fakeDeliverer records delivery attempts and fails per-job on demand.
type fakeDeliverer struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
	block   chan struct{}
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{failFor: make(map[string]error)}
}

func (d *fakeDeliverer) Deliver(_ context.Context, job *domain.Job) error {
	if d.block != nil {
		<-d.block
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, job.JobID)
	if err, ok := d.failFor[job.JobID]; ok {
		return err
	}
	return nil
}

func (d *fakeDeliverer) deliveries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}
