// Package jobstore keeps scraping jobs in process memory. Jobs are
// transient bookkeeping; articles are the durable output.
package jobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

const defaultRetainPerUser = 20

// Memory is a mutex-guarded in-memory ports.JobStore. All reads hand out
// deep copies, so callers never observe concurrent mutation.
type Memory struct {
	mu     sync.Mutex
	jobs   map[string]*domain.ScrapingJob
	byUser map[string][]string
	retain int
}

var _ ports.JobStore = (*Memory)(nil)

// NewMemory builds an empty store retaining at most retainPerUser
// terminal jobs per user.
func NewMemory(retainPerUser int) *Memory {
	if retainPerUser <= 0 {
		retainPerUser = defaultRetainPerUser
	}
	return &Memory{
		jobs:   make(map[string]*domain.ScrapingJob),
		byUser: make(map[string][]string),
		retain: retainPerUser,
	}
}

// Create registers a new pending job. It fails with domain.ErrJobConflict
// while the user still has an active job; the check and the insert happen
// under one lock, so two concurrent submissions cannot both win.
func (m *Memory) Create(_ context.Context, job *domain.ScrapingJob) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("create job: missing id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("create job: id %s already used", job.ID)
	}
	for _, id := range m.byUser[job.UserID] {
		if m.jobs[id].Status.Active() {
			return domain.ErrJobConflict
		}
	}

	stored := job.Clone()
	if stored.Status == "" {
		stored.Status = domain.JobPending
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.Total == 0 {
		stored.Total = len(stored.URLs)
	}

	m.jobs[stored.ID] = &stored
	m.byUser[stored.UserID] = append(m.byUser[stored.UserID], stored.ID)
	return nil
}

// Get returns a snapshot of one job.
func (m *Memory) Get(_ context.Context, jobID string) (domain.ScrapingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ScrapingJob{}, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// ListByUser returns the user's jobs newest first.
func (m *Memory) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.ScrapingJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.byUser[userID]
	out := make([]domain.ScrapingJob, 0, len(ids))
	skipped := 0
	for i := len(ids) - 1; i >= 0; i-- {
		if skipped < offset {
			skipped++
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.jobs[ids[i]].Clone())
	}
	return out, nil
}

// Start moves a pending job to running and stamps StartedAt.
func (m *Memory) Start(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if err := transition(job, domain.JobRunning); err != nil {
		return err
	}
	now := time.Now()
	job.StartedAt = &now
	return nil
}

// RecordOutcome folds one settled URL into a running job. Outcomes that
// arrive after the job reached a terminal state are rejected, keeping
// terminal snapshots immutable.
func (m *Memory) RecordOutcome(_ context.Context, jobID string, outcome domain.URLOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.JobRunning {
		return fmt.Errorf("job %s is %s, outcome for %s dropped", jobID, job.Status, outcome.URL)
	}
	job.Apply(outcome)
	return nil
}

// Complete moves a running job to completed.
func (m *Memory) Complete(_ context.Context, jobID string) error {
	return m.finish(jobID, domain.JobCompleted, "")
}

// Fail moves a pending or running job to failed with the given reason.
func (m *Memory) Fail(_ context.Context, jobID string, reason string) error {
	return m.finish(jobID, domain.JobFailed, reason)
}

// Cancel moves an active job owned by userID to cancelled. It reports
// false without error when the job is already terminal.
func (m *Memory) Cancel(_ context.Context, jobID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.UserID != userID {
		return false, domain.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return false, nil
	}
	if err := transition(job, domain.JobCancelled); err != nil {
		return false, err
	}
	now := time.Now()
	job.CompletedAt = &now
	job.Error = "User cancelled"
	m.evict(job.UserID)
	return true, nil
}

// Delete removes a terminal job owned by userID.
func (m *Memory) Delete(_ context.Context, jobID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.UserID != userID {
		return domain.ErrJobNotFound
	}
	if !job.Status.Terminal() {
		return domain.ErrJobActive
	}
	m.remove(jobID, job.UserID)
	return nil
}

func (m *Memory) finish(jobID string, to domain.JobStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if err := transition(job, to); err != nil {
		return err
	}
	now := time.Now()
	job.CompletedAt = &now
	if reason != "" {
		job.Error = reason
	}
	m.evict(job.UserID)
	return nil
}

func transition(job *domain.ScrapingJob, to domain.JobStatus) error {
	if !domain.CanTransition(job.Status, to) {
		return fmt.Errorf("job %s: cannot move %s to %s", job.ID, job.Status, to)
	}
	job.Status = to
	return nil
}

// evict drops the oldest terminal jobs beyond the per-user retention cap.
// Callers hold m.mu.
func (m *Memory) evict(userID string) {
	var terminal []string
	for _, id := range m.byUser[userID] {
		if m.jobs[id].Status.Terminal() {
			terminal = append(terminal, id)
		}
	}
	for i := 0; i < len(terminal)-m.retain; i++ {
		m.remove(terminal[i], userID)
	}
}

// remove unlinks one job. Callers hold m.mu.
func (m *Memory) remove(jobID, userID string) {
	delete(m.jobs, jobID)
	ids := m.byUser[userID]
	for i, id := range ids {
		if id == jobID {
			m.byUser[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byUser[userID]) == 0 {
		delete(m.byUser, userID)
	}
}
