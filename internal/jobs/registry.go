// Package jobs keeps bulk-edit jobs in process memory and runs them on a
// bounded worker pool.
//
// The registry is single-process. Running more than one API replica needs a
// shared store that keeps the per-user offer claim check atomic.
package jobs

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"offersync/internal/domain"
)

// DefaultRetention is how long a job stays queryable after creation.
const DefaultRetention = 24 * time.Hour

// Registry owns every Job. Only the batch processor running a job mutates it.
type Registry struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	retention time.Duration
	now       func() time.Time
}

// NewRegistry returns an empty registry. A non-positive retention uses DefaultRetention.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Registry{
		jobs:      make(map[string]*domain.Job),
		retention: retention,
		now:       time.Now,
	}
}

// Create registers a pending job after checking that none of the offers is
// claimed by another live job of the same user.
func (r *Registry) Create(userID string, offerIDs []string) (*domain.Job, error) {
	ids := NormalizeOfferIDs(offerIDs)
	if strings.TrimSpace(userID) == "" {
		return nil, &domain.ValidationError{Field: "userId", Reason: "required"}
	}
	if len(ids) == 0 {
		return nil, &domain.ValidationError{Field: "offerIds", Reason: "at least one offer id is required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := make(map[string]struct{})
	for _, job := range r.jobs {
		if job.UserID != userID || !job.Status.Live() {
			continue
		}
		for _, id := range job.OfferIDs {
			claimed[id] = struct{}{}
		}
	}
	var conflicts []string
	for _, id := range ids {
		if _, ok := claimed[id]; ok {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return nil, &domain.ConflictError{IDs: conflicts}
	}

	now := r.now()
	job := &domain.Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		OfferIDs:  ids,
		Status:    domain.JobStatusPending,
		Total:     len(ids),
		Details:   make([]domain.ItemResult, 0, len(ids)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.jobs[job.ID] = job
	return job.Clone(), nil
}

// Get returns a snapshot of the job if the caller owns it.
func (r *Registry) Get(jobID, userID string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return job.Clone(), nil
}

// List returns snapshots of the user's jobs, newest first.
func (r *Registry) List(userID string) []*domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Job
	for _, job := range r.jobs {
		if job.UserID == userID {
			out = append(out, job.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Counts returns the number of held jobs per status.
func (r *Registry) Counts() map[domain.JobStatus]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.JobStatus]int, 4)
	for _, job := range r.jobs {
		out[job.Status]++
	}
	return out
}

// Start moves a pending job to processing.
func (r *Registry) Start(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.JobStatusPending {
		return errors.New("jobs: job is not pending")
	}
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = r.now()
	return nil
}

// RecordBatchResult appends one chunk of outcomes and bumps the counters in a
// single critical section. Results for terminal jobs are dropped.
func (r *Registry) RecordBatchResult(jobID string, results []domain.ItemResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	room := job.Total - job.Processed
	if len(results) > room {
		results = results[:room]
	}
	for _, res := range results {
		if res.Success {
			job.Success++
		} else {
			job.Failed++
		}
		job.Processed++
		job.Details = append(job.Details, res)
	}
	job.UpdatedAt = r.now()
	return nil
}

var errInvalidTransition = errors.New("jobs: only a processing job can complete")

// Finalize moves the job to a terminal state. Completed requires a processing
// job; a pending job may only fail, which covers a job that could not start.
func (r *Registry) Finalize(jobID string, status domain.JobStatus) error {
	if !status.Terminal() {
		return errors.New("jobs: finalize requires completed or failed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	if status == domain.JobStatusCompleted && job.Status != domain.JobStatusProcessing {
		return errInvalidTransition
	}
	now := r.now()
	job.Status = status
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}

// Remove drops a job that never started, releasing its offers. Jobs that are
// processing or finished are left alone.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[jobID]; ok && job.Status == domain.JobStatusPending {
		delete(r.jobs, jobID)
	}
}

// Sweep deletes jobs created before now minus the retention window,
// regardless of status.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, job := range r.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// NormalizeOfferIDs trims, drops empty IDs and removes duplicates, keeping
// first-seen order.
func NormalizeOfferIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
