package domain

import "time"

// JobStatus enumerates bulk job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Live reports whether the job still claims its offers.
func (s JobStatus) Live() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// Terminal reports whether the job can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ItemResult is the recorded outcome of one offer inside a job.
type ItemResult struct {
	OfferID string      `json:"offerId"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Kind    FailureKind `json:"kind,omitempty"`
}

// Job tracks one bulk-edit request. Processed always equals Success+Failed.
type Job struct {
	ID          string
	UserID      string
	OfferIDs    []string
	Status      JobStatus
	Total       int
	Processed   int
	Success     int
	Failed      int
	Details     []ItemResult
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Clone returns a deep copy safe to hand out of the registry.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.OfferIDs = append([]string(nil), j.OfferIDs...)
	out.Details = append([]ItemResult(nil), j.Details...)
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}
