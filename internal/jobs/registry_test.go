package jobs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offersync/internal/domain"
)

func TestRegistryCreateDedupesOffers(t *testing.T) {
	reg := NewRegistry(0)
	job, err := reg.Create("u1", []string{"a", " b ", "a", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, job.OfferIDs)
	assert.Equal(t, 2, job.Total)
	assert.Equal(t, domain.JobStatusPending, job.Status)
}

func TestRegistryCreateRejectsEmpty(t *testing.T) {
	reg := NewRegistry(0)
	_, err := reg.Create("u1", []string{" "})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "offerIds", verr.Field)
}

func TestRegistryCreateConflictsWithLiveJobs(t *testing.T) {
	reg := NewRegistry(0)
	first, err := reg.Create("u1", []string{"a", "b", "c"})
	require.NoError(t, err)

	_, err = reg.Create("u1", []string{"x", "c", "a"})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []string{"c", "a"}, conflict.IDs)

	// Another user may claim the same offers.
	_, err = reg.Create("u2", []string{"a"})
	require.NoError(t, err)

	require.NoError(t, reg.Start(first.ID))
	_, err = reg.Create("u1", []string{"b"})
	require.Error(t, err, "processing job still claims its offers")

	require.NoError(t, reg.Finalize(first.ID, domain.JobStatusCompleted))
	_, err = reg.Create("u1", []string{"a", "b"})
	require.NoError(t, err)
}

func TestRegistryGetOwnership(t *testing.T) {
	reg := NewRegistry(0)
	job, err := reg.Create("owner", []string{"a"})
	require.NoError(t, err)

	_, err = reg.Get(job.ID, "intruder")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = reg.Get("missing", "owner")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	snap, err := reg.Get(job.ID, "owner")
	require.NoError(t, err)
	snap.OfferIDs[0] = "mutated"
	again, err := reg.Get(job.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "a", again.OfferIDs[0], "snapshots must not alias registry state")
}

func TestRegistryRecordBatchResultCounters(t *testing.T) {
	reg := NewRegistry(0)
	job, err := reg.Create("u1", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, reg.Start(job.ID))

	require.NoError(t, reg.RecordBatchResult(job.ID, []domain.ItemResult{
		{OfferID: "a", Success: true},
		{OfferID: "b", Error: "boom", Kind: domain.FailureInternal},
	}))
	snap, _ := reg.Get(job.ID, "u1")
	assert.Equal(t, 2, snap.Processed)
	assert.Equal(t, snap.Success+snap.Failed, snap.Processed)

	// Overflow past Total is clipped.
	require.NoError(t, reg.RecordBatchResult(job.ID, []domain.ItemResult{
		{OfferID: "c", Success: true},
		{OfferID: "d", Success: true},
	}))
	snap, _ = reg.Get(job.ID, "u1")
	assert.Equal(t, 3, snap.Processed)
	assert.LessOrEqual(t, snap.Success+snap.Failed, snap.Total)
	assert.Len(t, snap.Details, 3)

	require.NoError(t, reg.Finalize(job.ID, domain.JobStatusCompleted))
	require.NoError(t, reg.RecordBatchResult(job.ID, []domain.ItemResult{{OfferID: "a", Success: true}}))
	snap, _ = reg.Get(job.ID, "u1")
	assert.Equal(t, 3, snap.Processed, "finalized jobs are immutable")
	assert.NotNil(t, snap.CompletedAt)
}

func TestRegistryFinalizeRejectsLiveStatus(t *testing.T) {
	reg := NewRegistry(0)
	job, err := reg.Create("u1", []string{"a"})
	require.NoError(t, err)
	assert.Error(t, reg.Finalize(job.ID, domain.JobStatusProcessing))
	assert.Error(t, reg.Start("missing"))
	require.NoError(t, reg.Start(job.ID))
	assert.Error(t, reg.Start(job.ID))
}

func TestRegistrySweepRemovesExpiredJobs(t *testing.T) {
	reg := NewRegistry(time.Hour)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	reg.now = func() time.Time { return base }
	old, err := reg.Create("u1", []string{"a"})
	require.NoError(t, err)
	reg.now = func() time.Time { return base.Add(50 * time.Minute) }
	fresh, err := reg.Create("u1", []string{"b"})
	require.NoError(t, err)

	removed := reg.Sweep(base.Add(61 * time.Minute))
	assert.Equal(t, 1, removed)
	_, err = reg.Get(old.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = reg.Get(fresh.ID, "u1")
	assert.NoError(t, err)
}

func TestRegistryListNewestFirst(t *testing.T) {
	reg := NewRegistry(0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return base }
	first, _ := reg.Create("u1", []string{"a"})
	reg.now = func() time.Time { return base.Add(time.Minute) }
	second, _ := reg.Create("u1", []string{"b"})
	_, _ = reg.Create("u2", []string{"c"})

	list := reg.List("u1")
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestRegistryRemoveReleasesPendingOnly(t *testing.T) {
	reg := NewRegistry(0)
	pending, err := reg.Create("u1", []string{"a"})
	require.NoError(t, err)
	running, err := reg.Create("u1", []string{"b"})
	require.NoError(t, err)
	require.NoError(t, reg.Start(running.ID))

	reg.Remove(pending.ID)
	reg.Remove(running.ID)

	_, err = reg.Get(pending.ID, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = reg.Get(running.ID, "u1")
	assert.NoError(t, err)
	_, err = reg.Create("u1", []string{"a"})
	assert.NoError(t, err, "removed job no longer claims its offers")
}

func TestRegistryCounts(t *testing.T) {
	reg := NewRegistry(0)
	a, err := reg.Create("u1", []string{"a"})
	require.NoError(t, err)
	_, err = reg.Create("u1", []string{"b"})
	require.NoError(t, err)
	require.NoError(t, reg.Start(a.ID))

	counts := reg.Counts()
	assert.Equal(t, 1, counts[domain.JobStatusPending])
	assert.Equal(t, 1, counts[domain.JobStatusProcessing])
}

func TestRegistryFinalizeFollowsLifecycle(t *testing.T) {
	reg := NewRegistry(0)
	job, err := reg.Create("u1", []string{"a"})
	require.NoError(t, err)

	require.Error(t, reg.Finalize(job.ID, domain.JobStatusCompleted), "pending job cannot complete")
	snap, _ := reg.Get(job.ID, "u1")
	assert.Equal(t, domain.JobStatusPending, snap.Status)
	assert.Nil(t, snap.CompletedAt)

	require.NoError(t, reg.Start(job.ID))
	require.NoError(t, reg.Finalize(job.ID, domain.JobStatusCompleted))
	snap, _ = reg.Get(job.ID, "u1")
	assert.Equal(t, domain.JobStatusCompleted, snap.Status)

	stuck, err := reg.Create("u1", []string{"b"})
	require.NoError(t, err)
	require.NoError(t, reg.Finalize(stuck.ID, domain.JobStatusFailed), "a job that never started may fail")
	snap, _ = reg.Get(stuck.ID, "u1")
	assert.Equal(t, domain.JobStatusFailed, snap.Status)
	assert.NotNil(t, snap.CompletedAt)
}
