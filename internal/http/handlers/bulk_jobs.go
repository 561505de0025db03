package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"offersync/internal/domain"
	"offersync/internal/jobs"
	"offersync/internal/marketplace"
	"offersync/internal/middleware"
)

// maxOffersPerJob bounds a single request.
const maxOffersPerJob = 1000

type bulkJobRequest struct {
	OfferIDs      []string             `json:"offerIds"`
	Modifications *domain.Modification `json:"modifications"`
}

type jobResponse struct {
	JobID       string              `json:"jobId"`
	Status      domain.JobStatus    `json:"status"`
	Total       int                 `json:"total"`
	Processed   int                 `json:"processed"`
	Success     int                 `json:"success"`
	Failed      int                 `json:"failed"`
	Details     []domain.ItemResult `json:"details,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
}

func toJobResponse(job *domain.Job, withDetails bool) jobResponse {
	resp := jobResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Total:       job.Total,
		Processed:   job.Processed,
		Success:     job.Success,
		Failed:      job.Failed,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		CompletedAt: job.CompletedAt,
	}
	if withDetails {
		resp.Details = job.Details
		if resp.Details == nil {
			resp.Details = []domain.ItemResult{}
		}
	}
	return resp
}

// CreateBulkJob validates the request, claims the offers, checks the wallet
// and queues the job.
func (a *App) CreateBulkJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := a.currentUserID(r)

	var req bulkJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	ids := jobs.NormalizeOfferIDs(req.OfferIDs)
	if len(ids) == 0 {
		a.error(w, http.StatusBadRequest, "validation", "offerIds: at least one offer id is required")
		return
	}
	if len(ids) > maxOffersPerJob {
		a.error(w, http.StatusBadRequest, "validation", "offerIds: too many offers in one job")
		return
	}
	if err := req.Modifications.Validate(a.Currency); err != nil {
		a.error(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	mod := *req.Modifications
	if mod.AI != nil && mod.AI.Language == "" {
		ai := *mod.AI
		ai.Language = middleware.LocaleFromContext(ctx)
		mod.AI = &ai
	}

	job, err := a.Jobs.Create(userID, ids)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			a.json(w, http.StatusConflict, map[string]any{
				"error":          "offers already being processed",
				"conflictingIds": conflict.IDs,
			})
			return
		}
		a.error(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	if mod.Mode() == domain.ModeComplex {
		if err := a.Wallets.Preflight(ctx, userID, len(job.OfferIDs)); err != nil {
			a.Jobs.Remove(job.ID)
			var funds *domain.InsufficientFundsError
			if errors.As(err, &funds) {
				a.json(w, http.StatusPaymentRequired, map[string]any{
					"error":           "insufficient wallet funds",
					"balanceRequired": funds.Required,
					"balance":         funds.Balance,
				})
				return
			}
			a.Logger.Error().Err(err).Str("user_id", userID).Msg("preflight wallet check failed")
			a.error(w, http.StatusInternalServerError, "internal", "could not check wallet balance")
			return
		}
	}

	session, err := a.OpenSession(ctx, userID)
	if err != nil {
		a.Jobs.Remove(job.ID)
		if errors.Is(err, marketplace.ErrNotConnected) {
			a.error(w, http.StatusPreconditionFailed, "marketplace_not_connected", err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("open marketplace session")
		a.error(w, http.StatusInternalServerError, "internal", "could not open marketplace session")
		return
	}

	err = a.Runner.Submit(func(taskCtx context.Context) {
		a.Processor.Run(taskCtx, job, mod, session)
	})
	if err != nil {
		a.Jobs.Remove(job.ID)
		a.Metrics.QueueRejection()
		a.Logger.Warn().Err(err).Str("user_id", userID).Msg("bulk job rejected")
		a.error(w, http.StatusServiceUnavailable, "busy", "too many jobs in progress, retry later")
		return
	}

	a.Metrics.JobCreated()
	a.Logger.Info().Str("job_id", job.ID).Str("user_id", userID).Int("offers", job.Total).Str("mode", string(mod.Mode())).Msg("bulk job queued")
	a.json(w, http.StatusAccepted, map[string]string{"jobId": job.ID})
}

func (a *App) GetBulkJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(chi.URLParam(r, "job_id"), a.currentUserID(r))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, http.StatusForbidden, "forbidden", "job belongs to another user")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, toJobResponse(job, true))
}

func (a *App) ListBulkJobs(w http.ResponseWriter, r *http.Request) {
	list := a.Jobs.List(a.currentUserID(r))
	items := make([]jobResponse, 0, len(list))
	for _, job := range list {
		items = append(items, toJobResponse(job, false))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
