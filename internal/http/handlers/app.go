// Package handlers implements the HTTP API of the bulk-edit service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"offersync/internal/batch"
	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/jobs"
	"offersync/internal/middleware"
	"offersync/internal/telemetry"
)

// JobProcessor runs one job to completion. *batch.Processor satisfies it.
type JobProcessor interface {
	Run(ctx context.Context, job *domain.Job, mod domain.Modification, session batch.Session)
}

// JobSubmitter queues background work. *jobs.Runner satisfies it.
type JobSubmitter interface {
	Submit(task jobs.Task) error
}

// Wallets is the billing surface the API exposes. *billing.Ledger satisfies it.
type Wallets interface {
	Wallet(ctx context.Context, userID string) (domain.Wallet, error)
	Entries(ctx context.Context, userID string, limit int) ([]domain.LedgerEntry, error)
	Preflight(ctx context.Context, userID string, n int) error
}

// SessionOpener returns the caller's marketplace session.
type SessionOpener func(ctx context.Context, userID string) (batch.Session, error)

type App struct {
	Jobs        *jobs.Registry
	Runner      JobSubmitter
	Processor   JobProcessor
	Wallets     Wallets
	OpenSession SessionOpener
	Metrics     *telemetry.Metrics
	Logger      infra.Logger
	// Currency is applied to price changes that omit one.
	Currency string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]string{"error": msg, "code": errCode})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
