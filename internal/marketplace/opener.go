package marketplace

import (
	"context"
	"errors"
	"fmt"

	"offersync/internal/infra"
	"offersync/internal/telemetry"
)

var ErrNotConnected = errors.New("marketplace account not connected")

// TokenLoader returns the stored credentials of a user; ok is false when the
// user never connected an account.
type TokenLoader func(ctx context.Context, userID string) (auth Auth, ok bool, err error)

// Opener builds per-user sessions over a shared adapter.
type Opener struct {
	adapter Adapter
	load    TokenLoader
	store   TokenStore
	logger  infra.Logger
	metrics *telemetry.Metrics
}

func NewOpener(adapter Adapter, load TokenLoader, store TokenStore, logger infra.Logger, metrics *telemetry.Metrics) *Opener {
	return &Opener{adapter: adapter, load: load, store: store, logger: logger, metrics: metrics}
}

func (o *Opener) Open(ctx context.Context, userID string) (*Session, error) {
	auth, ok, err := o.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load marketplace tokens: %w", err)
	}
	if !ok || auth.AccessToken == "" {
		return nil, ErrNotConnected
	}
	auth.UserID = userID
	return NewSession(o.adapter, auth, o.store, o.logger, o.metrics), nil
}
