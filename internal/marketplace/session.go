package marketplace

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/telemetry"
)

const refreshTimeout = 30 * time.Second

// TokenStore persists refreshed marketplace tokens.
type TokenStore interface {
	SaveMarketplaceTokens(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error
}

// Session binds one user's credentials to an adapter. A call that fails with
// an expired token triggers at most one refresh, shared by concurrent callers,
// and is retried once with the new token.
type Session struct {
	adapter Adapter
	store   TokenStore
	logger  infra.Logger
	metrics *telemetry.Metrics

	mu    sync.RWMutex
	auth  Auth
	group singleflight.Group
}

// NewSession returns a session for auth. store may be nil.
func NewSession(adapter Adapter, auth Auth, store TokenStore, logger infra.Logger, metrics *telemetry.Metrics) *Session {
	return &Session{
		adapter: adapter,
		store:   store,
		logger:  logger,
		metrics: metrics,
		auth:    auth,
	}
}

// Auth returns the credentials currently in use.
func (s *Session) Auth() Auth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

func (s *Session) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	return withRefresh(ctx, s, func(auth Auth) (*domain.Offer, error) {
		return s.adapter.GetOffer(ctx, auth, id)
	})
}

func (s *Session) UpdateOffer(ctx context.Context, id string, patch Patch) (UpdateResult, error) {
	return withRefresh(ctx, s, func(auth Auth) (UpdateResult, error) {
		return s.adapter.UpdateOffer(ctx, auth, id, patch)
	})
}

func (s *Session) ChangePrice(ctx context.Context, id, amount, currency string) (PriceCommand, error) {
	return withRefresh(ctx, s, func(auth Auth) (PriceCommand, error) {
		return s.adapter.ChangePrice(ctx, auth, id, amount, currency)
	})
}

func (s *Session) CheckPriceChangeCommand(ctx context.Context, commandID string) (CommandStatus, error) {
	return withRefresh(ctx, s, func(auth Auth) (CommandStatus, error) {
		return s.adapter.CheckPriceChangeCommand(ctx, auth, commandID)
	})
}

func (s *Session) UploadImage(ctx context.Context, pathOrURL string) (string, error) {
	return withRefresh(ctx, s, func(auth Auth) (string, error) {
		return s.adapter.UploadImage(ctx, auth, pathOrURL)
	})
}

func withRefresh[T any](ctx context.Context, s *Session, call func(Auth) (T, error)) (T, error) {
	stale := s.Auth()
	out, err := call(stale)
	if err == nil || !errors.Is(err, domain.ErrAuthExpired) {
		return out, err
	}
	var zero T
	fresh, rerr := s.refresh(ctx, stale)
	if rerr != nil {
		return zero, &domain.AuthExpiredError{Err: rerr}
	}
	out, err = call(fresh)
	if err != nil && errors.Is(err, domain.ErrAuthExpired) {
		return zero, &domain.AuthExpiredError{Err: err}
	}
	return out, err
}

// refresh exchanges the refresh token once for every caller holding the same
// stale access token.
func (s *Session) refresh(ctx context.Context, stale Auth) (Auth, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		if current := s.Auth(); current.AccessToken != stale.AccessToken {
			return current, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		fresh, err := s.adapter.RefreshToken(rctx, stale)
		if err != nil {
			s.metrics.TokenRefresh("failed")
			s.logger.Warn().Err(err).Str("user_id", stale.UserID).Msg("marketplace: token refresh failed")
			return Auth{}, err
		}
		if fresh.UserID == "" {
			fresh.UserID = stale.UserID
		}
		s.mu.Lock()
		s.auth = fresh
		s.mu.Unlock()
		s.metrics.TokenRefresh("ok")

		if s.store != nil {
			if err := s.store.SaveMarketplaceTokens(rctx, fresh.UserID, fresh.AccessToken, fresh.RefreshToken, fresh.ExpiresAt); err != nil {
				// the new token still works for this process
				s.logger.Error().Err(err).Str("user_id", fresh.UserID).Msg("marketplace: persist refreshed tokens")
			}
		}
		return fresh, nil
	})
	if err != nil {
		return Auth{}, err
	}
	return v.(Auth), nil
}
