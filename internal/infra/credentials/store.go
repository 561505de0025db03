// Package credentials persists provider API keys and per-user marketplace
// tokens. Environment variables take precedence; these rows are the fallback
// operators manage with cmd/providerkey.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"offersync/internal/infra"
	"offersync/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// MarketplaceTokens is the stored OAuth pair of one user.
type MarketplaceTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) OpenAIAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderOpenAI)
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	return s.SetToken(ctx, ProviderGemini, key)
}

func (s *Store) SetOpenAIAPIKey(ctx context.Context, key string) error {
	return s.SetToken(ctx, ProviderOpenAI, key)
}

func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, key)
	return err
}

// MarketplaceTokens loads the user's marketplace tokens. ok is false when the
// user never connected an account.
func (s *Store) MarketplaceTokens(ctx context.Context, userID string) (MarketplaceTokens, bool, error) {
	var (
		tokens    MarketplaceTokens
		expiresAt *time.Time
	)
	row := s.sql.QueryRow(ctx, sqlinline.QSelectMarketplaceTokens, userID)
	if err := row.Scan(&tokens.AccessToken, &tokens.RefreshToken, &expiresAt); err != nil {
		if infra.IsNoRows(err) {
			return MarketplaceTokens{}, false, nil
		}
		return MarketplaceTokens{}, false, err
	}
	if expiresAt != nil {
		tokens.ExpiresAt = *expiresAt
	}
	return tokens, true, nil
}

// SaveMarketplaceTokens upserts the user's token pair.
func (s *Store) SaveMarketplaceTokens(ctx context.Context, userID, accessToken, refreshToken string, expiresAt time.Time) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(accessToken) == "" {
		return errors.New("user id and access token are required")
	}
	var expires *time.Time
	if !expiresAt.IsZero() {
		expires = &expiresAt
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertMarketplaceTokens, userID, accessToken, refreshToken, expires)
	return err
}
