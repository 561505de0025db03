package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExecutor struct {
	token   string
	refresh string
	expires *time.Time
	err     error
	exec    struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, refresh: s.refresh, expires: s.expires, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token   string
	refresh string
	expires *time.Time
	err     error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	if len(dest) == 3 {
		*dest[1].(*string) = r.refresh
		*dest[2].(**time.Time) = r.expires
	}
	return nil
}

func TestGeminiAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " abc123 "})
	key, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("expected abc123, got %q", key)
	}
}

func TestGeminiAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.GeminiAPIKey(context.Background())
	if err != nil {
		t.Fatalf("GeminiAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestSetGeminiAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetGeminiAPIKey(context.Background(), "secret"); err != nil {
		t.Fatalf("SetGeminiAPIKey error: %v", err)
	}
	if len(exec.exec.args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetGeminiAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetGeminiAPIKey(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestOpenAIAPIKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: " sk-test "})
	key, err := store.OpenAIAPIKey(context.Background())
	if err != nil {
		t.Fatalf("OpenAIAPIKey error: %v", err)
	}
	if key != "sk-test" {
		t.Fatalf("expected sk-test, got %q", key)
	}
}

func TestOpenAIAPIKey_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	key, err := store.OpenAIAPIKey(context.Background())
	if err != nil {
		t.Fatalf("OpenAIAPIKey error: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
}

func TestSetOpenAIAPIKey(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SetOpenAIAPIKey(context.Background(), "secret"); err != nil {
		t.Fatalf("SetOpenAIAPIKey error: %v", err)
	}
	if len(exec.exec.args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
}

func TestSetOpenAIAPIKeyEmpty(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SetOpenAIAPIKey(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestMarketplaceTokens(t *testing.T) {
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewStore(&stubExecutor{token: "acc", refresh: "ref", expires: &expires})
	tokens, ok, err := store.MarketplaceTokens(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MarketplaceTokens error: %v", err)
	}
	if !ok || tokens.AccessToken != "acc" || tokens.RefreshToken != "ref" || !tokens.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected tokens %+v ok=%v", tokens, ok)
	}
}

func TestMarketplaceTokens_NoRows(t *testing.T) {
	store := NewStore(&stubExecutor{err: pgx.ErrNoRows})
	_, ok, err := store.MarketplaceTokens(context.Background(), "u1")
	if err != nil {
		t.Fatalf("MarketplaceTokens error: %v", err)
	}
	if ok {
		t.Fatal("expected no tokens")
	}
}

func TestSaveMarketplaceTokens(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	if err := store.SaveMarketplaceTokens(context.Background(), "u1", "acc", "ref", time.Time{}); err != nil {
		t.Fatalf("SaveMarketplaceTokens error: %v", err)
	}
	if len(exec.exec.args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[3].(*time.Time); !ok || v != nil {
		t.Fatalf("zero expiry should be stored as null, got %T %v", exec.exec.args[3], exec.exec.args[3])
	}
}

func TestSaveMarketplaceTokensRequiresAccessToken(t *testing.T) {
	store := NewStore(&stubExecutor{})
	if err := store.SaveMarketplaceTokens(context.Background(), "u1", " ", "ref", time.Time{}); err == nil {
		t.Fatal("expected error for empty access token")
	}
}
