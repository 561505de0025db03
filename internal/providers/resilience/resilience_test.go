package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offersync/internal/domain"
	"offersync/internal/providers"
)

type scriptedGenerator struct {
	name    string
	results []error
	text    string
	calls   int
}

func (s *scriptedGenerator) Name() string { return s.name }

func (s *scriptedGenerator) GenerateText(ctx context.Context, prompt string, opts providers.TextOptions) (string, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.results) && s.results[idx] != nil {
		return "", s.results[idx]
	}
	return s.text, nil
}

var (
	overloaded = &providers.APIError{Provider: "p", Status: 503, Message: "overloaded"}
	quota      = &providers.APIError{Provider: "p", Status: 429, Code: "insufficient_quota"}
	badRequest = &providers.APIError{Provider: "p", Status: 400, Message: "bad"}
)

func fastPolicy() Policy {
	return Policy{Attempts: 3, Classify: Classify}
}

func TestPolicyRetriesTransientOnly(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return overloaded
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return badRequest
	})
	assert.ErrorIs(t, err, badRequest)
	assert.Equal(t, 1, calls)
}

func TestPolicyGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return overloaded
	})
	assert.ErrorIs(t, err, overloaded)
	assert.Equal(t, 3, calls)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Fatal, Classify(context.Canceled))
	assert.Equal(t, Retry, Classify(overloaded))
	assert.Equal(t, Fallback, Classify(quota))
	assert.Equal(t, Fallback, Classify(errors.New("anything")))
}

func TestFallbackUsesSecondary(t *testing.T) {
	primary := &scriptedGenerator{name: "gemini", results: []error{badRequest}}
	secondary := &scriptedGenerator{name: "openai", text: "ok"}
	gen := NewFallback(primary, secondary, fastPolicy(), zerolog.Nop(), nil)

	text, err := gen.GenerateText(context.Background(), "p", providers.TextOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackQuotaSurfacesProviderFunds(t *testing.T) {
	primary := &scriptedGenerator{name: "gemini", results: []error{quota}}
	secondary := &scriptedGenerator{name: "openai", results: []error{badRequest}}
	gen := NewFallback(primary, secondary, fastPolicy(), zerolog.Nop(), nil)

	_, err := gen.GenerateText(context.Background(), "p", providers.TextOptions{})
	assert.ErrorIs(t, err, domain.ErrProviderFunds)
	assert.Equal(t, domain.FailureProviderFunds, domain.FailureKindOf(err))
}

func TestFallbackGenericFailure(t *testing.T) {
	primary := &scriptedGenerator{name: "gemini", results: []error{overloaded, overloaded, overloaded}}
	secondary := &scriptedGenerator{name: "openai", results: []error{badRequest}}
	gen := NewFallback(primary, secondary, fastPolicy(), zerolog.Nop(), nil)

	_, err := gen.GenerateText(context.Background(), "p", providers.TextOptions{})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Equal(t, 3, primary.calls)
}

func TestFallbackWithoutSecondary(t *testing.T) {
	primary := &scriptedGenerator{name: "gemini", results: []error{quota}}
	gen := NewFallback(primary, nil, fastPolicy(), zerolog.Nop(), nil)
	_, err := gen.GenerateText(context.Background(), "p", providers.TextOptions{})
	assert.ErrorIs(t, err, domain.ErrProviderFunds)
	assert.Equal(t, "gemini", gen.Name())
}

func TestFallbackStopsOnCancellation(t *testing.T) {
	primary := &scriptedGenerator{name: "gemini", results: []error{context.Canceled}}
	secondary := &scriptedGenerator{name: "openai", text: "never"}
	gen := NewFallback(primary, secondary, fastPolicy(), zerolog.Nop(), nil)
	_, err := gen.GenerateText(context.Background(), "p", providers.TextOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, secondary.calls)
}
