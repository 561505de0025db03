package resilience

import (
	"context"
	"fmt"

	"offersync/internal/domain"
	"offersync/internal/infra"
	"offersync/internal/providers"
	"offersync/internal/telemetry"
)

// FallbackGenerator tries the primary provider, then the secondary. Any
// non-fatal primary failure triggers the fallback; each one is logged and
// counted so masked primary bugs stay visible.
type FallbackGenerator struct {
	primary   providers.TextGenerator
	secondary providers.TextGenerator
	policy    Policy
	logger    infra.Logger
	metrics   *telemetry.Metrics
}

// NewFallback builds the generator. secondary may be nil.
func NewFallback(primary, secondary providers.TextGenerator, policy Policy, logger infra.Logger, metrics *telemetry.Metrics) *FallbackGenerator {
	return &FallbackGenerator{
		primary:   primary,
		secondary: secondary,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
	}
}

func (f *FallbackGenerator) Name() string {
	if f.secondary == nil {
		return f.primary.Name()
	}
	return f.primary.Name() + "+" + f.secondary.Name()
}

// GenerateText returns domain.ErrProviderFunds when every provider failed and
// at least one reported exhausted quota, otherwise domain.ErrGenerationFailed.
func (f *FallbackGenerator) GenerateText(ctx context.Context, prompt string, opts providers.TextOptions) (string, error) {
	text, primaryErr := f.call(ctx, f.primary, prompt, opts)
	if primaryErr == nil {
		return text, nil
	}
	if f.classify(primaryErr) == Fatal {
		return "", primaryErr
	}

	reason := "error"
	if providers.IsQuota(primaryErr) {
		reason = "quota"
	}
	f.metrics.ProviderFallback(f.primary.Name(), reason)
	if f.secondary == nil {
		f.logger.Warn().Err(primaryErr).Str("provider", f.primary.Name()).Msg("resilience: primary failed, no secondary configured")
		return "", exhausted(primaryErr, nil)
	}
	f.logger.Warn().Err(primaryErr).
		Str("provider", f.primary.Name()).
		Str("fallback", f.secondary.Name()).
		Str("reason", reason).
		Msg("resilience: falling back to secondary provider")

	text, secondaryErr := f.call(ctx, f.secondary, prompt, opts)
	if secondaryErr == nil {
		return text, nil
	}
	if f.classify(secondaryErr) == Fatal {
		return "", secondaryErr
	}
	f.logger.Error().Err(secondaryErr).Str("provider", f.secondary.Name()).Msg("resilience: secondary provider failed")
	return "", exhausted(primaryErr, secondaryErr)
}

func (f *FallbackGenerator) call(ctx context.Context, gen providers.TextGenerator, prompt string, opts providers.TextOptions) (string, error) {
	var text string
	policy := f.policy
	name := gen.Name()
	policy.OnRetry = func(attempt int, err error) {
		f.metrics.ProviderRetry(name)
		f.logger.Debug().Err(err).Str("provider", name).Int("attempt", attempt).Msg("resilience: retrying")
	}
	err := policy.Do(ctx, func(ctx context.Context) error {
		out, err := gen.GenerateText(ctx, prompt, opts)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	return text, err
}

func (f *FallbackGenerator) classify(err error) Class {
	if f.policy.Classify != nil {
		return f.policy.Classify(err)
	}
	return Classify(err)
}

func exhausted(primaryErr, secondaryErr error) error {
	sentinel := domain.ErrGenerationFailed
	if providers.IsQuota(primaryErr) || providers.IsQuota(secondaryErr) {
		sentinel = domain.ErrProviderFunds
	}
	if secondaryErr == nil {
		return fmt.Errorf("%w: %v", sentinel, primaryErr)
	}
	return fmt.Errorf("%w: primary: %v; secondary: %v", sentinel, primaryErr, secondaryErr)
}

var _ providers.TextGenerator = (*FallbackGenerator)(nil)
