// Package resilience wraps provider calls with a retry policy and a
// primary/secondary fallback.
package resilience

import (
	"context"
	"errors"
	"time"

	"offersync/internal/providers"
)

// Class decides how a provider error is handled.
type Class int

const (
	// Retry covers overload and rate limiting.
	Retry Class = iota
	// Fallback moves on to the next provider.
	Fallback
	// Fatal stops immediately; the caller gave up.
	Fatal
)

func (c Class) String() string {
	switch c {
	case Retry:
		return "retry"
	case Fallback:
		return "fallback"
	default:
		return "fatal"
	}
}

// Classify is the default classifier.
func Classify(err error) Class {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Fatal
	case providers.IsTransient(err):
		return Retry
	default:
		return Fallback
	}
}

const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// Policy retries Retry-class failures a bounded number of times.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Classify func(error) Class
	OnRetry  func(attempt int, err error)
}

// DefaultPolicy returns three attempts two seconds apart.
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay, Classify: Classify}
}

// Do runs fn until it succeeds, fails with a non-Retry class, or attempts run out.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = Classify
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if classify(err) != Retry || attempt == attempts {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return err
}
