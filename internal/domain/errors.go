package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAuthExpired      = errors.New("marketplace authorization expired")
	ErrProviderFunds    = errors.New("insufficient provider funds")
	ErrGenerationFailed = errors.New("could not generate description")
	ErrChargeFailed     = errors.New("charge failed")
	ErrOfferNotFound    = errors.New("offer not found")
)

// ValidationError reports a malformed bulk-edit request. No job is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConflictError lists offer IDs already claimed by another live job of the same user.
type ConflictError struct {
	IDs []string
}

func (e *ConflictError) Error() string {
	return "offers already being processed: " + strings.Join(e.IDs, ",")
}

// InsufficientFundsError is raised by the pre-flight check and at charge time.
type InsufficientFundsError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient wallet funds: balance %d, required %d", e.Balance, e.Required)
}

// AuthExpiredError is the hard failure after the single refresh-and-retry cycle.
type AuthExpiredError struct {
	Err error
}

func (e *AuthExpiredError) Error() string {
	if e.Err == nil {
		return "marketplace authorization expired"
	}
	return "marketplace authorization expired: " + e.Err.Error()
}

func (e *AuthExpiredError) Unwrap() error { return ErrAuthExpired }

// GenerationError means the AI output was empty or unusable.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation: %s: %v", e.Reason, e.Err)
	}
	return "generation: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ExternalServiceError carries the marketplace-provided detail for a rejected call.
type ExternalServiceError struct {
	Service string
	Status  int
	Detail  string
}

func (e *ExternalServiceError) Error() string {
	service := e.Service
	if service == "" {
		service = "marketplace"
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s rejected request (status %d)", service, e.Status)
	}
	return fmt.Sprintf("%s rejected request (status %d): %s", service, e.Status, e.Detail)
}

// FailureKind is the user-visible classification of a per-item failure.
type FailureKind string

const (
	FailureValidation        FailureKind = "validation"
	FailureNotFound          FailureKind = "not_found"
	FailureAuthExpired       FailureKind = "auth_expired"
	FailureGeneration        FailureKind = "generation"
	FailureProviderFunds     FailureKind = "provider_funds"
	FailureMarketplace       FailureKind = "marketplace"
	FailureInsufficientFunds FailureKind = "insufficient_funds"
	FailureCritical          FailureKind = "critical"
	FailureInternal          FailureKind = "internal"
)

// FailureKindOf maps an error to the kind callers react to: top up the
// wallet, retry later, or fix the input.
func FailureKindOf(err error) FailureKind {
	var (
		validation *ValidationError
		funds      *InsufficientFundsError
		generation *GenerationError
		external   *ExternalServiceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &funds):
		return FailureInsufficientFunds
	case errors.Is(err, ErrProviderFunds):
		return FailureProviderFunds
	case errors.Is(err, ErrAuthExpired):
		return FailureAuthExpired
	case errors.As(err, &generation), errors.Is(err, ErrGenerationFailed):
		return FailureGeneration
	case errors.Is(err, ErrOfferNotFound), errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.As(err, &external):
		return FailureMarketplace
	case errors.As(err, &validation):
		return FailureValidation
	case errors.Is(err, context.DeadlineExceeded):
		return FailureMarketplace
	default:
		return FailureInternal
	}
}
