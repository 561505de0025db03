// Package providers defines the vendor-neutral contracts for AI text and
// image providers. Vendor request and response shapes stay in the
// subpackages.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TextOptions tunes a single text generation.
type TextOptions struct {
	System      string
	JSON        bool
	Temperature float64
}

// TextGenerator produces text from a prompt.
type TextGenerator interface {
	Name() string
	GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error)
}

// ImageInput is one image handed to an editor. The first input is the
// subject; later inputs are references such as a replacement background.
type ImageInput struct {
	MIME string
	Data []byte
}

// ImageOutput is the edited image.
type ImageOutput struct {
	MIME string
	Data []byte
}

// ImageEditor applies a natural-language instruction to images.
type ImageEditor interface {
	EditImage(ctx context.Context, instruction string, images []ImageInput) (*ImageOutput, error)
}

// APIError is a provider failure normalized across vendors.
type APIError struct {
	Provider string
	Status   int
	Code     string
	Message  string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Status > 0 {
		fmt.Fprintf(&b, " status %d", e.Status)
	}
	if e.Code != "" {
		b.WriteString(" (" + e.Code + ")")
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

var quotaMarkers = []string{"quota", "billing", "insufficient_quota", "credit balance", "payment required"}

// QuotaExhausted reports an account-level funds or quota problem. Retrying
// will not help and the user should hear about it.
func (e *APIError) QuotaExhausted() bool {
	if e.Status == http.StatusPaymentRequired {
		return true
	}
	text := strings.ToLower(e.Code + " " + e.Message)
	for _, marker := range quotaMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Transient reports an overload or rate limit that may clear on retry.
func (e *APIError) Transient() bool {
	if e.QuotaExhausted() {
		return false
	}
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	code := strings.ToUpper(e.Code)
	return code == "UNAVAILABLE" || code == "RATE_LIMIT_EXCEEDED" || strings.Contains(strings.ToLower(e.Message), "overloaded")
}

// IsQuota reports whether err carries a quota-exhausted APIError.
func IsQuota(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.QuotaExhausted()
}

// IsTransient reports whether err carries a retryable APIError.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient()
}
