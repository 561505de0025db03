package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"offersync/internal/providers"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}
}

func TestGenerateText(t *testing.T) {
	client := NewClient(Options{
		APIKey:       "sk-test",
		Organization: "org-1",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Authorization") != "Bearer sk-test" {
				t.Fatalf("missing bearer token")
			}
			if r.Header.Get("OpenAI-Organization") != "org-1" {
				t.Fatalf("missing organization header")
			}
			var req chatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if req.Model != defaultModel || req.ResponseFormat == nil || len(req.Messages) != 2 {
				t.Fatalf("unexpected request %+v", req)
			}
			return respond(http.StatusOK, `{"choices":[{"message":{"content":"  {\"section_0\":\"<p>x</p>\"} "}}]}`), nil
		})},
	})
	text, err := client.GenerateText(context.Background(), "prompt", providers.TextOptions{JSON: true, System: "sys"})
	if err != nil {
		t.Fatalf("GenerateText error: %v", err)
	}
	if text != `{"section_0":"<p>x</p>"}` {
		t.Fatalf("text = %q", text)
	}
}

func TestGenerateTextQuotaError(t *testing.T) {
	client := NewClient(Options{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return respond(http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`), nil
		})},
	})
	_, err := client.GenerateText(context.Background(), "prompt", providers.TextOptions{})
	var apiErr *providers.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "insufficient_quota" || !apiErr.QuotaExhausted() {
		t.Fatalf("unexpected classification %+v", apiErr)
	}
}
