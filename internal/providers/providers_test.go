package providers

import (
	"fmt"
	"testing"
)

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       *APIError
		quota     bool
		transient bool
	}{
		{"payment required", &APIError{Status: 402}, true, false},
		{"openai quota", &APIError{Status: 429, Code: "insufficient_quota"}, true, false},
		{"gemini quota", &APIError{Status: 429, Code: "RESOURCE_EXHAUSTED", Message: "You exceeded your current quota"}, true, false},
		{"rate limited", &APIError{Status: 429, Message: "slow down"}, false, true},
		{"overloaded", &APIError{Status: 503, Message: "The model is overloaded"}, false, true},
		{"bad request", &APIError{Status: 400, Message: "invalid"}, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("call: %w", tc.err)
			if got := IsQuota(wrapped); got != tc.quota {
				t.Fatalf("IsQuota = %v, want %v", got, tc.quota)
			}
			if got := IsTransient(wrapped); got != tc.transient {
				t.Fatalf("IsTransient = %v, want %v", got, tc.transient)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`Sure! Here it is: {"a":{"b":2}} hope it helps`, `{"a":{"b":2}}`},
		{"no json here", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := ExtractJSONObject(tc.in); got != tc.want {
			t.Fatalf("ExtractJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
