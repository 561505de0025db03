package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		marker  string
		body    string
		wantErr bool
	}{
		{
			name:   "valid marker",
			query:  "--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db\nselect 1;",
			marker: "4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db",
			body:   "select 1;",
		},
		{
			name:   "leading whitespace",
			query:  "\n  --sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db\nselect 1;\n",
			marker: "4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db",
			body:   "select 1;",
		},
		{
			name:    "missing marker",
			query:   "select 1;",
			wantErr: true,
		},
		{
			name:    "uppercase uuid rejected",
			query:   "--sql 4F55A9B7-4E9F-4E45-A3B3-5A532D21D9DB\nselect 1;",
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, body, err := extractMarker(tc.query)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("extractMarker error: %v", err)
			}
			if marker != tc.marker {
				t.Fatalf("marker = %q, want %q", marker, tc.marker)
			}
			if body != tc.body {
				t.Fatalf("body = %q, want %q", body, tc.body)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("load wallet: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to match")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatal("unexpected match for unrelated error")
	}
}
