package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthReportsJobCounts(t *testing.T) {
	env := newTestEnv(t, 10_000)
	_, err := env.app.Jobs.Create("u1", []string{"o1"})
	require.NoError(t, err)

	rec, body := env.do(t, http.MethodGet, "/v1/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	jobs, ok := body["jobs"].(map[string]any)
	require.True(t, ok, "jobs = %#v", body["jobs"])
	assert.EqualValues(t, 1, jobs["pending"])
}

func TestOpenAPIJSONConditionalGet(t *testing.T) {
	env := newTestEnv(t, 0)

	rec, body := env.do(t, http.MethodGet, "/v1/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["openapi"])
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec, _ = env.do(t, http.MethodGet, "/v1/openapi.json", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}
