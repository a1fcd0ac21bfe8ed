package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func serve(handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(Healthz(), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyzPasses(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	rec := serve(NewHealthChecker(ok, ok, "1.2.3", "abc", "2026-01-01").Readyz(), "/readyz")

	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthCheck
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ready", body.Status)
	require.Equal(t, "1.2.3", body.Version)
	require.Equal(t, "pass", body.Checks["store"].Status)
	require.Equal(t, "pass", body.Checks["cache"].Status)
}

func TestReadyzFailsWhenStoreIsDown(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	rec := serve(NewHealthChecker(down, nil, "", "", "").Readyz(), "/readyz")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthCheck
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "unavailable", body.Status)
	require.Equal(t, "connection refused", body.Checks["store"].Message)
	require.NotContains(t, body.Checks, "cache")
}

func TestReadyzFailsWithoutStore(t *testing.T) {
	rec := serve(NewHealthChecker(nil, nil, "", "", "").Readyz(), "/readyz")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVersion(t *testing.T) {
	rec := serve(NewHealthChecker(nil, nil, "", "", "").Version(), "/version")

	var body versionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, versionResponse{Version: "dev", GitCommit: "unknown", BuildDate: "unknown", GoVersion: runtime.Version()}, body)
}
