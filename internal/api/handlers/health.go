package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck is the body of the readiness response
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of a single readiness check
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	store     Pinger
	cache     Pinger
	version   string
	gitCommit string
	buildDate string
}

// NewHealthChecker creates a checker for store and, when not nil, the shared
// response cache.
func NewHealthChecker(store Pinger, cache Pinger, version, gitCommit, buildDate string) *HealthChecker {
	if version == "" {
		version = "dev"
	}
	if gitCommit == "" {
		gitCommit = "unknown"
	}
	if buildDate == "" {
		buildDate = "unknown"
	}
	return &HealthChecker{store: store, cache: cache, version: version, gitCommit: gitCommit, buildDate: buildDate}
}

// Healthz reports liveness; it never touches dependencies.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Readyz reports whether the API can serve requests: 200 when every check
// passes, 503 otherwise.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"store": check(ctx, h.store, "record store reachable"),
		}
		if h.cache != nil {
			checks["cache"] = check(ctx, h.cache, "response cache reachable")
		}

		status, code := "ready", http.StatusOK
		for _, result := range checks {
			if result.Status != "pass" {
				status, code = "unavailable", http.StatusServiceUnavailable
				break
			}
		}

		writeJSON(w, code, HealthCheck{
			Status:    status,
			Version:   h.version,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
}

type versionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Version reports build metadata.
func (h *HealthChecker) Version() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, versionResponse{
			Version:   h.version,
			GitCommit: h.gitCommit,
			BuildDate: h.buildDate,
			GoVersion: runtime.Version(),
		})
	})
}

func check(ctx context.Context, target Pinger, okMessage string) CheckResult {
	if target == nil {
		return CheckResult{Status: "fail", Message: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := target.Ping(checkCtx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{Status: "fail", Message: err.Error(), LatencyMs: latency}
	}
	return CheckResult{Status: "pass", Message: okMessage, LatencyMs: latency}
}
