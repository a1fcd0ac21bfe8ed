package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type healthcheckOptions struct {
	timeout time.Duration
	url     string
	ready   bool
}

func newHealthcheckCommand() *cobra.Command {
	opts := &healthcheckOptions{}

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is healthy",
		Long: `Performs a health check by calling the /healthz endpoint, or /readyz with --ready.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is healthy, non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return checkHealth(ctx, healthURL(opts), opts.ready)
		},
	}

	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&opts.url, "url", "", "base URL of the server (default: http://localhost:{SERVER_PORT})")
	cmd.Flags().BoolVar(&opts.ready, "ready", false, "check readiness (store and cache) instead of liveness")
	return cmd
}

// healthResponse covers the liveness and readiness bodies.
type healthResponse struct {
	Status string `json:"status"`
}

func healthURL(opts *healthcheckOptions) string {
	base := opts.url
	if base == "" {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		base = "http://localhost:" + port
	}
	if opts.ready {
		return base + "/readyz"
	}
	return base + "/healthz"
}

func checkHealth(ctx context.Context, url string, ready bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("parse health response: %w", err)
	}

	want := "ok"
	if ready {
		want = "ready"
	}
	if body.Status != want {
		return fmt.Errorf("unhealthy: status=%s", body.Status)
	}
	return nil
}
