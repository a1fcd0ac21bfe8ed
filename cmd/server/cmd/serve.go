package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Togather-Foundation/event-api/internal/api"
	"github.com/Togather-Foundation/event-api/internal/config"
	"github.com/Togather-Foundation/event-api/internal/metrics"
	"github.com/Togather-Foundation/event-api/internal/storage/postgres"
	"github.com/Togather-Foundation/event-api/internal/telemetry"
)

// errShutdownRequested ends the serve group when the process is signalled.
var errShutdownRequested = errors.New("shutdown requested")

type serveOptions struct {
	host     string
	port     int
	seedFile string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the event API HTTP server",
		Long: `Start the event API HTTP server and begin accepting requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Apply database migrations when DATABASE_MIGRATE_ON_START is set
- Optionally load records from a --seed file before listening
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Run on the in-memory store with sample records
  server serve --seed testdata/events.yaml

  # Start with custom config file
  server serve --config /etc/togather/event-api.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.host != "" {
				cfg.Server.Host = opts.host
			}
			if opts.port != 0 {
				cfg.Server.Port = opts.port
			}
			return runServer(cmd.Context(), cfg, opts.seedFile)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	cmd.Flags().StringVar(&opts.seedFile, "seed", "", "YAML record file imported before the server starts")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config, seedFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("starting event API")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if cfg.Database.URL != "" && cfg.Database.MigrateOnStart {
		if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
			return fmt.Errorf("migrate on start: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	repo, pool, closeRepo, err := openRepository(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	if seedFile != "" {
		saved, err := importFile(ctx, repo, seedFile)
		if err != nil {
			return fmt.Errorf("seed records: %w", err)
		}
		logger.Info().Int("records", saved).Str("file", seedFile).Msg("seeded record store")
	}

	store, cachePinger, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	handler, err := api.NewRouter(api.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Repository:  repo,
		Cache:       store,
		CachePinger: cachePinger,
		Version:     Version,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stop)

		select {
		case sig := <-stop:
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			return errShutdownRequested
		case <-gCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(server, cfg.Server.ShutdownTimeout, logger)
	})

	if pool != nil {
		// Sample pool statistics every 15 seconds
		collector := metrics.NewDBCollector(pool)
		g.Go(func() error {
			collector.Start(gCtx, 15*time.Second)
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdownRequested) {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func gracefulShutdown(server *http.Server, timeout time.Duration, logger zerolog.Logger) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
