package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/event-api/internal/config"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// Execute runs the command line. It is called by main.main().
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	serve := newServeCommand(opts)

	root := &cobra.Command{
		Use:   "server",
		Short: "Togather event API server",
		Long: `Togather event API serves published events between two dates.

The server supports:
- GET /event?start=YYYY-MM-DD&end=YYYY-MM-DD in the negotiated language
- PostgreSQL or in-memory record storage
- In-memory or Redis response caching keyed by declared cache contexts
- Prometheus metrics and OpenTelemetry tracing`,
		SilenceUsage: true,
		// Run serve when no subcommand is given
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.RunE(cmd, args)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (optional, uses env vars by default)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	// serve's own flags are accepted without the subcommand name
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newEventsCommand(opts))
	root.AddCommand(newHealthcheckCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// loadConfig reads the environment, overlays the --config file when given and
// applies the logging flags.
func loadConfig(opts *rootOptions) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
