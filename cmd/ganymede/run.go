package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/bootstrap"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/directory"
	"mercator-hq/ganymede/pkg/secrets"
	"mercator-hq/ganymede/pkg/server"
	"mercator-hq/ganymede/pkg/store"
	"mercator-hq/ganymede/pkg/store/github"
	"mercator-hq/ganymede/pkg/store/mirror"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede configuration server",
	Long: `Start the configuration server with the specified configuration.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override listen address
  ganymede run --listen 0.0.0.0:8080

  # Validate config without starting server
  ganymede run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	backend, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		registry       *prometheus.Registry
		metricsHandler http.Handler
	)
	if cfg.Telemetry.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		storeMetrics := metrics.NewStoreMetrics(&cfg.Telemetry.Metrics, registry)
		backend = metrics.Instrument(backend, storeMetrics)
		metricsHandler = metrics.Handler(registry)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cache, err := directory.NewCache(backend, &cfg.Directory, logger)
	if err != nil {
		return fmt.Errorf("failed to create directory cache: %w", err)
	}
	if err := cache.Start(ctx); err != nil {
		return fmt.Errorf("failed to start directory cache: %w", err)
	}
	defer cache.Stop()

	if registry != nil {
		metrics.NewDirectoryCollector(cfg.Telemetry.Metrics.Namespace,
			cfg.Telemetry.Metrics.Subsystem, cache, registry)
	}

	pipeline, err := bootstrap.NewPipeline(backend,
		bootstrap.NewConfigRegistry(&cfg.Registry),
		bootstrap.NewTemplateRenderer(&cfg.Registry),
		cache, logger)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap pipeline: %w", err)
	}

	handlers := server.NewHandlers(backend, cache, pipeline, logger)
	srv := server.NewServer(&cfg.Server, handlers, metricsHandler,
		cfg.Telemetry.Metrics.Path, logger)

	return srv.Start(ctx)
}

// buildStore constructs the configured store backend. The returned
// cleanup releases backend resources (token watcher) and is safe to
// call once.
func buildStore(cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	cleanup := func() {}

	switch cfg.Store.Backend {
	case "github":
		tokens, tokenCleanup, err := buildTokenSource(cfg, logger)
		if err != nil {
			return nil, nil, err
		}

		client, err := github.NewClient(cfg.GitHub.APIBaseURL, cfg.GitHub.Organization,
			tokens, cfg.GitHub.RequestTimeout)
		if err != nil {
			tokenCleanup()
			return nil, nil, fmt.Errorf("failed to create hosting client: %w", err)
		}

		backend, err := github.NewBackend(client, cfg.Store.Branch, logger)
		if err != nil {
			tokenCleanup()
			return nil, nil, fmt.Errorf("failed to create github backend: %w", err)
		}
		return backend, tokenCleanup, nil

	case "mirror":
		backend, err := mirror.NewBackend(&cfg.Mirror, cfg.Store.Branch, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create mirror backend: %w", err)
		}
		return backend, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// buildTokenSource prefers a watched token file over an inline token.
func buildTokenSource(cfg *config.Config, logger *slog.Logger) (github.TokenSource, func(), error) {
	if cfg.GitHub.TokenFile != "" {
		fileToken, err := secrets.NewFileToken(cfg.GitHub.TokenFile, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load token file: %w", err)
		}
		return fileToken, func() { _ = fileToken.Close() }, nil
	}
	return github.StaticToken(cfg.GitHub.Token), func() {}, nil
}
