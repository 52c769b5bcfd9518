package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/ganymede/pkg/bootstrap"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/telemetry/logging"
)

var bootstrapFlags struct {
	application string
	environment string
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Provision configuration repositories for an application",
	Long: `Provision configuration repositories for an application without
starting the server.

With only --application, the application is provisioned in every
registered environment. With --environment, only that environment is
provisioned.

Examples:
  # Provision billing in all registered environments
  ganymede bootstrap --application billing

  # Provision billing in staging only
  ganymede bootstrap --application billing --environment staging`,
	RunE: runBootstrap,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)

	bootstrapCmd.Flags().StringVarP(&bootstrapFlags.application, "application", "a", "", "application name (required)")
	bootstrapCmd.Flags().StringVarP(&bootstrapFlags.environment, "environment", "e", "", "limit provisioning to one environment")
	_ = bootstrapCmd.MarkFlagRequired("application")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	slog.SetDefault(logger)

	backend, cleanup, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// No directory cache runs in one-shot mode, so no refresher.
	pipeline, err := bootstrap.NewPipeline(backend,
		bootstrap.NewConfigRegistry(&cfg.Registry),
		bootstrap.NewTemplateRenderer(&cfg.Registry),
		nil, logger)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap pipeline: %w", err)
	}

	ctx := cmd.Context()

	if bootstrapFlags.environment != "" {
		info, err := pipeline.CreateApplicationEnvironment(ctx,
			bootstrapFlags.application, bootstrapFlags.environment)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", info.Name)
		return nil
	}

	created, err := pipeline.CreateApplication(ctx, bootstrapFlags.application)
	for _, info := range created {
		fmt.Printf("created %s\n", info.Name)
	}
	return err
}
