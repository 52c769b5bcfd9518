package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - Git-backed versioned configuration store",
	Long: `Ganymede stores application configuration in Git, one repository per
application/environment pair, and serves any historical revision of the
configuration documents over HTTP.

It provides:
  - Versioned reads of three configuration categories per repository
  - Commit history per repository, newest first
  - Repository bootstrap for new applications from registry templates
  - A cached repository directory with backend health tracking`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
