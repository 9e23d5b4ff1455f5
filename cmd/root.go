// Package cmd implements the querybird CLI using cobra.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/querybird/querybird/internal/config"
	"github.com/querybird/querybird/internal/dependency"
	"github.com/querybird/querybird/internal/logging"
)

const version = "0.1.0"
const logo = "🐦"

var (
	configPath string
	showLogs   bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "querybird",
	Short: logo + " querybird: ask questions of the employees database and Wikipedia",
	Long: logo + " querybird is a tool-calling assistant that answers questions from a\n" +
		"Postgres employees database and Wikipedia, remembering each session.",
	SilenceUsage: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.querybird/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&showLogs, "logs", false, "Show runtime logs")

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statusCmd)
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.ConfigPath()
}

// bootstrap loads config, installs the logger and builds the container.
// The returned cleanup closes the container and the log file.
func bootstrap(ctx context.Context) (*dependency.Container, func(), error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	closeLog, err := logging.Setup(cfg.Log, showLogs)
	if err != nil {
		return nil, nil, err
	}

	container, err := dependency.New(ctx, cfg)
	if err != nil {
		_ = closeLog()
		return nil, nil, err
	}

	cleanup := func() {
		if err := container.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close: %v\n", err)
		}
		_ = closeLog()
	}
	return container, cleanup, nil
}
