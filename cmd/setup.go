package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the memory tables if they do not exist",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	container, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Resolving the store runs its idempotent Setup.
	if _, err := container.Store(); err != nil {
		return fmt.Errorf("set up memory store: %w", err)
	}
	cfg := container.Config()
	fmt.Printf("✓ Memory store ready (%s)\n", cfg.Memory.Backend)
	return nil
}
