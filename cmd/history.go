package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/querybird/querybird/internal/shared/cmdutils"
)

var historySession string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a session's summaries and exchanges",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historySession, "session", "s", "", "Session ID")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historySession == "" {
		return errors.New("--session is required")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	container, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := container.Store()
	if err != nil {
		return err
	}
	summaries, err := store.ListSummaries(ctx, historySession)
	if err != nil {
		return err
	}
	exchanges, err := store.ListExchanges(ctx, historySession)
	if err != nil {
		return err
	}
	if len(summaries) == 0 && len(exchanges) == 0 {
		fmt.Printf("No history for session %s\n", historySession)
		return nil
	}

	fmt.Printf("%s Session %s: %d summaries, %d exchanges\n\n", logo, historySession, len(summaries), len(exchanges))
	cmdutils.FprintHistory(os.Stdout, summaries, exchanges)
	return nil
}
