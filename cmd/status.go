package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show querybird status",
	RunE:  runStatus,
}

type statusLine struct {
	label  string
	detail string
	err    error
}

func (s statusLine) String() string {
	if s.err != nil {
		return fmt.Sprintf("%-12s ✗ %v", s.label, s.err)
	}
	return fmt.Sprintf("%-12s ✓ %s", s.label, s.detail)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := resolvedConfigPath()

	fmt.Printf("%s querybird Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗ (defaults)"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("%-12s %s %s\n", "Config:", cfgPath, cfgMark)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	container, cleanup, err := bootstrap(ctx)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}
	defer cleanup()
	cfg := container.Config()

	// Each check writes only its own slot.
	lines := make([]statusLine, 3)
	var g errgroup.Group

	g.Go(func() error {
		line := statusLine{label: "LLM:"}
		if p, err := container.Provider(); err != nil {
			line.err = err
		} else if spec := cfg.MatchProvider(); spec != nil {
			line.detail = fmt.Sprintf("%s / %s", spec.Label(), p.DefaultModel())
		} else {
			line.detail = p.DefaultModel()
		}
		lines[0] = line
		return nil
	})
	g.Go(func() error {
		line := statusLine{label: "Memory:", detail: cfg.Memory.Backend}
		store, err := container.Store()
		if err == nil {
			err = store.Ping(ctx)
		}
		line.err = err
		lines[1] = line
		return nil
	})
	g.Go(func() error {
		line := statusLine{label: "Database:", detail: "schema " + cfg.Database.Schema}
		runner, err := container.Runner()
		if err == nil {
			err = runner.Ping(ctx)
		}
		line.err = err
		lines[2] = line
		return nil
	})
	_ = g.Wait()

	for _, l := range lines {
		fmt.Println(l)
	}
	fmt.Printf("%-12s threshold %d exchanges, summary ≤ %d words\n", "Summaries:", cfg.Memory.MaxMessages, cfg.Memory.SummaryLength)
	return nil
}
