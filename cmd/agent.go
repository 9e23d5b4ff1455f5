package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/querybird/querybird/internal/agent"
	"github.com/querybird/querybird/internal/metrics"
	"github.com/querybird/querybird/internal/shared/cmdutils"
)

var (
	agentMessage     string
	agentSession     string
	agentMetricsAddr string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Ask questions interactively or with a single message",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Send a single message and exit")
	agentCmd.Flags().StringVarP(&agentSession, "session", "s", "", "Session ID to resume (default: new session)")
	agentCmd.Flags().StringVar(&agentMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9091)")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runAgent(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	factory, err := container.AgentFactory()
	if err != nil {
		return err
	}
	memAgent, err := factory.NewMemoryAgent(agentSession)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Session: %s\n", memAgent.SessionID())

	if agentMessage != "" {
		return runSingleMessage(ctx, memAgent)
	}

	m, err := container.Metrics()
	if err != nil {
		return err
	}
	addr := agentMetricsAddr
	if addr == "" {
		addr = container.Config().Metrics.Addr
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr != "" {
		serveMetrics(g, gctx, addr, m)
	}
	g.Go(func() error {
		defer stop()
		return runInteractive(gctx, memAgent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runSingleMessage asks one question and prints the answer.
func runSingleMessage(ctx context.Context, a *agent.MemoryAgent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	cmdutils.PrintResponse(a.Ask(ctx, agentMessage, cmdutils.PrintProgress))
	return nil
}

// runInteractive reads questions from stdin until EOF, an exit command or
// ctx is cancelled.
func runInteractive(ctx context.Context, a *agent.MemoryAgent) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n\n", logo)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("You: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		cmdutils.PrintResponse(a.Ask(ctx, line, cmdutils.PrintProgress))
	}
}

// serveMetrics runs the Prometheus endpoint until ctx ends.
func serveMetrics(g *errgroup.Group, ctx context.Context, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
