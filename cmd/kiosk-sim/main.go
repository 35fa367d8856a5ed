// Package main provides the kiosk-sim CLI, a load generator for the kiosk API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/varkiosk/internal/simulator"
	"github.com/okian/varkiosk/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

var (
	simURL           string
	simPlayers       int
	simRounds        int
	simTopN          int
	simTimeout       time.Duration
	simPoll          time.Duration
	simFreezeTimeout time.Duration
	simRunTimeout    time.Duration
	simWidth         float64
	simHeight        float64
	simSeed          int64
	simVerbose       bool
	simLogFormat     string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "kiosk-sim",
		Short:        "Simulate concurrent kiosk players against a running server",
		SilenceUsage: true,
		RunE:         runSimulation,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&simURL, "url", "http://localhost:9080", "base URL of the service")
	flags.IntVar(&simPlayers, "players", simulator.DefaultPlayers, "number of concurrent players")
	flags.IntVar(&simRounds, "rounds", simulator.DefaultRounds, "rounds per player")
	flags.IntVar(&simTopN, "top", simulator.DefaultTopN, "leaderboard entries to fetch and verify")
	flags.DurationVar(&simTimeout, "timeout", simulator.DefaultTimeout, "HTTP request timeout")
	flags.DurationVar(&simPoll, "poll", simulator.DefaultPollInterval, "session poll interval while the replay plays")
	flags.DurationVar(&simFreezeTimeout, "freeze-timeout", simulator.DefaultFreezeTimeout, "maximum wait for the replay to freeze")
	flags.DurationVar(&simRunTimeout, "run-timeout", defaultRunTimeout, "overall run timeout")
	flags.Float64Var(&simWidth, "width", simulator.DefaultWidth, "display width clicks are drawn from")
	flags.Float64Var(&simHeight, "height", simulator.DefaultHeight, "display height clicks are drawn from")
	flags.Int64Var(&simSeed, "seed", 0, "random seed (0 seeds from the clock)")
	flags.BoolVarP(&simVerbose, "verbose", "v", false, "log every round")
	flags.StringVar(&simLogFormat, "log-format", logger.FormatText, "log format: text or json")

	return rootCmd
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	if err := logger.Init(logger.WithFormat(simLogFormat), logger.WithOutput(cmd.OutOrStdout())); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if simVerbose {
		_ = logger.SetLevelString("debug")
	}

	runner, err := simulator.NewRunner(simulator.Config{
		BaseURL:       simURL,
		Players:       simPlayers,
		Rounds:        simRounds,
		TopN:          simTopN,
		Timeout:       simTimeout,
		PollInterval:  simPoll,
		FreezeTimeout: simFreezeTimeout,
		Width:         simWidth,
		Height:        simHeight,
		Seed:          simSeed,
		Verbose:       simVerbose,
	}, logger.Named("simulator"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, simRunTimeout)
	defer cancel()

	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if stats.RoundsFailed > 0 {
		return fmt.Errorf("%d of %d rounds failed", stats.RoundsFailed, stats.RoundsPlayed)
	}
	return nil
}
