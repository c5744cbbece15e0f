package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/applied-statistics/competitions/batch"
	"github.com/applied-statistics/competitions/communication"
	"github.com/applied-statistics/competitions/communication/client"
	"github.com/applied-statistics/competitions/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	logLevel   string
	seed       uint64
	goroutines int
	remote     string
	outputDir  string
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "competitions",
		Short:         "Optimal stopping and fund growth simulations for the classroom",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed for reproducible runs (random when unset)")
	flags.IntVar(&opts.goroutines, "goroutines", 0, "goroutines per batch (config default when unset)")
	flags.StringVar(&opts.remote, "remote", "", "run simulations on this server instead of in process")
	flags.StringVar(&opts.outputDir, "out", "", "directory for CSV exports (config default when unset)")

	root.AddCommand(
		stoppingCmd(opts),
		fundCmd(opts),
		careerCmd(opts),
		raceCmd(opts),
		revealCmd(opts),
		leaderboardCmd(opts),
		auditCmd(opts),
		serveCmd(opts),
	)
	return root
}

// load reads the config file, if any, and applies the persistent flags over it.
func (o *options) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		cfg, err = config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		seed := o.seed
		cfg.Seed = &seed
	}
	if flags.Changed("goroutines") {
		cfg.Goroutines = o.goroutines
	}
	if flags.Changed("out") {
		cfg.OutputDir = o.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) runner(cfg *config.Config) *batch.Runner {
	options := append(cfg.RunnerOptions(), batch.WithCheckpoint(cfg.Checkpoint, logProgress))
	return batch.NewRunner(options...)
}

// simulator runs in process unless --remote names a server.
func (o *options) simulator(cfg *config.Config) communication.Simulator {
	if o.remote != "" {
		log.Info().Msgf("running simulations on %s", o.remote)
		return client.NewClient(o.remote)
	}
	return communication.NewLocal(
		communication.WithRunnerOptions(cfg.RunnerOptions()...),
		communication.WithRunnerOptions(batch.WithCheckpoint(cfg.Checkpoint, logProgress)),
	)
}

func logProgress(p batch.Progress) {
	log.Debug().Msgf("%s batch: %d of %d trials", p.Kind, p.Done, p.Total)
}
