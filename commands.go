package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/applied-statistics/competitions/communication"
	"github.com/applied-statistics/competitions/communication/server"
	"github.com/applied-statistics/competitions/experiments"
	"github.com/applied-statistics/competitions/experiments/metrics"
	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/rng"
	"github.com/applied-statistics/competitions/scenario"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/applied-statistics/competitions/stopping"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func stoppingCmd(opts *options) *cobra.Command {
	var n, cutoff, trials int
	var scheme string
	cmd := &cobra.Command{
		Use:   "stopping",
		Short: "Estimate the win rate of a look-then-leap cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			s, err := sequence.ParseScheme(scheme)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("cutoff") {
				cutoff = stopping.OptimalCutoff(n)
			}

			res, err := opts.simulator(cfg).RunStopping(cmd.Context(), communication.StoppingBatchRequest{
				N: n, Cutoff: cutoff, Scheme: s, Trials: trials, Seed: cfg.Seed,
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "n\tcutoff\ttrials\twin rate\t95%% interval\tmean rank\tforced\tseed\n")
			fmt.Fprintf(w, "%d\t%d\t%d\t%.4f\t[%.4f, %.4f]\t%.2f\t%d\t%d\n",
				n, cutoff, res.Tally.Trials, res.WinRate, res.Interval[0], res.Interval[1], res.MeanRank, res.Tally.Forced, res.Seed)
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&n, "n", meta.SEQUENCE_LENGTH, "candidates per sequence")
	cmd.Flags().IntVar(&cutoff, "cutoff", 0, "look-phase length (n/e when unset)")
	cmd.Flags().IntVar(&trials, "trials", 10*meta.CHECKPOINT_TRIALS, "number of trials")
	cmd.Flags().StringVar(&scheme, "scheme", "permutation", "sequence scheme (permutation, shifted)")
	return cmd
}

func fundFlags(cmd *cobra.Command, p *fund.Params, payoff *string) {
	cmd.Flags().Float64Var(&p.Initial, "initial", meta.STARTING_BALANCE, "starting balance")
	cmd.Flags().Float64Var(&p.Fraction, "f", 0.1, "fraction of the balance bet each round")
	cmd.Flags().Float64Var(&p.Probability, "p", 0.5, "win probability")
	cmd.Flags().Float64Var(&p.Payout, "b", 1, "payout odds")
	cmd.Flags().IntVar(&p.Steps, "steps", meta.FUND_STEPS, "rounds per path")
	cmd.Flags().StringVar(payoff, "payoff", "net", "payoff convention (net, gross)")
}

func fundCmd(opts *options) *cobra.Command {
	var p fund.Params
	var payoff string
	var sims int
	var history bool
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Simulate fund paths under a fixed bet fraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if p.Payoff, err = fund.ParsePayoff(payoff); err != nil {
				return err
			}

			res, err := opts.simulator(cfg).RunFund(cmd.Context(), communication.FundBatchRequest{
				Params: p, Sims: sims, KeepHistory: history, Seed: cfg.Seed,
			})
			if err != nil {
				return err
			}

			r := res.Result
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "sims\tmedian\tmean\tstd dev\tmin\tq1\tq3\tmax\tinsolvency\tseed\n")
			fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d\n",
				r.Sims, r.Median, r.Mean, r.StdDev, r.Min, r.Q1, r.Q3, r.Max, r.InsolvencyRate, res.Seed)
			if err := w.Flush(); err != nil {
				return err
			}

			if history {
				writer, err := metrics.NewWriter(cfg.OutputDir, "fund")
				if err != nil {
					return err
				}
				paths := make([][]float64, len(r.History))
				for i, path := range r.History {
					paths[i] = path
				}
				if err := writer.WritePaths("fund", paths); err != nil {
					return err
				}
				log.Info().Msgf("stored %d paths in %s", len(paths), writer.Dir())
			}
			return nil
		},
	}
	fundFlags(cmd, &p, &payoff)
	cmd.Flags().IntVar(&sims, "sims", meta.FUND_SIMS, "number of paths")
	cmd.Flags().BoolVar(&history, "history", false, "export every path to CSV")
	return cmd
}

func careerCmd(opts *options) *cobra.Command {
	var p float64
	var deals int
	cmd := &cobra.Command{
		Use:   "career",
		Short: "Count wins and the longest losing streak over a career of deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			seed := rng.RandomSeed()
			if cfg.Seed != nil {
				seed = *cfg.Seed
			}
			career, err := fund.SimulateCareer(p, deals, fund.NewBernoulli(rng.New(seed)))
			if err != nil {
				return err
			}
			fmt.Printf("%d wins in %d deals, longest losing streak %d (seed %d)\n", career.Wins, deals, career.MaxLosingStreak, seed)
			return nil
		},
	}
	cmd.Flags().Float64Var(&p, "p", 0.5, "win probability of each deal")
	cmd.Flags().IntVar(&deals, "deals", meta.CAREER_DEALS, "number of deals")
	return cmd
}

// parseContestants reads name=cutoff pairs.
func parseContestants(raw []string) ([]experiments.Contestant, error) {
	contestants := make([]experiments.Contestant, 0, len(raw))
	for _, s := range raw {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("contestant %q: want name=cutoff", s)
		}
		cutoff, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("contestant %q: %w", s, err)
		}
		contestants = append(contestants, experiments.Contestant{Name: name, Cutoff: cutoff})
	}
	return contestants, nil
}

func raceCmd(opts *options) *cobra.Command {
	var raw []string
	cmd := &cobra.Command{
		Use:   "race",
		Short: "Race stopping cutoffs against each other on shared sequences",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			race := cfg.Race
			if len(raw) > 0 {
				if race.Contestants, err = parseContestants(raw); err != nil {
					return err
				}
			}

			standings, err := experiments.RunStoppingRace(cmd.Context(), opts.runner(cfg), race, func(done int, s []experiments.Standing) {
				log.Info().Msgf("after %d trials: %s leads with %.3f", done, s[0].Name, s[0].Tally.WinRate())
			})
			if len(standings) == 0 {
				return err
			}

			records := make([]metrics.StandingRecord, len(standings))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "#\tname\tcutoff\ttrials\twin rate\t95%% interval\tmean rank\n")
			for i, s := range standings {
				records[i] = s.Record()
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.4f\t[%.4f, %.4f]\t%.2f\n",
					i+1, s.Name, s.Cutoff, records[i].Trials, records[i].WinRate, records[i].Low, records[i].High, records[i].MeanRank)
			}
			if err := errors.Join(err, w.Flush()); err != nil {
				return err
			}
			return store(cfg.OutputDir, "race", func(writer *metrics.Writer) error {
				return writer.WriteStandings(records)
			})
		},
	}
	cmd.Flags().StringArrayVar(&raw, "contestant", nil, "contestant as name=cutoff (repeatable)")
	return cmd
}

func revealCmd(opts *options) *cobra.Command {
	var raw []string
	var n int
	var delay time.Duration
	cmd := &cobra.Command{
		Use:   "reveal",
		Short: "Reveal one sequence step by step to many contestants",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			contestants := cfg.Race.Contestants
			if len(raw) > 0 {
				if contestants, err = parseContestants(raw); err != nil {
					return err
				}
			}
			seed := rng.RandomSeed()
			if cfg.Seed != nil {
				seed = *cfg.Seed
			}
			seq, err := sequence.Generate(n, rng.New(seed))
			if err != nil {
				return err
			}
			reveal, err := experiments.NewReveal(seq, contestants)
			if err != nil {
				return err
			}

			for !reveal.Done() {
				value, _ := reveal.Next()
				for _, s := range reveal.Statuses() {
					if s.State == experiments.Booked && s.Step == reveal.Step() {
						log.Info().Msgf("step %d: %s booked %d (rank %d)", s.Step, s.Name, s.Value, s.Rank)
					}
				}
				log.Debug().Msgf("step %d revealed %d", reveal.Step(), value)
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(delay):
				}
			}

			best, value := seq.Best()
			fmt.Printf("best candidate was %d at step %d; winners: %s\n", value, best, strings.Join(reveal.Winners(), ", "))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&raw, "contestant", nil, "contestant as name=cutoff (repeatable)")
	cmd.Flags().IntVar(&n, "n", meta.SEQUENCE_LENGTH, "candidates in the sequence")
	cmd.Flags().DurationVar(&delay, "delay", 0, "pause between reveals")
	return cmd
}

// parseEntries reads name:sector:f triples.
func parseEntries(raw []string) ([]experiments.Entry, error) {
	entries := make([]experiments.Entry, 0, len(raw))
	for _, s := range raw {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q: want name:sector:f", s)
		}
		f, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", s, err)
		}
		entries = append(entries, experiments.Entry{Name: parts[0], Sector: parts[1], Fraction: f})
	}
	return entries, nil
}

func leaderboardCmd(opts *options) *cobra.Command {
	var raw []string
	var lab, market string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank funds of one market by median final balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			board := cfg.Leaderboard
			if len(raw) > 0 {
				if board.Entries, err = parseEntries(raw); err != nil {
					return err
				}
			}
			if market != "" {
				board.Market = market
			}
			if lab == "" {
				lab = cfg.Lab
			}
			if lab == "" {
				return &params.Error{Name: "lab", Value: lab, Range: "non-empty (--lab or config lab)"}
			}

			rows, err := experiments.RunFundLeaderboard(cmd.Context(), opts.runner(cfg), scenario.ForLab(lab), board)
			if len(rows) == 0 {
				return err
			}

			records := make([]metrics.LeaderboardRecord, len(rows))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "#\tname\tsector\tf\tmedian\tinsolvency\tmin\tq1\tq3\tmax\tmean\n")
			for i, row := range rows {
				r := row.Record()
				records[i] = r
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
					i+1, r.Name, r.Sector, r.Fraction, r.Median, r.InsolvencyRate, r.Min, r.Q1, r.Q3, r.Max, r.Mean)
			}
			if err := errors.Join(err, w.Flush()); err != nil {
				return err
			}
			return store(cfg.OutputDir, "leaderboard", func(writer *metrics.Writer) error {
				return writer.WriteLeaderboard(records)
			})
		},
	}
	cmd.Flags().StringArrayVar(&raw, "entry", nil, "entry as name:sector:f (repeatable)")
	cmd.Flags().StringVar(&lab, "lab", "", "lab identity the probabilities derive from (config lab when unset)")
	cmd.Flags().StringVar(&market, "market", "", "market condition (config market when unset)")
	return cmd
}

func auditCmd(opts *options) *cobra.Command {
	var lab, market, sector string
	var estimate float64
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Sample past ventures of a market and sector",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if lab == "" {
				lab = cfg.Lab
			}
			report, err := opts.simulator(cfg).Audit(cmd.Context(), lab, market, sector)
			if err != nil {
				return err
			}
			fmt.Printf("%d of %d ventures succeeded: %d execution failures, %d market failures\n",
				report.Wins, report.Sample, report.ExecutionFailures, report.MarketFailures)

			if cmd.Flags().Changed("estimate") {
				if report.VerifyEstimate(estimate) {
					fmt.Printf("estimate %.3f verified\n", estimate)
				} else {
					fmt.Printf("estimate %.3f rejected\n", estimate)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&lab, "lab", "", "lab identity (config lab when unset)")
	cmd.Flags().StringVar(&market, "market", "boom", "market condition")
	cmd.Flags().StringVar(&sector, "sector", "basics", "sector")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "success rate estimate to verify")
	return cmd
}

func serveCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			prom, err := metrics.NewPrometheus(reg)
			if err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}
			sim := communication.NewLocal(
				communication.WithRunnerOptions(cfg.RunnerOptions()...),
				communication.WithMaxTrials(cfg.Server.MaxTrials),
				communication.WithCollector(prom.Collector),
			)
			s := server.New(cfg.Server, sim, reg)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return s.Shutdown(shutdown)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (config server.addr when unset)")
	return cmd
}

// store writes one experiment's CSV files under a fresh run directory.
func store(root, name string, write func(*metrics.Writer) error) error {
	writer, err := metrics.NewWriter(root, name)
	if err != nil {
		return fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := write(writer); err != nil {
		return err
	}
	log.Info().Msgf("stored %s results in %s", name, writer.Dir())
	return nil
}
