// Package experiments runs the classroom competitions on top of the batch
// engines: stopping races, fund leaderboards and live reveals.
package experiments

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/applied-statistics/competitions/batch"
	"github.com/applied-statistics/competitions/experiments/metrics"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/rs/zerolog/log"
)

// Contestant is a stopping policy entered into a race or reveal.
type Contestant struct {
	Name   string `json:"name" yaml:"name" validate:"required"`
	Cutoff int    `json:"cutoff" yaml:"cutoff" validate:"gte=0"`
}

// Standing is a contestant's tally so far.
type Standing struct {
	Contestant
	Tally batch.Tally `json:"tally"`
}

func (s Standing) Record() metrics.StandingRecord {
	lo, hi := s.Tally.WilsonInterval(0.95)
	return metrics.StandingRecord{
		Name:     s.Name,
		Cutoff:   s.Cutoff,
		Trials:   s.Tally.Trials,
		Wins:     s.Tally.Wins,
		WinRate:  s.Tally.WinRate(),
		Low:      lo,
		High:     hi,
		MeanRank: s.Tally.MeanRank(),
	}
}

// RaceConfig describes a stopping race.
type RaceConfig struct {
	N           int             `json:"n" yaml:"n" validate:"gte=1"`
	Scheme      sequence.Scheme `json:"scheme" yaml:"scheme"`
	Trials      int             `json:"trials" yaml:"trials" validate:"gte=1"`
	Round       int             `json:"round" yaml:"round" validate:"gte=1"`
	Contestants []Contestant    `json:"contestants" yaml:"contestants" validate:"dive"`
}

func DefaultRaceConfig(contestants ...Contestant) RaceConfig {
	return RaceConfig{
		N:           meta.SEQUENCE_LENGTH,
		Scheme:      sequence.Permutation,
		Trials:      meta.RACE_TRIALS,
		Round:       meta.RACE_ROUND,
		Contestants: contestants,
	}
}

func validateContestants(n int, contestants []Contestant) error {
	if len(contestants) == 0 {
		return &params.Error{Name: "contestants", Value: 0, Range: "at least one"}
	}
	seen := make(map[string]bool, len(contestants))
	for _, c := range contestants {
		if c.Name == "" {
			return &params.Error{Name: "name", Value: c.Name, Range: "non-empty"}
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate contestant %q", c.Name)
		}
		seen[c.Name] = true
		if err := params.Between("cutoff", c.Cutoff, 0, n); err != nil {
			return fmt.Errorf("contestant %q: %w", c.Name, err)
		}
	}
	return nil
}

// RunStoppingRace plays cfg.Trials stopping problems for every contestant, in
// rounds of cfg.Round trials. All contestants face the same sequences because
// they share the runner's seed. onRound, if set, sees the standings after each
// round. A cancelled race returns the standings of the completed rounds.
func RunStoppingRace(ctx context.Context, runner *batch.Runner, cfg RaceConfig, onRound func(done int, standings []Standing)) ([]Standing, error) {
	if err := params.First(
		params.AtLeast("n", cfg.N, 1),
		params.AtLeast("trials", cfg.Trials, 1),
		params.AtLeast("round", cfg.Round, 1),
	); err != nil {
		return nil, err
	}
	if err := validateContestants(cfg.N, cfg.Contestants); err != nil {
		return nil, err
	}

	standings := make([]Standing, len(cfg.Contestants))
	for i, c := range cfg.Contestants {
		tally, err := batch.NewTally(cfg.N, c.Cutoff, cfg.Scheme)
		if err != nil {
			return nil, err
		}
		standings[i] = Standing{Contestant: c, Tally: tally}
	}

	log.Info().Msgf("starting stopping race of %d contestants over %d trials...", len(standings), cfg.Trials)

	done := 0
	for done < cfg.Trials {
		size := min(cfg.Round, cfg.Trials-done)
		last := slices.Clone(standings)
		for i := range standings {
			tally, err := runner.RunStopping(ctx, standings[i].Tally, size)
			if err != nil {
				log.Warn().Err(err).Msgf("stopping race halted after %d trials", done)
				return rank(last), err
			}
			standings[i].Tally = tally
		}
		done += size

		log.Debug().Msgf("completed race round %d of %d", done, cfg.Trials)
		if onRound != nil {
			onRound(done, rank(standings))
		}
	}

	standings = rank(standings)
	log.Info().Msgf("completed stopping race, leader %s with win rate %.3f", standings[0].Name, standings[0].Tally.WinRate())
	return standings, nil
}

// rank orders a copy of standings by win rate, best first.
func rank(standings []Standing) []Standing {
	ranked := slices.Clone(standings)
	slices.SortStableFunc(ranked, func(a, b Standing) int {
		return cmp.Compare(b.Tally.WinRate(), a.Tally.WinRate())
	})
	return ranked
}
