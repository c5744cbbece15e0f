package experiments

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/applied-statistics/competitions/batch"
	"github.com/applied-statistics/competitions/experiments/metrics"
	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/scenario"
	"github.com/rs/zerolog/log"
)

// Entry is a fund submitted to a leaderboard: a sector and a bet fraction.
type Entry struct {
	Name     string  `json:"name" yaml:"name" validate:"required"`
	Sector   string  `json:"sector" yaml:"sector" validate:"required"`
	Fraction float64 `json:"f" yaml:"f" validate:"gte=0,lte=1"`
}

type LeaderboardConfig struct {
	Market  string      `json:"market" yaml:"market" validate:"required"`
	Initial float64     `json:"initial_balance" yaml:"initial_balance" validate:"gt=0"`
	Steps   int         `json:"n_steps" yaml:"n_steps" validate:"gte=0"`
	Sims    int         `json:"n_sims" yaml:"n_sims" validate:"gte=1"`
	Payoff  fund.Payoff `json:"payoff" yaml:"payoff"`
	Entries []Entry     `json:"entries" yaml:"entries" validate:"dive"`
}

func DefaultLeaderboardConfig(market string, entries ...Entry) LeaderboardConfig {
	return LeaderboardConfig{
		Market:  market,
		Initial: meta.STARTING_BALANCE,
		Steps:   meta.FUND_STEPS,
		Sims:    meta.FUND_SIMS,
		Payoff:  fund.NetOdds,
		Entries: entries,
	}
}

// Row is one entry's summarised results.
type Row struct {
	Entry
	Result batch.FundResult `json:"result"`
}

func (r Row) Record() metrics.LeaderboardRecord {
	return metrics.LeaderboardRecord{
		Name:           r.Name,
		Sector:         r.Sector,
		Fraction:       r.Fraction,
		Probability:    r.Result.Params.Probability,
		Payout:         r.Result.Params.Payout,
		Median:         r.Result.Median,
		InsolvencyRate: r.Result.InsolvencyRate,
		Min:            r.Result.Min,
		Q1:             r.Result.Q1,
		Q3:             r.Result.Q3,
		Max:            r.Result.Max,
		Mean:           r.Result.Mean,
	}
}

// RunFundLeaderboard simulates every entry in cfg.Market with the success
// probability matrix assigns its sector, and ranks rows by median final balance.
// Every entry is checked before any simulation starts.
func RunFundLeaderboard(ctx context.Context, runner *batch.Runner, matrix scenario.Matrix, cfg LeaderboardConfig) ([]Row, error) {
	if len(cfg.Entries) == 0 {
		return nil, fmt.Errorf("leaderboard needs at least one entry")
	}

	funds := make([]fund.Params, len(cfg.Entries))
	for i, e := range cfg.Entries {
		sector, err := scenario.FindSector(e.Sector)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Name, err)
		}
		p, err := matrix.Probability(cfg.Market, sector.Name)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Name, err)
		}
		funds[i] = fund.Params{
			Initial:     cfg.Initial,
			Fraction:    e.Fraction,
			Probability: p,
			Payout:      sector.Payout,
			Steps:       cfg.Steps,
			Payoff:      cfg.Payoff,
		}
		if err := funds[i].Validate(); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Name, err)
		}
	}

	log.Info().Msgf("starting fund leaderboard of %d entries in a %s market...", len(cfg.Entries), cfg.Market)

	rows := make([]Row, 0, len(cfg.Entries))
	for i, e := range cfg.Entries {
		res, err := runner.RunFund(ctx, funds[i], cfg.Sims, false)
		if err != nil {
			return sortRows(rows), err
		}
		rows = append(rows, Row{Entry: e, Result: res})
		log.Info().Msgf("completed entry %d of %d: %s median %.2f", i+1, len(cfg.Entries), e.Name, res.Median)
	}

	log.Info().Msg("completed fund leaderboard")
	return sortRows(rows), nil
}

func sortRows(rows []Row) []Row {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Compare(b.Result.Median, a.Result.Median)
	})
	return rows
}
