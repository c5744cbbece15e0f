package batch

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/params"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FundResult summarises the final balances of a set of fund paths.
type FundResult struct {
	Params         fund.Params `json:"params"`
	Sims           int         `json:"n_sims"`
	Median         float64     `json:"median"`
	Mean           float64     `json:"mean"`
	StdDev         float64     `json:"std_dev"`
	Min            float64     `json:"min"`
	Q1             float64     `json:"q1"`
	Q3             float64     `json:"q3"`
	Max            float64     `json:"max"`
	InsolvencyRate float64     `json:"insolvency_rate"`
	Finals         []float64   `json:"finals"`
	History        []fund.Path `json:"history,omitempty"` // one path per sim, in trial order
}

// Summarize computes the statistics of finals. history may be nil.
func Summarize(p fund.Params, finals []float64, history []fund.Path) FundResult {
	res := FundResult{Params: p, Sims: len(finals), Finals: finals, History: history}
	if len(finals) == 0 {
		return res
	}

	sorted := slices.Clone(finals)
	slices.Sort(sorted)
	res.Mean, res.StdDev = stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		res.StdDev = 0
	}
	res.Min = floats.Min(sorted)
	res.Max = floats.Max(sorted)
	res.Median = quantile(sorted, 0.5)
	res.Q1 = quantile(sorted, 0.25)
	res.Q3 = quantile(sorted, 0.75)

	insolvent := floats.Count(func(v float64) bool { return v <= fund.InsolvencyThreshold }, sorted)
	res.InsolvencyRate = float64(insolvent) / float64(len(sorted))
	return res
}

// quantile interpolates linearly between the closest ranks of sorted, so the
// median of an even count is the mean of the middle pair.
func quantile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Merge combines two results for the same Params into one.
func (f FundResult) Merge(o FundResult) (FundResult, error) {
	if f.Params != o.Params {
		return FundResult{}, fmt.Errorf("cannot merge fund results for %+v and %+v", f.Params, o.Params)
	}
	if (f.History == nil) != (o.History == nil) && f.Sims > 0 && o.Sims > 0 {
		return FundResult{}, fmt.Errorf("cannot merge fund results with and without history")
	}
	finals := append(slices.Clone(f.Finals), o.Finals...)
	var history []fund.Path
	if f.History != nil || o.History != nil {
		history = append(slices.Clone(f.History), o.History...)
	}
	return Summarize(f.Params, finals, history), nil
}

type fundTrial struct {
	path fund.Path
}

// RunFund plays sims independent fund paths and summarises their final
// balances. The full history is kept only when keepHistory is set.
// On cancellation the result covers every completed checkpoint.
func (r *Runner) RunFund(ctx context.Context, p fund.Params, sims int, keepHistory bool) (FundResult, error) {
	acc := FundResult{Params: p}
	if keepHistory {
		acc.History = []fund.Path{}
	}
	return r.ContinueFund(ctx, acc, sims)
}

// ContinueFund plays sims more paths for acc's Params and returns the updated
// result. Trial streams continue from acc.Sims, so finishing a cancelled batch
// matches a single uninterrupted run with the same seed. History is kept when
// acc carries one.
func (r *Runner) ContinueFund(ctx context.Context, acc FundResult, sims int) (FundResult, error) {
	p := acc.Params
	if err := p.Validate(); err != nil {
		return acc, err
	}
	if err := params.AtLeast("n_sims", sims, 1); err != nil {
		return acc, err
	}
	if len(acc.Finals) != acc.Sims {
		return acc, &params.Error{Name: "finals", Value: len(acc.Finals), Range: fmt.Sprintf("of length %d", acc.Sims)}
	}
	keepHistory := acc.History != nil
	if keepHistory && len(acc.History) != acc.Sims {
		return acc, &params.Error{Name: "history", Value: len(acc.History), Range: fmt.Sprintf("of length %d", acc.Sims)}
	}

	finals := make([]float64, 0, acc.Sims+sims)
	finals = append(finals, acc.Finals...)
	var history []fund.Path
	if keepHistory {
		history = make([]fund.Path, 0, acc.Sims+sims)
		history = append(history, acc.History...)
	}

	r.metrics.Start("fund", r.goroutines)
	done, err := run(ctx, r, "fund", acc.Sims, sims,
		func(src *rand.Rand) fundTrial {
			path, err := fund.SimulatePath(p, fund.NewBernoulli(src))
			if err != nil {
				panic(err) // Parameters are validated before the batch starts
			}
			return fundTrial{path: path}
		},
		func(res fundTrial) {
			finals = append(finals, res.path.Final())
			if keepHistory {
				history = append(history, res.path)
			}
			if res.path.Insolvent() {
				r.metrics.AddInsolvency()
			}
		})
	m := r.metrics.Complete()

	res := Summarize(p, finals, history)
	if err != nil {
		log.Warn().Err(err).Msgf("fund batch f=%.2f p=%.3f b=%.2f stopped after %d of %d paths", p.Fraction, p.Probability, p.Payout, done, sims)
		return res, err
	}
	log.Debug().Msgf("fund batch f=%.2f p=%.3f b=%.2f: median %.2f, insolvency %.2f in %s", p.Fraction, p.Probability, p.Payout, res.Median, res.InsolvencyRate, m.Duration)
	return res, nil
}
