package batch

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/applied-statistics/competitions/stopping"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Tally is the running total of a stopping policy's trials. The caller owns it
// and threads it through successive RunStopping calls.
type Tally struct {
	N          int             `json:"n"`
	Cutoff     int             `json:"cutoff"`
	Scheme     sequence.Scheme `json:"scheme"`
	Trials     int             `json:"trials"`
	Wins       int             `json:"wins"`
	Forced     int             `json:"forced"`
	RankCounts []int           `json:"rank_counts"` // RankCounts[r-1] trials selected rank r
}

// NewTally starts an empty tally for sequences of n candidates.
func NewTally(n, cutoff int, scheme sequence.Scheme) (Tally, error) {
	t := Tally{N: n, Cutoff: cutoff, Scheme: scheme}
	if err := t.validate(); err != nil {
		return Tally{}, err
	}
	t.RankCounts = make([]int, n)
	return t, nil
}

func (t Tally) validate() error {
	if err := params.AtLeast("n", t.N, 1); err != nil {
		return err
	}
	if err := params.Between("cutoff", t.Cutoff, 0, t.N); err != nil {
		return err
	}
	if t.Scheme != sequence.Permutation && t.Scheme != sequence.Shifted {
		return &params.Error{Name: "scheme", Value: int(t.Scheme), Range: "permutation or shifted"}
	}
	return nil
}

func (t Tally) WinRate() float64 {
	if t.Trials == 0 {
		return 0
	}
	return float64(t.Wins) / float64(t.Trials)
}

// RankDistribution is the share of trials that selected each rank, best first.
func (t Tally) RankDistribution() []float64 {
	dist := make([]float64, len(t.RankCounts))
	if t.Trials == 0 {
		return dist
	}
	for i, c := range t.RankCounts {
		dist[i] = float64(c) / float64(t.Trials)
	}
	return dist
}

// MeanRank is the average rank selected, 1 being the best.
func (t Tally) MeanRank() float64 {
	if t.Trials == 0 {
		return 0
	}
	ranks := make([]float64, len(t.RankCounts))
	weights := make([]float64, len(t.RankCounts))
	for i, c := range t.RankCounts {
		ranks[i] = float64(i + 1)
		weights[i] = float64(c)
	}
	return stat.Mean(ranks, weights)
}

// WilsonInterval is the Wilson score interval of the win rate at the given
// confidence level, e.g. 0.95.
func (t Tally) WilsonInterval(level float64) (lo, hi float64) {
	if t.Trials == 0 {
		return 0, 1
	}
	z := distuv.UnitNormal.Quantile(1 - (1-level)/2)
	n := float64(t.Trials)
	p := t.WinRate()
	z2 := z * z
	centre := (p + z2/(2*n)) / (1 + z2/n)
	half := z / (1 + z2/n) * math.Sqrt(p*(1-p)/n+z2/(4*n*n))
	return max(0, centre-half), min(1, centre+half)
}

// Merge adds the trials of o to t. Both must describe the same policy.
func (t Tally) Merge(o Tally) (Tally, error) {
	if t.N != o.N || t.Cutoff != o.Cutoff || t.Scheme != o.Scheme {
		return Tally{}, fmt.Errorf("cannot merge tally n=%d cutoff=%d %s with n=%d cutoff=%d %s",
			t.N, t.Cutoff, t.Scheme, o.N, o.Cutoff, o.Scheme)
	}
	merged := t.clone()
	merged.Trials += o.Trials
	merged.Wins += o.Wins
	merged.Forced += o.Forced
	for i, c := range o.RankCounts {
		merged.RankCounts[i] += c
	}
	return merged, nil
}

func (t Tally) clone() Tally {
	c := t
	c.RankCounts = make([]int, t.N)
	copy(c.RankCounts, t.RankCounts)
	return c
}

type stoppingTrial struct {
	rank   int
	forced bool
}

// RunStopping plays trials more stopping problems for acc's policy and returns
// the updated tally. Trial streams continue from acc.Trials, so running 500
// and then 500 more trials with one seed matches a single run of 1000.
// On cancellation the returned tally holds every completed checkpoint.
func (r *Runner) RunStopping(ctx context.Context, acc Tally, trials int) (Tally, error) {
	if err := acc.validate(); err != nil {
		return acc, err
	}
	if err := params.AtLeast("n_trials", trials, 1); err != nil {
		return acc, err
	}
	if len(acc.RankCounts) != acc.N {
		return acc, &params.Error{Name: "rank_counts", Value: len(acc.RankCounts), Range: fmt.Sprintf("of length %d", acc.N)}
	}

	out := acc.clone()
	r.metrics.Start("stopping", r.goroutines)
	_, err := run(ctx, r, "stopping", acc.Trials, trials,
		func(src *rand.Rand) stoppingTrial {
			return playStopping(acc.N, acc.Cutoff, acc.Scheme, src)
		},
		func(res stoppingTrial) {
			out.Trials++
			out.RankCounts[res.rank-1]++
			if res.rank == 1 {
				out.Wins++
				r.metrics.AddWin()
			}
			if res.forced {
				out.Forced++
			}
		})
	m := r.metrics.Complete()

	if err != nil {
		log.Warn().Err(err).Msgf("stopping batch n=%d cutoff=%d stopped after %d of %d trials", acc.N, acc.Cutoff, out.Trials-acc.Trials, trials)
		return out, err
	}
	log.Debug().Msgf("stopping batch n=%d cutoff=%d: %d trials, win rate %.4f in %s", acc.N, acc.Cutoff, out.Trials, out.WinRate(), m.Duration)
	return out, nil
}

func playStopping(n, cutoff int, scheme sequence.Scheme, src *rand.Rand) stoppingTrial {
	seq, err := sequence.GenerateWith(scheme, n, src)
	if err != nil {
		panic(err) // Parameters are validated before the batch starts
	}
	sel, err := stopping.Evaluate(seq, cutoff)
	if err != nil {
		panic(err)
	}
	return stoppingTrial{rank: seq.Rank(sel.Position), forced: sel.Forced}
}
