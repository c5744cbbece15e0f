package communication

import (
	"context"
	"math"
	"slices"

	"github.com/applied-statistics/competitions/batch"
	"github.com/applied-statistics/competitions/experiments/metrics"
	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/rng"
	"github.com/applied-statistics/competitions/scenario"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/applied-statistics/competitions/stopping"
	"github.com/google/uuid"
)

type LocalOption func(l *Local)

// Local runs every simulation in process.
type Local struct {
	options   []batch.Option
	maxTrials int
	collector func() metrics.Collector
	newSeed   func() uint64
}

// WithRunnerOptions applies options to every runner the simulator creates.
func WithRunnerOptions(options ...batch.Option) LocalOption {
	return func(l *Local) {
		l.options = append(l.options, options...)
	}
}

// WithMaxTrials caps sequence lengths, trials and sims of a single request.
func WithMaxTrials(maxTrials int) LocalOption {
	return func(l *Local) {
		if maxTrials > 0 {
			l.maxTrials = maxTrials
		}
	}
}

func WithCollector(fn func() metrics.Collector) LocalOption {
	return func(l *Local) {
		if fn != nil {
			l.collector = fn
		}
	}
}

func NewLocal(options ...LocalOption) *Local {
	l := &Local{ // Default values
		maxTrials: math.MaxInt,
		collector: metrics.NewDummyCollector,
		newSeed:   rng.RandomSeed,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *Local) runner(seed uint64) *batch.Runner {
	options := append(slices.Clone(l.options), batch.WithSeed(seed), batch.WithMetrics(l.collector()))
	return batch.NewRunner(options...)
}

// seedOf returns the requested seed or draws a fresh one. Call it only once
// the request is known to be valid.
func (l *Local) seedOf(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return l.newSeed()
}

func (l *Local) Sequence(_ context.Context, req SequenceRequest) (SequenceResponse, error) {
	if err := params.Between("n", req.N, 1, l.maxTrials); err != nil {
		return SequenceResponse{}, err
	}
	if req.Scheme != sequence.Permutation && req.Scheme != sequence.Shifted {
		return SequenceResponse{}, &params.Error{Name: "scheme", Value: int(req.Scheme), Range: "permutation or shifted"}
	}
	seed := l.seedOf(req.Seed)
	seq, err := sequence.GenerateWith(req.Scheme, req.N, rng.New(seed))
	if err != nil {
		return SequenceResponse{}, err
	}
	best, _ := seq.Best()
	return SequenceResponse{
		Seed:         seed,
		Scheme:       req.Scheme,
		Values:       seq,
		Ranks:        seq.Ranks(),
		BestPosition: best,
	}, nil
}

func (l *Local) Evaluate(_ context.Context, req EvaluateRequest) (EvaluateResponse, error) {
	if err := params.Between("values", len(req.Values), 1, l.maxTrials); err != nil {
		return EvaluateResponse{}, err
	}
	for _, v := range req.Values {
		if math.IsNaN(v) {
			return EvaluateResponse{}, &params.Error{Name: "values", Value: v, Range: "a number"}
		}
	}
	sel, err := stopping.Evaluate(req.Values, req.Cutoff)
	if err != nil {
		return EvaluateResponse{}, err
	}

	rank := 1
	for _, v := range req.Values {
		if v > sel.Value {
			rank++
		}
	}
	res := EvaluateResponse{
		Position: sel.Position,
		Value:    sel.Value,
		Forced:   sel.Forced,
		Rank:     rank,
		Best:     rank == 1,
	}
	if sel.HasBenchmark {
		res.Benchmark = &sel.Benchmark
	}
	return res, nil
}

func (l *Local) RunStopping(ctx context.Context, req StoppingBatchRequest) (StoppingBatchResponse, error) {
	if err := params.Between("n_trials", req.Trials, 1, l.maxTrials); err != nil {
		return StoppingBatchResponse{}, err
	}
	if err := params.Between("n", req.N, 1, l.maxTrials); err != nil {
		return StoppingBatchResponse{}, err
	}
	tally, err := batch.NewTally(req.N, req.Cutoff, req.Scheme)
	if err != nil {
		return StoppingBatchResponse{}, err
	}

	seed := l.seedOf(req.Seed)
	tally, err = l.runner(seed).RunStopping(ctx, tally, req.Trials)
	if err != nil {
		return StoppingBatchResponse{}, err
	}
	lo, hi := tally.WilsonInterval(0.95)
	return StoppingBatchResponse{
		ID:               uuid.NewString(),
		Seed:             seed,
		Tally:            tally,
		WinRate:          tally.WinRate(),
		Interval:         [2]float64{lo, hi},
		MeanRank:         tally.MeanRank(),
		RankDistribution: tally.RankDistribution(),
	}, nil
}

func (l *Local) FundPath(_ context.Context, req FundPathRequest) (FundPathResponse, error) {
	if err := params.Between("n_steps", req.Steps, 0, l.maxTrials); err != nil {
		return FundPathResponse{}, err
	}
	if err := req.Params.Validate(); err != nil {
		return FundPathResponse{}, err
	}
	seed := l.seedOf(req.Seed)
	path, err := fund.SimulatePath(req.Params, fund.NewBernoulli(rng.New(seed)))
	if err != nil {
		return FundPathResponse{}, err
	}
	return FundPathResponse{
		Seed:       seed,
		Path:       path,
		Final:      path.Final(),
		Peak:       path.Peak(),
		Trough:     path.Trough(),
		AbsorbedAt: path.AbsorbedAt(),
		Outcome:    path.Outcome().String(),
	}, nil
}

func (l *Local) RunFund(ctx context.Context, req FundBatchRequest) (FundBatchResponse, error) {
	if err := params.Between("n_sims", req.Sims, 1, l.maxTrials); err != nil {
		return FundBatchResponse{}, err
	}
	if err := params.Between("n_steps", req.Steps, 0, l.maxTrials); err != nil {
		return FundBatchResponse{}, err
	}
	if err := req.Params.Validate(); err != nil {
		return FundBatchResponse{}, err
	}
	seed := l.seedOf(req.Seed)
	res, err := l.runner(seed).RunFund(ctx, req.Params, req.Sims, req.KeepHistory)
	if err != nil {
		return FundBatchResponse{}, err
	}
	return FundBatchResponse{ID: uuid.NewString(), Seed: seed, Result: res}, nil
}

func (l *Local) Scenario(_ context.Context, lab string) (ScenarioResponse, error) {
	if lab == "" {
		return ScenarioResponse{}, &params.Error{Name: "lab", Value: lab, Range: "non-empty"}
	}
	return ScenarioResponse{
		Lab:     lab,
		Markets: scenario.Markets,
		Sectors: scenario.Sectors,
		Matrix:  scenario.ForLab(lab),
	}, nil
}

// Audit samples past ventures of one cell of the lab's matrix.
func (l *Local) Audit(_ context.Context, lab, market, sector string) (scenario.Report, error) {
	if lab == "" {
		return scenario.Report{}, &params.Error{Name: "lab", Value: lab, Range: "non-empty"}
	}
	p, err := scenario.ForLab(lab).Probability(market, sector)
	if err != nil {
		return scenario.Report{}, err
	}
	return scenario.Audit(lab, market, sector, p, meta.AUDIT_SAMPLE)
}
