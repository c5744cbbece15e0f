package communication

import (
	"context"
	"testing"

	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/stretchr/testify/require"
)

func seed(v uint64) *uint64 {
	return &v
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(WithMaxTrials(10000))

	t.Run("sequence is reproducible from its seed", func(t *testing.T) {
		a, err := l.Sequence(ctx, SequenceRequest{N: 20, Seed: seed(4)})
		require.NoError(t, err)
		b, err := l.Sequence(ctx, SequenceRequest{N: 20, Seed: seed(a.Seed)})
		require.NoError(t, err)
		require.Equal(t, a, b)
		require.Equal(t, 1, a.Ranks[a.BestPosition-1])
		require.Equal(t, 20, a.Values[a.BestPosition-1])
	})

	t.Run("shifted sequence", func(t *testing.T) {
		res, err := l.Sequence(ctx, SequenceRequest{N: 20, Scheme: sequence.Shifted, Seed: seed(1)})
		require.NoError(t, err)
		require.Equal(t, sequence.Shifted, res.Scheme)
		require.Len(t, res.Values, 20)
	})

	t.Run("evaluate", func(t *testing.T) {
		res, err := l.Evaluate(ctx, EvaluateRequest{Values: []float64{0.3, 0.1, 0.4, 0.2, 0.5}, Cutoff: 2})
		require.NoError(t, err)
		require.Equal(t, 3, res.Position)
		require.Equal(t, 0.4, res.Value)
		require.Equal(t, 0.3, *res.Benchmark)
		require.Equal(t, 2, res.Rank)
		require.False(t, res.Best)

		res, err = l.Evaluate(ctx, EvaluateRequest{Values: []float64{0.3, 0.1}, Cutoff: 0})
		require.NoError(t, err)
		require.Nil(t, res.Benchmark)
		require.Equal(t, 1, res.Position)
		require.True(t, res.Best)
	})

	t.Run("stopping batch", func(t *testing.T) {
		res, err := l.RunStopping(ctx, StoppingBatchRequest{N: 100, Cutoff: 37, Trials: 2000, Seed: seed(12)})
		require.NoError(t, err)
		require.NotEmpty(t, res.ID)
		require.Equal(t, uint64(12), res.Seed)
		require.Equal(t, 2000, res.Tally.Trials)
		require.InDelta(t, 0.37, res.WinRate, 0.05)
		require.Less(t, res.Interval[0], res.WinRate)
		require.Greater(t, res.Interval[1], res.WinRate)
		require.Len(t, res.RankDistribution, 100)
	})

	t.Run("fund path and batch", func(t *testing.T) {
		p := fund.Params{Initial: 100, Fraction: 0.2, Probability: 0.6, Payout: 1, Steps: 30}
		path, err := l.FundPath(ctx, FundPathRequest{Params: p, Seed: seed(5)})
		require.NoError(t, err)
		require.Len(t, path.Path, 31)
		require.Equal(t, path.Path.Final(), path.Final)

		res, err := l.RunFund(ctx, FundBatchRequest{Params: p, Sims: 50, KeepHistory: true, Seed: seed(5)})
		require.NoError(t, err)
		require.Equal(t, 50, res.Result.Sims)
		require.Len(t, res.Result.History, 50)
	})

	t.Run("limits", func(t *testing.T) {
		_, err := l.RunStopping(ctx, StoppingBatchRequest{N: 10, Trials: 10001})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		_, err = l.RunFund(ctx, FundBatchRequest{Params: fund.Params{Initial: 100, Steps: 10}, Sims: 0})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		_, err = l.Sequence(ctx, SequenceRequest{N: 0})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		_, err = l.Evaluate(ctx, EvaluateRequest{Values: []float64{1, 2}, Cutoff: 3})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
	})

	t.Run("evaluate is bounded by the trial limit", func(t *testing.T) {
		small := NewLocal(WithMaxTrials(3))
		_, err := small.Evaluate(ctx, EvaluateRequest{Values: []float64{1, 2, 3, 4}, Cutoff: 1})
		var perr *params.Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, "values", perr.Name)

		_, err = small.Evaluate(ctx, EvaluateRequest{})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
	})

	t.Run("invalid requests draw no seed", func(t *testing.T) {
		draws := 0
		counted := NewLocal()
		counted.newSeed = func() uint64 {
			draws++
			return 1
		}
		bad := fund.Params{Initial: 100, Fraction: 2, Probability: 0.5, Payout: 1, Steps: 5}

		_, err := counted.FundPath(ctx, FundPathRequest{Params: bad})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		_, err = counted.RunFund(ctx, FundBatchRequest{Params: bad, Sims: 10})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		_, err = counted.Sequence(ctx, SequenceRequest{N: 5, Scheme: sequence.Scheme(9)})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		require.Zero(t, draws)

		res, err := counted.Sequence(ctx, SequenceRequest{N: 5})
		require.NoError(t, err)
		require.Equal(t, uint64(1), res.Seed)
		require.Equal(t, 1, draws)
	})

	t.Run("scenario and audit", func(t *testing.T) {
		res, err := l.Scenario(ctx, "LAB1")
		require.NoError(t, err)
		require.Len(t, res.Matrix.Cells, 3)

		report, err := l.Audit(ctx, "LAB1", "boom", "basics")
		require.NoError(t, err)
		require.Equal(t, 50, report.Sample)

		_, err = l.Audit(ctx, "LAB1", "crash", "basics")
		require.Error(t, err)
		_, err = l.Scenario(ctx, "")
		require.ErrorIs(t, err, params.ErrInvalidParameter)
	})
}
