package stopping

import (
	"testing"

	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/rng"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	seq := []int{3, 1, 4, 2}

	t.Run("cutoff 0 takes the first candidate", func(t *testing.T) {
		sel, err := Evaluate(seq, 0)
		require.NoError(t, err)
		require.Equal(t, 1, sel.Position)
		require.Equal(t, 3, sel.Value)
		require.False(t, sel.HasBenchmark)
		require.False(t, sel.Forced)
	})

	t.Run("cutoff n force-selects the last candidate", func(t *testing.T) {
		sel, err := Evaluate(seq, 4)
		require.NoError(t, err)
		require.Equal(t, 4, sel.Position)
		require.Equal(t, 2, sel.Value)
		require.True(t, sel.Forced)
	})

	t.Run("first candidate above the benchmark", func(t *testing.T) {
		sel, err := Evaluate([]int{2, 5, 3, 6, 9}, 2)
		require.NoError(t, err)
		require.Equal(t, 4, sel.Position)
		require.Equal(t, 6, sel.Value, "Should stop at the first exceedance, not the best of the rest")
		require.Equal(t, 5, sel.Benchmark)
	})

	t.Run("never stops in the look phase", func(t *testing.T) {
		sel, err := Evaluate([]int{1, 2, 3, 4, 5}, 3)
		require.NoError(t, err)
		require.Equal(t, 4, sel.Position)
		require.Equal(t, 3, sel.Benchmark)
	})

	t.Run("forced selection when nothing beats the benchmark", func(t *testing.T) {
		sel, err := Evaluate([]int{9, 1, 2, 3}, 1)
		require.NoError(t, err)
		require.Equal(t, 4, sel.Position)
		require.Equal(t, 3, sel.Value)
		require.True(t, sel.Forced)
	})

	t.Run("ties do not exceed the benchmark", func(t *testing.T) {
		sel, err := Evaluate([]float64{0.5, 0.5, 0.7}, 1)
		require.NoError(t, err)
		require.Equal(t, 3, sel.Position)
		require.False(t, sel.Forced)
	})

	t.Run("single candidate", func(t *testing.T) {
		for _, cutoff := range []int{0, 1} {
			sel, err := Evaluate([]int{7}, cutoff)
			require.NoError(t, err)
			require.Equal(t, 1, sel.Position)
		}
	})

	t.Run("rejecting invalid cutoffs", func(t *testing.T) {
		_, err := Evaluate(seq, -1)
		require.ErrorIs(t, err, params.ErrInvalidParameter)

		_, err = Evaluate(seq, 5)
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		require.ErrorContains(t, err, "cutoff=5")
	})

	t.Run("rejecting empty sequences", func(t *testing.T) {
		_, err := Evaluate([]int{}, 0)
		require.ErrorIs(t, err, params.ErrInvalidParameter)
	})

	t.Run("position always within the sequence", func(t *testing.T) {
		r := rng.New(11)
		for n := 1; n <= 30; n++ {
			seq, err := sequence.Generate(n, r)
			require.NoError(t, err)
			for cutoff := 0; cutoff <= n; cutoff++ {
				sel, err := Evaluate(seq, cutoff)
				require.NoError(t, err)
				require.GreaterOrEqual(t, sel.Position, 1)
				require.LessOrEqual(t, sel.Position, n)
				if cutoff < n {
					require.Greater(t, sel.Position, cutoff)
				}
			}
		}
	})
}

func TestOptimalCutoff(t *testing.T) {
	require.Equal(t, 0, OptimalCutoff(1))
	require.Equal(t, 37, OptimalCutoff(100))
	require.Equal(t, 4, OptimalCutoff(10))
}
