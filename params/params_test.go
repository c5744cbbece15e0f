package params

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecks(t *testing.T) {
	t.Run("accepting in-range values", func(t *testing.T) {
		require.NoError(t, AtLeast("n", 1, 1))
		require.NoError(t, Between("cutoff", 0, 0, 10))
		require.NoError(t, Between("cutoff", 10, 0, 10))
		require.NoError(t, Unit("p", 0))
		require.NoError(t, Unit("p", 1))
		require.NoError(t, NonNegative("b", 0))
		require.NoError(t, Positive("initial_balance", 0.5))
	})

	t.Run("naming the failing parameter and its range", func(t *testing.T) {
		err := Between("cutoff", 11, 0, 10)

		var perr *Error
		require.True(t, errors.As(err, &perr))
		require.Equal(t, "cutoff", perr.Name)
		require.Equal(t, 11, perr.Value)
		require.Equal(t, "in [0, 10]", perr.Range)
		require.ErrorIs(t, err, ErrInvalidParameter)
		require.EqualError(t, err, "invalid parameter cutoff=11: must be in [0, 10]")
	})

	t.Run("rejecting NaN", func(t *testing.T) {
		require.Error(t, Unit("f", math.NaN()))
		require.Error(t, NonNegative("b", math.NaN()))
		require.Error(t, Positive("initial_balance", math.NaN()))
	})

	t.Run("rejecting out-of-range floats", func(t *testing.T) {
		require.Error(t, Unit("f", 1.0001))
		require.Error(t, Unit("p", -0.1))
		require.Error(t, NonNegative("b", -1))
		require.Error(t, Positive("initial_balance", 0))
	})

	t.Run("returning the first failure", func(t *testing.T) {
		err := First(nil, AtLeast("n", 0, 1), Unit("p", 2))
		require.ErrorContains(t, err, "n=0")
		require.NoError(t, First(nil, nil))
	})
}
