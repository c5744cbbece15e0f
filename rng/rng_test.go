package rng

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveSeed(t *testing.T) {
	t.Run("stable for the same label", func(t *testing.T) {
		require.Equal(t, DeriveSeed("LAB123"), DeriveSeed("LAB123"))
	})

	t.Run("different for different labels", func(t *testing.T) {
		require.NotEqual(t, DeriveSeed("LAB123"), DeriveSeed("LAB124"))
	})
}

func TestForTrial(t *testing.T) {
	t.Run("reproducing a trial stream", func(t *testing.T) {
		a := ForTrial(42, 7)
		b := ForTrial(42, 7)
		for i := 0; i < 100; i++ {
			require.Equal(t, a.Uint64(), b.Uint64())
		}
	})

	t.Run("separating neighbouring trials", func(t *testing.T) {
		a := ForTrial(42, 0)
		b := ForTrial(42, 1)
		same := 0
		for i := 0; i < 100; i++ {
			if a.Uint64() == b.Uint64() {
				same++
			}
		}
		require.Zero(t, same)
	})

	t.Run("trial streams differ from the scenario stream", func(t *testing.T) {
		require.NotEqual(t, New(42).Uint64(), ForTrial(42, 0).Uint64())
	})
}
