package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		c, err := Load(writeConfig(t, "lab: LAB42\n"))
		require.NoError(t, err)
		require.Equal(t, "LAB42", c.Lab)
		require.Equal(t, meta.GO_ROUTINES, c.Goroutines)
		require.Equal(t, meta.RACE_TRIALS, c.Race.Trials)
		require.Equal(t, ":8080", c.Server.Addr)
		require.Nil(t, c.Seed)
		require.Len(t, c.RunnerOptions(), 2)
	})

	t.Run("race and leaderboard", func(t *testing.T) {
		c, err := Load(writeConfig(t, `
seed: 7
goroutines: 2
race:
  n: 50
  scheme: shifted
  contestants:
    - name: alice
      cutoff: 18
    - name: bob
      cutoff: 5
leaderboard:
  market: squeeze
  payoff: gross
  entries:
    - name: carol
      sector: tech-apps
      f: 0.2
`))
		require.NoError(t, err)
		require.Equal(t, uint64(7), *c.Seed)
		require.Len(t, c.RunnerOptions(), 3)
		require.Equal(t, 50, c.Race.N)
		require.Equal(t, sequence.Shifted, c.Race.Scheme)
		require.Equal(t, meta.RACE_ROUND, c.Race.Round)
		require.Len(t, c.Race.Contestants, 2)
		require.Equal(t, 18, c.Race.Contestants[0].Cutoff)
		require.Equal(t, "squeeze", c.Leaderboard.Market)
		require.Equal(t, fund.GrossReturn, c.Leaderboard.Payoff)
		require.Equal(t, 0.2, c.Leaderboard.Entries[0].Fraction)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "goroutines: 0\n"))
		require.ErrorIs(t, err, params.ErrInvalidParameter)

		_, err = Load(writeConfig(t, "leaderboard:\n  entries:\n    - name: x\n      sector: basics\n      f: 2\n"))
		var perr *params.Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, "leaderboard.entries[0].f", perr.Name)
		require.Equal(t, "<= 1", perr.Range)
	})

	t.Run("rejects unknown scheme", func(t *testing.T) {
		_, err := Load(writeConfig(t, "race:\n  scheme: sorted\n"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestStruct(t *testing.T) {
	type request struct {
		N int `json:"n" validate:"gte=1"`
	}
	err := Struct(request{N: 0})
	var perr *params.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "n", perr.Name)
	require.Equal(t, ">= 1", perr.Range)

	require.NoError(t, Struct(request{N: 3}))
}
