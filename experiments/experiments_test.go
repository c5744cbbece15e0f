package experiments

import (
	"context"
	"testing"

	"github.com/applied-statistics/competitions/batch"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/scenario"
	"github.com/applied-statistics/competitions/sequence"
	"github.com/stretchr/testify/require"
)

func raceConfig(trials, round int, contestants ...Contestant) RaceConfig {
	return RaceConfig{N: 100, Scheme: sequence.Permutation, Trials: trials, Round: round, Contestants: contestants}
}

func TestRunStoppingRace(t *testing.T) {
	ctx := context.Background()

	t.Run("patient contestant beats the impatient one", func(t *testing.T) {
		rounds := 0
		cfg := raceConfig(400, 40, Contestant{Name: "eager", Cutoff: 0}, Contestant{Name: "patient", Cutoff: 37})
		standings, err := RunStoppingRace(ctx, batch.NewRunner(batch.WithSeed(11)), cfg, func(done int, s []Standing) {
			rounds++
			require.Equal(t, rounds*40, done)
			require.Len(t, s, 2)
		})
		require.NoError(t, err)
		require.Equal(t, 10, rounds)
		require.Equal(t, "patient", standings[0].Name)
		require.Equal(t, 400, standings[0].Tally.Trials)
		require.Equal(t, 400, standings[1].Tally.Trials)
	})

	t.Run("same cutoff sees the same sequences", func(t *testing.T) {
		cfg := raceConfig(200, 50, Contestant{Name: "a", Cutoff: 20}, Contestant{Name: "b", Cutoff: 20})
		standings, err := RunStoppingRace(ctx, batch.NewRunner(batch.WithSeed(5)), cfg, nil)
		require.NoError(t, err)
		require.Equal(t, standings[0].Tally, standings[1].Tally)
	})

	t.Run("rounds match a single batch", func(t *testing.T) {
		cfg := raceConfig(300, 40, Contestant{Name: "a", Cutoff: 30})
		standings, err := RunStoppingRace(ctx, batch.NewRunner(batch.WithSeed(9)), cfg, nil)
		require.NoError(t, err)

		tally, err := batch.NewTally(100, 30, sequence.Permutation)
		require.NoError(t, err)
		want, err := batch.NewRunner(batch.WithSeed(9)).RunStopping(ctx, tally, 300)
		require.NoError(t, err)
		require.Equal(t, want, standings[0].Tally)
	})

	t.Run("cancelled race keeps completed rounds", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cfg := raceConfig(400, 40, Contestant{Name: "a", Cutoff: 10}, Contestant{Name: "b", Cutoff: 50})
		standings, err := RunStoppingRace(ctx, batch.NewRunner(batch.WithSeed(1)), cfg, func(done int, _ []Standing) {
			if done == 80 {
				cancel()
			}
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Len(t, standings, 2)
		for _, s := range standings {
			require.Equal(t, 80, s.Tally.Trials)
		}
	})

	t.Run("rejecting contestants", func(t *testing.T) {
		runner := batch.NewRunner()
		_, err := RunStoppingRace(ctx, runner, raceConfig(40, 40, Contestant{Name: "a", Cutoff: 101}), nil)
		require.ErrorIs(t, err, params.ErrInvalidParameter)

		_, err = RunStoppingRace(ctx, runner, raceConfig(40, 40, Contestant{Name: "a"}, Contestant{Name: "a", Cutoff: 3}), nil)
		require.Error(t, err)

		_, err = RunStoppingRace(ctx, runner, raceConfig(40, 40), nil)
		require.ErrorIs(t, err, params.ErrInvalidParameter)

		_, err = RunStoppingRace(ctx, runner, raceConfig(40, 0, Contestant{Name: "a"}), nil)
		require.ErrorIs(t, err, params.ErrInvalidParameter)
	})

	t.Run("standing record", func(t *testing.T) {
		standings, err := RunStoppingRace(ctx, batch.NewRunner(batch.WithSeed(4)), raceConfig(100, 100, Contestant{Name: "a", Cutoff: 37}), nil)
		require.NoError(t, err)
		record := standings[0].Record()
		require.Equal(t, "a", record.Name)
		require.Equal(t, 100, record.Trials)
		require.LessOrEqual(t, record.Low, record.WinRate)
		require.GreaterOrEqual(t, record.High, record.WinRate)
	})
}

func TestRunFundLeaderboard(t *testing.T) {
	ctx := context.Background()
	matrix := scenario.ForLab("LAB1")

	t.Run("steady fund beats all-in moonshot", func(t *testing.T) {
		cfg := DefaultLeaderboardConfig("boom",
			Entry{Name: "moonshot", Sector: "big-science", Fraction: 1.0},
			Entry{Name: "steady", Sector: "basics", Fraction: 0.1},
		)
		rows, err := RunFundLeaderboard(ctx, batch.NewRunner(batch.WithSeed(3)), matrix, cfg)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "steady", rows[0].Name)
		require.Greater(t, rows[0].Result.Median, 100.0)
		require.Equal(t, 1.0, rows[1].Result.InsolvencyRate)

		p, err := matrix.Probability("boom", "basics")
		require.NoError(t, err)
		record := rows[0].Record()
		require.Equal(t, p, record.Probability)
		require.Equal(t, 0.5, record.Payout)
		require.Equal(t, rows[0].Result.Median, record.Median)
	})

	t.Run("unknown sector or market", func(t *testing.T) {
		runner := batch.NewRunner()
		_, err := RunFundLeaderboard(ctx, runner, matrix, DefaultLeaderboardConfig("boom", Entry{Name: "x", Sector: "crypto", Fraction: 0.1}))
		require.Error(t, err)
		_, err = RunFundLeaderboard(ctx, runner, matrix, DefaultLeaderboardConfig("crash", Entry{Name: "x", Sector: "basics", Fraction: 0.1}))
		require.Error(t, err)
	})

	t.Run("invalid fraction fails before simulating", func(t *testing.T) {
		_, err := RunFundLeaderboard(ctx, batch.NewRunner(), matrix, DefaultLeaderboardConfig("boom",
			Entry{Name: "ok", Sector: "basics", Fraction: 0.1},
			Entry{Name: "bad", Sector: "basics", Fraction: 1.5},
		))
		require.ErrorIs(t, err, params.ErrInvalidParameter)
	})

	t.Run("no entries", func(t *testing.T) {
		_, err := RunFundLeaderboard(ctx, batch.NewRunner(), matrix, DefaultLeaderboardConfig("boom"))
		require.Error(t, err)
	})
}

func TestReveal(t *testing.T) {
	seq := sequence.Sequence{3, 1, 4, 2, 5}
	r, err := NewReveal(seq, []Contestant{
		{Name: "alice", Cutoff: 2},
		{Name: "bob", Cutoff: 0},
		{Name: "carol", Cutoff: 4},
		{Name: "dan", Cutoff: 5},
	})
	require.NoError(t, err)

	byName := func() map[string]Status {
		m := map[string]Status{}
		for _, s := range r.Statuses() {
			m[s.Name] = s
		}
		return m
	}

	t.Run("first candidate", func(t *testing.T) {
		v, ok := r.Next()
		require.True(t, ok)
		require.Equal(t, 3, v)
		s := byName()
		require.Equal(t, Booked, s["bob"].State)
		require.Equal(t, 1, s["bob"].Step)
		require.Equal(t, 3, s["bob"].Rank)
		require.Equal(t, Researching, s["alice"].State)
	})

	t.Run("look phase ends", func(t *testing.T) {
		r.Next()
		require.Equal(t, Searching, byName()["alice"].State)
		r.Next()
		s := byName()["alice"]
		require.Equal(t, Booked, s.State)
		require.Equal(t, 3, s.Step)
		require.Equal(t, 4, s.Value)
		require.Equal(t, 2, s.Rank)
		require.False(t, r.Done())
	})

	t.Run("sequence exhausted", func(t *testing.T) {
		r.Next()
		r.Next()
		require.Equal(t, 5, r.Step())
		require.True(t, r.Done())
		s := byName()
		require.False(t, s["carol"].Forced)
		require.True(t, s["dan"].Forced)
		require.Equal(t, []string{"carol", "dan"}, r.Winners())

		_, ok := r.Next()
		require.False(t, ok)
	})

	t.Run("invalid contestant", func(t *testing.T) {
		_, err := NewReveal(seq, []Contestant{{Name: "x", Cutoff: 6}})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
	})
}
