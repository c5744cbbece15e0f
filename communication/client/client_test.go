package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/applied-statistics/competitions/communication"
	"github.com/applied-statistics/competitions/communication/server"
	"github.com/applied-statistics/competitions/config"
	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/params"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	ctx := context.Background()
	local := communication.NewLocal()
	ts := httptest.NewServer(server.New(config.Default().Server, local, prometheus.NewRegistry()).Handler())
	defer ts.Close()
	c := NewClient(ts.URL)

	seed := uint64(21)

	t.Run("remote batch matches local batch", func(t *testing.T) {
		req := communication.StoppingBatchRequest{N: 50, Cutoff: 18, Trials: 500, Seed: &seed}
		remote, err := c.RunStopping(ctx, req)
		require.NoError(t, err)
		want, err := local.RunStopping(ctx, req)
		require.NoError(t, err)
		require.Equal(t, want.Tally, remote.Tally)
	})

	t.Run("remote fund path matches local path", func(t *testing.T) {
		req := communication.FundPathRequest{
			Params: fund.Params{Initial: 100, Fraction: 0.25, Probability: 0.55, Payout: 1, Steps: 20, Payoff: fund.GrossReturn},
			Seed:   &seed,
		}
		remote, err := c.FundPath(ctx, req)
		require.NoError(t, err)
		want, err := local.FundPath(ctx, req)
		require.NoError(t, err)
		require.Equal(t, want, remote)
	})

	t.Run("validation errors come back typed", func(t *testing.T) {
		_, err := c.Evaluate(ctx, communication.EvaluateRequest{Values: []float64{1, 2}, Cutoff: 5})
		require.ErrorIs(t, err, params.ErrInvalidParameter)
		var perr *params.Error
		require.ErrorAs(t, err, &perr)
		require.Equal(t, "cutoff", perr.Name)
	})

	t.Run("scenario and audit", func(t *testing.T) {
		res, err := c.Scenario(ctx, "LAB 7")
		require.NoError(t, err)
		want, err := local.Scenario(ctx, "LAB 7")
		require.NoError(t, err)
		require.Equal(t, want.Matrix, res.Matrix)

		report, err := c.Audit(ctx, "LAB 7", "squeeze", "tech-apps")
		require.NoError(t, err)
		wantReport, err := local.Audit(ctx, "LAB 7", "squeeze", "tech-apps")
		require.NoError(t, err)
		require.Equal(t, wantReport, report)

		_, err = c.Audit(ctx, "LAB 7", "squeeze", "crypto")
		require.Error(t, err)
	})

	t.Run("sequence", func(t *testing.T) {
		res, err := c.Sequence(ctx, communication.SequenceRequest{N: 10, Seed: &seed})
		require.NoError(t, err)
		require.Len(t, res.Values, 10)
	})
}
