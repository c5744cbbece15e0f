package communication

import (
	"context"

	"github.com/applied-statistics/competitions/batch"
	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/scenario"
	"github.com/applied-statistics/competitions/sequence"
)

// Simulator is an interface that abstracts where simulations run: in process
// or behind the HTTP API.
type Simulator interface {
	Sequence(ctx context.Context, req SequenceRequest) (SequenceResponse, error)
	Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error)
	RunStopping(ctx context.Context, req StoppingBatchRequest) (StoppingBatchResponse, error)
	FundPath(ctx context.Context, req FundPathRequest) (FundPathResponse, error)
	RunFund(ctx context.Context, req FundBatchRequest) (FundBatchResponse, error)
	Scenario(ctx context.Context, lab string) (ScenarioResponse, error)
	Audit(ctx context.Context, lab, market, sector string) (scenario.Report, error)
}

// A nil Seed asks for a random one; responses always report the seed used.

type SequenceRequest struct {
	N      int             `json:"n" validate:"gte=1"`
	Scheme sequence.Scheme `json:"scheme"`
	Seed   *uint64         `json:"seed,omitempty"`
}

type SequenceResponse struct {
	Seed         uint64            `json:"seed"`
	Scheme       sequence.Scheme   `json:"scheme"`
	Values       sequence.Sequence `json:"values"`
	Ranks        []int             `json:"ranks"`
	BestPosition int               `json:"best_position"`
}

type EvaluateRequest struct {
	Values []float64 `json:"values" validate:"required,min=1"`
	Cutoff int       `json:"cutoff" validate:"gte=0"`
}

type EvaluateResponse struct {
	Position  int      `json:"position"`
	Value     float64  `json:"value"`
	Benchmark *float64 `json:"benchmark"` // null when the cutoff is 0
	Forced    bool     `json:"forced"`
	Rank      int      `json:"rank"`
	Best      bool     `json:"best"`
}

type StoppingBatchRequest struct {
	N      int             `json:"n" validate:"gte=1"`
	Cutoff int             `json:"cutoff" validate:"gte=0"`
	Scheme sequence.Scheme `json:"scheme"`
	Trials int             `json:"n_trials" validate:"gte=1"`
	Seed   *uint64         `json:"seed,omitempty"`
}

type StoppingBatchResponse struct {
	ID               string      `json:"id"`
	Seed             uint64      `json:"seed"`
	Tally            batch.Tally `json:"tally"`
	WinRate          float64     `json:"win_rate"`
	Interval         [2]float64  `json:"win_rate_95"`
	MeanRank         float64     `json:"mean_rank"`
	RankDistribution []float64   `json:"rank_distribution"`
}

type FundPathRequest struct {
	fund.Params
	Seed *uint64 `json:"seed,omitempty"`
}

type FundPathResponse struct {
	Seed       uint64    `json:"seed"`
	Path       fund.Path `json:"path"`
	Final      float64   `json:"final"`
	Peak       float64   `json:"peak"`
	Trough     float64   `json:"trough"`
	AbsorbedAt int       `json:"absorbed_at"` // -1 when never absorbed
	Outcome    string    `json:"outcome"`
}

type FundBatchRequest struct {
	fund.Params
	Sims        int     `json:"n_sims" validate:"gte=1"`
	KeepHistory bool    `json:"keep_history"`
	Seed        *uint64 `json:"seed,omitempty"`
}

type FundBatchResponse struct {
	ID     string           `json:"id"`
	Seed   uint64           `json:"seed"`
	Result batch.FundResult `json:"result"`
}

type ScenarioResponse struct {
	Lab     string            `json:"lab"`
	Markets []scenario.Market `json:"markets"`
	Sectors []scenario.Sector `json:"sectors"`
	Matrix  scenario.Matrix   `json:"matrix"`
}

// ErrorResponse is the body of every failed API call. Parameter, Value and
// Range are set for validation failures.
type ErrorResponse struct {
	Error     string `json:"error"`
	Parameter string `json:"parameter,omitempty"`
	Value     any    `json:"value,omitempty"`
	Range     string `json:"range,omitempty"`
}
