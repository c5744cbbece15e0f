package scenario

import (
	"math"

	"github.com/applied-statistics/competitions/fund"
	"github.com/applied-statistics/competitions/params"
	"github.com/applied-statistics/competitions/rng"
)

// ExecutionShare is the fraction of failed ventures blamed on execution.
const ExecutionShare = 0.4

// EstimateTolerance is how close a student's estimate of p must be to pass.
const EstimateTolerance = 0.005

// Report is the outcome of auditing a sample of past ventures.
type Report struct {
	Market            string  `json:"market"`
	Sector            string  `json:"sector"`
	Sample            int     `json:"sample"`
	Wins              int     `json:"wins"`
	ExecutionFailures int     `json:"execution_failures"`
	MarketFailures    int     `json:"market_failures"`
	Observed          float64 `json:"p_observed"`
}

// Audit samples ventures at probability p. The draws are seeded from the lab,
// market and sector, so a student re-requesting the report sees the same one.
func Audit(labID, market, sector string, p float64, sample int) (Report, error) {
	if err := params.First(params.Unit("p", p), params.AtLeast("sample", sample, 1)); err != nil {
		return Report{}, err
	}

	d := fund.NewBernoulli(rng.New(rng.DeriveSeed(labID + market + sector)))
	wins := 0
	for i := 0; i < sample; i++ {
		if d.Draw(p) {
			wins++
		}
	}
	failures := sample - wins
	execution := int(float64(failures) * ExecutionShare)
	return Report{
		Market:            market,
		Sector:            sector,
		Sample:            sample,
		Wins:              wins,
		ExecutionFailures: execution,
		MarketFailures:    failures - execution,
		Observed:          float64(wins) / float64(sample),
	}, nil
}

// VerifyEstimate accepts an estimate of the success rate within EstimateTolerance.
func (r Report) VerifyEstimate(estimate float64) bool {
	return math.Abs(estimate-r.Observed) < EstimateTolerance
}
