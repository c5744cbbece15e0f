// Package scenario holds the venture-fund catalogue: markets, sectors, and the
// success probabilities derived for one lab identity.
package scenario

import (
	"fmt"
	"math"

	"github.com/applied-statistics/competitions/rng"
	"gonum.org/v1/gonum/stat/distuv"
)

// ProbabilityNoise is the standard deviation of the noise added to each cell of a matrix.
const ProbabilityNoise = 0.02

const (
	minProbability = 0.01
	maxProbability = 0.99
)

type Market struct {
	Name  string  `json:"name"`
	Base  float64 `json:"base_p"`
	Story string  `json:"story"`
}

type Sector struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"b"`
	Story      string  `json:"story"`
}

var Markets = []Market{
	{Name: "boom", Base: 0.9, Story: "Consumer spending is at an all-time high and credit is nearly free."},
	{Name: "squeeze", Base: 0.7, Story: "Inflation is rampant and store shelves are empty."},
	{Name: "rule-change", Base: 0.8, Story: "The regulatory landscape has shifted. New mandates have created tailwinds."},
}

var Sectors = []Sector{
	{Name: "basics", Multiplier: 1.0, Payout: 0.5, Story: "Focuses on infrastructure and power. Steady cash flows."},
	{Name: "tech-apps", Multiplier: 0.6, Payout: 2.0, Story: "Focuses on scalable platforms. Zero marginal cost upsides."},
	{Name: "big-science", Multiplier: 0.2, Payout: 8.0, Story: "Focuses on frontier tech like rockets. Massive R&D risk."},
}

func FindMarket(name string) (Market, error) {
	for _, m := range Markets {
		if m.Name == name {
			return m, nil
		}
	}
	return Market{}, fmt.Errorf("unknown market %q", name)
}

func FindSector(name string) (Sector, error) {
	for _, s := range Sectors {
		if s.Name == name {
			return s, nil
		}
	}
	return Sector{}, fmt.Errorf("unknown sector %q", name)
}

// Matrix holds the success probability of every market and sector pair.
type Matrix struct {
	Seed  uint64                        `json:"seed"`
	Cells map[string]map[string]float64 `json:"cells"` // market -> sector -> p
}

// NewMatrix perturbs base*multiplier with normal noise and keeps the result
// inside [0.01, 0.99]. The same seed always yields the same matrix.
func NewMatrix(seed uint64) Matrix {
	noise := distuv.Normal{Mu: 0, Sigma: ProbabilityNoise, Src: rng.New(seed)}
	m := Matrix{Seed: seed, Cells: make(map[string]map[string]float64, len(Markets))}
	for _, market := range Markets {
		row := make(map[string]float64, len(Sectors))
		for _, sector := range Sectors {
			p := market.Base*sector.Multiplier + noise.Rand()
			row[sector.Name] = math.Min(maxProbability, math.Max(minProbability, p))
		}
		m.Cells[market.Name] = row
	}
	return m
}

// ForLab derives the matrix of one lab identity.
func ForLab(labID string) Matrix {
	return NewMatrix(rng.DeriveSeed(labID))
}

func (m Matrix) Probability(market, sector string) (float64, error) {
	row, ok := m.Cells[market]
	if !ok {
		return 0, fmt.Errorf("unknown market %q", market)
	}
	p, ok := row[sector]
	if !ok {
		return 0, fmt.Errorf("unknown sector %q", sector)
	}
	return p, nil
}
