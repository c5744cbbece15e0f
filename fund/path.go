package fund

import (
	"github.com/applied-statistics/competitions/params"
)

// Params describe one fund and the rounds it plays.
type Params struct {
	Initial     float64 `json:"initial_balance" yaml:"initial_balance"`
	Fraction    float64 `json:"f" yaml:"f"`
	Probability float64 `json:"p" yaml:"p"`
	Payout      float64 `json:"b" yaml:"b"`
	Steps       int     `json:"n_steps" yaml:"n_steps"`
	Payoff      Payoff  `json:"payoff" yaml:"payoff"`
}

func (p Params) Validate() error {
	return params.First(
		params.Positive("initial_balance", p.Initial),
		params.Unit("f", p.Fraction),
		params.Unit("p", p.Probability),
		params.NonNegative("b", p.Payout),
		params.AtLeast("n_steps", p.Steps, 0),
		validPayoff(p.Payoff),
	)
}

func validPayoff(p Payoff) error {
	if p != NetOdds && p != GrossReturn {
		return &params.Error{Name: "payoff", Value: int(p), Range: "net or gross"}
	}
	return nil
}

// Stepper advances a balance one round at a time for a fixed set of Params.
type Stepper struct {
	params Params
	drawer Drawer
}

func NewStepper(p Params, d Drawer) (*Stepper, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Stepper{params: p, drawer: d}, nil
}

// Step returns the balance after one round. No outcome is drawn for an
// insolvent balance.
func (s *Stepper) Step(balance float64) float64 {
	if balance < InsolvencyThreshold {
		return 0
	}
	win := s.drawer.Draw(s.params.Probability)
	return Step(balance, s.params.Fraction, s.params.Payout, win, s.params.Payoff)
}

// Path is the balance after each round, index 0 being the starting balance.
type Path []float64

// SimulatePath plays p.Steps rounds from p.Initial.
func SimulatePath(p Params, d Drawer) (Path, error) {
	s, err := NewStepper(p, d)
	if err != nil {
		return nil, err
	}
	return s.Run(), nil
}

// Run plays every round of the stepper's Params.
func (s *Stepper) Run() Path {
	path := make(Path, s.params.Steps+1)
	path[0] = s.params.Initial
	for t := 1; t <= s.params.Steps; t++ {
		path[t] = s.Step(path[t-1])
	}
	return path
}

func (p Path) Initial() float64 {
	return p[0]
}

func (p Path) Final() float64 {
	return p[len(p)-1]
}

func (p Path) Peak() float64 {
	peak := p[0]
	for _, v := range p[1:] {
		peak = max(peak, v)
	}
	return peak
}

// Trough is the lowest balance reached, the "max pain" of the path.
func (p Path) Trough() float64 {
	trough := p[0]
	for _, v := range p[1:] {
		trough = min(trough, v)
	}
	return trough
}

// Insolvent reports whether the path ended at or below the threshold.
func (p Path) Insolvent() bool {
	return p.Final() <= InsolvencyThreshold
}

// AbsorbedAt returns the first round whose balance is exactly 0, or -1.
func (p Path) AbsorbedAt() int {
	for t, v := range p {
		if v == 0 {
			return t
		}
	}
	return -1
}

// Outcome classifies how a path ended relative to its starting balance.
type Outcome int

const (
	Insolvent Outcome = iota
	Underwater
	Growth
)

func (o Outcome) String() string {
	switch o {
	case Insolvent:
		return "insolvent"
	case Underwater:
		return "underwater"
	case Growth:
		return "growth"
	default:
		return "unknown"
	}
}

func (p Path) Outcome() Outcome {
	switch {
	case p.Insolvent():
		return Insolvent
	case p.Final() < p.Initial():
		return Underwater
	default:
		return Growth
	}
}
