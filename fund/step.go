// Package fund evolves a capital balance through repeated bet/reinvest rounds.
package fund

import (
	"math/rand/v2"

	"github.com/applied-statistics/competitions/params"
	"gonum.org/v1/gonum/stat/distuv"
)

// InsolvencyThreshold is the balance below which a fund is wiped out for good.
const InsolvencyThreshold = 1.0

// Payoff decides what a winning round pays.
type Payoff int

const (
	// NetOdds keeps the stake and adds bet*b on a win.
	NetOdds Payoff = iota
	// GrossReturn gives back bet*b in place of the stake on a win.
	GrossReturn
)

func (p Payoff) String() string {
	switch p {
	case NetOdds:
		return "net"
	case GrossReturn:
		return "gross"
	default:
		return "unknown"
	}
}

// ParsePayoff is the inverse of Payoff.String.
func ParsePayoff(s string) (Payoff, error) {
	switch s {
	case "", "net":
		return NetOdds, nil
	case "gross":
		return GrossReturn, nil
	default:
		return 0, &params.Error{Name: "payoff", Value: s, Range: "net or gross"}
	}
}

func (p Payoff) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Payoff) UnmarshalText(text []byte) error {
	v, err := ParsePayoff(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Step applies one round to balance. A balance under the threshold collapses
// to 0 before any bet is placed; 0 stays 0. A loss costs exactly the stake.
func Step(balance, f, b float64, win bool, payoff Payoff) float64 {
	if balance < InsolvencyThreshold {
		return 0
	}
	bet := balance * f
	if !win {
		return balance - bet
	}
	if payoff == GrossReturn {
		return balance - bet + bet*b
	}
	return balance + bet*b
}

// Drawer decides the outcome of one round.
type Drawer interface {
	Draw(p float64) bool
}

// Bernoulli draws round outcomes from a random source.
type Bernoulli struct {
	src rand.Source
}

func NewBernoulli(src rand.Source) *Bernoulli {
	return &Bernoulli{src: src}
}

func (d *Bernoulli) Draw(p float64) bool {
	return distuv.Bernoulli{P: p, Src: d.src}.Rand() == 1
}

// Replay feeds back a fixed list of outcomes, in order. Once exhausted every
// further round is a loss.
type Replay struct {
	outcomes []bool
	next     int
}

func NewReplay(outcomes ...bool) *Replay {
	return &Replay{outcomes: outcomes}
}

func (d *Replay) Draw(float64) bool {
	if d.next >= len(d.outcomes) {
		return false
	}
	win := d.outcomes[d.next]
	d.next++
	return win
}

// Consumed is the number of outcomes read so far.
func (d *Replay) Consumed() int {
	return d.next
}

// Recorder wraps a Drawer and keeps every outcome it returns.
type Recorder struct {
	Drawer
	Outcomes []bool
}

func (r *Recorder) Draw(p float64) bool {
	win := r.Drawer.Draw(p)
	r.Outcomes = append(r.Outcomes, win)
	return win
}
