package experiments

import (
	"github.com/applied-statistics/competitions/sequence"
	"github.com/applied-statistics/competitions/stopping"
)

type State int

const (
	Researching State = iota
	Searching
	Booked
)

func (s State) String() string {
	switch s {
	case Researching:
		return "researching"
	case Searching:
		return "searching"
	case Booked:
		return "booked"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status of one contestant during a reveal. Step, Value and Rank are set once booked.
type Status struct {
	Name   string `json:"name"`
	Cutoff int    `json:"cutoff"`
	State  State  `json:"state"`
	Step   int    `json:"step,omitempty"`
	Value  int    `json:"value,omitempty"`
	Rank   int    `json:"rank,omitempty"`
	Forced bool   `json:"forced,omitempty"`
}

// Reveal shows one sequence to many contestants a candidate at a time.
// Contestants only ever see the candidates revealed so far.
type Reveal struct {
	seq         sequence.Sequence
	contestants []Contestant
	hunts       []*stopping.Hunt[int]
	step        int
}

func NewReveal(seq sequence.Sequence, contestants []Contestant) (*Reveal, error) {
	if err := validateContestants(seq.Len(), contestants); err != nil {
		return nil, err
	}
	hunts := make([]*stopping.Hunt[int], len(contestants))
	for i, c := range contestants {
		h, err := stopping.NewHunt[int](seq.Len(), c.Cutoff)
		if err != nil {
			return nil, err
		}
		hunts[i] = h
	}
	return &Reveal{seq: seq, contestants: contestants, hunts: hunts}, nil
}

// Next reveals the next candidate to every contestant still hunting.
// ok is false once the whole sequence has been shown.
func (r *Reveal) Next() (value int, ok bool) {
	if r.step == r.seq.Len() {
		return 0, false
	}
	value = r.seq[r.step]
	r.step++
	for _, h := range r.hunts {
		if h.Phase() != stopping.Done {
			if _, err := h.Observe(value); err != nil {
				panic(err) // Done hunts are skipped
			}
		}
	}
	return value, true
}

// Step is the number of candidates revealed so far.
func (r *Reveal) Step() int {
	return r.step
}

// Done reports whether every contestant has booked a candidate.
func (r *Reveal) Done() bool {
	for _, h := range r.hunts {
		if h.Phase() != stopping.Done {
			return false
		}
	}
	return true
}

func (r *Reveal) Statuses() []Status {
	statuses := make([]Status, len(r.hunts))
	for i, h := range r.hunts {
		s := Status{Name: r.contestants[i].Name, Cutoff: r.contestants[i].Cutoff}
		switch h.Phase() {
		case stopping.Looking:
			s.State = Researching
		case stopping.Searching:
			s.State = Searching
		case stopping.Done:
			sel, _ := h.Selection()
			s.State = Booked
			s.Step = sel.Position
			s.Value = sel.Value
			s.Rank = r.seq.Rank(sel.Position)
			s.Forced = sel.Forced
		}
		statuses[i] = s
	}
	return statuses
}

// Winners are the contestants who booked the best candidate.
func (r *Reveal) Winners() []string {
	var winners []string
	for _, s := range r.Statuses() {
		if s.State == Booked && s.Rank == 1 {
			winners = append(winners, s.Name)
		}
	}
	return winners
}
