package stopping

import (
	"errors"

	"github.com/applied-statistics/competitions/params"
	"golang.org/x/exp/constraints"
)

// ErrHuntOver is returned when a candidate is observed after a selection was made.
var ErrHuntOver = errors.New("hunt already selected a candidate")

// Phase of a hunt. Transitions only move forward: Looking -> Searching -> Done.
type Phase int

const (
	Looking Phase = iota
	Searching
	Done
)

func (p Phase) String() string {
	switch p {
	case Looking:
		return "looking"
	case Searching:
		return "searching"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Selection is where a hunt stopped.
type Selection[T constraints.Ordered] struct {
	Position     int // 1-based
	Value        T
	Benchmark    T    // maximum seen during the look phase
	HasBenchmark bool // false when the cutoff is 0
	Forced       bool // the last candidate was taken without beating the benchmark
}

// Hunt applies the look-then-leap rule to candidates revealed one at a time.
// It only ever compares a candidate with the benchmark; it never sees what comes later.
type Hunt[T constraints.Ordered] struct {
	n            int
	cutoff       int
	seen         int
	phase        Phase
	benchmark    T
	hasBenchmark bool
	selection    Selection[T]
}

// NewHunt prepares a hunt over n candidates with the first cutoff reserved for looking.
func NewHunt[T constraints.Ordered](n, cutoff int) (*Hunt[T], error) {
	if err := params.AtLeast("n", n, 1); err != nil {
		return nil, err
	}
	if err := params.Between("cutoff", cutoff, 0, n); err != nil {
		return nil, err
	}
	h := &Hunt[T]{n: n, cutoff: cutoff, phase: Looking}
	if cutoff == 0 {
		h.phase = Searching
	}
	return h, nil
}

// Observe reveals the next candidate and returns the phase after it.
func (h *Hunt[T]) Observe(value T) (Phase, error) {
	if h.phase == Done {
		return Done, ErrHuntOver
	}
	h.seen++

	switch h.phase {
	case Looking:
		if !h.hasBenchmark || value > h.benchmark {
			h.benchmark = value
			h.hasBenchmark = true
		}
		if h.seen == h.cutoff {
			if h.seen == h.n { // No search phase left
				h.stop(value, true)
			} else {
				h.phase = Searching
			}
		}
	case Searching:
		if !h.hasBenchmark || value > h.benchmark {
			h.stop(value, false)
		} else if h.seen == h.n {
			h.stop(value, true)
		}
	}
	return h.phase, nil
}

func (h *Hunt[T]) stop(value T, forced bool) {
	h.selection = Selection[T]{
		Position:     h.seen,
		Value:        value,
		Benchmark:    h.benchmark,
		HasBenchmark: h.hasBenchmark,
		Forced:       forced,
	}
	h.phase = Done
}

func (h *Hunt[T]) Phase() Phase {
	return h.phase
}

// Seen is the number of candidates observed so far.
func (h *Hunt[T]) Seen() int {
	return h.seen
}

func (h *Hunt[T]) Cutoff() int {
	return h.cutoff
}

// Benchmark returns the running look-phase maximum, if any candidate has been looked at.
func (h *Hunt[T]) Benchmark() (T, bool) {
	return h.benchmark, h.hasBenchmark
}

// Selection returns the stopping point once the hunt is done.
func (h *Hunt[T]) Selection() (Selection[T], bool) {
	return h.selection, h.phase == Done
}
