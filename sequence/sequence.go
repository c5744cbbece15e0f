// Package sequence generates the candidate orderings revealed to a stopping policy.
package sequence

import (
	"math/rand/v2"
	"slices"

	"github.com/applied-statistics/competitions/params"
)

// ShiftedSpan is the minimum width of the value range used by GenerateShifted.
const ShiftedSpan = 2000

var shiftedPowers = []int{10, 100, 1000}

// Scheme selects how candidate values are produced.
type Scheme int

const (
	Permutation Scheme = iota // values 1..n
	Shifted                   // n distinct values from a randomly placed and scaled range
)

func (s Scheme) String() string {
	switch s {
	case Permutation:
		return "permutation"
	case Shifted:
		return "shifted"
	default:
		return "unknown"
	}
}

// ParseScheme is the inverse of Scheme.String. An empty string means Permutation.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "", "permutation":
		return Permutation, nil
	case "shifted":
		return Shifted, nil
	default:
		return 0, &params.Error{Name: "scheme", Value: s, Range: "permutation or shifted"}
	}
}

func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(text []byte) error {
	v, err := ParseScheme(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Sequence is an ordering of distinct candidate values. Higher is better.
type Sequence []int

// Generate returns a uniformly random permutation of 1..n.
func Generate(n int, r *rand.Rand) (Sequence, error) {
	if err := params.AtLeast("n", n, 1); err != nil {
		return nil, err
	}
	seq := make(Sequence, n)
	for i, v := range r.Perm(n) {
		seq[i] = v + 1
	}
	return seq, nil
}

// GenerateShifted returns n distinct values drawn without replacement from
// [base, base+span), where base is a random multiple of 10, 100 or 1000.
// Raw magnitudes differ from run to run; only relative rank carries meaning.
func GenerateShifted(n int, r *rand.Rand) (Sequence, error) {
	if err := params.AtLeast("n", n, 1); err != nil {
		return nil, err
	}
	power := shiftedPowers[r.IntN(len(shiftedPowers))]
	base := (r.IntN(99) + 1) * power
	span := max(ShiftedSpan, n)

	seq := make(Sequence, n)
	for i, v := range r.Perm(span)[:n] {
		seq[i] = base + v
	}
	return seq, nil
}

// GenerateWith dispatches on scheme.
func GenerateWith(scheme Scheme, n int, r *rand.Rand) (Sequence, error) {
	switch scheme {
	case Permutation:
		return Generate(n, r)
	case Shifted:
		return GenerateShifted(n, r)
	default:
		return nil, &params.Error{Name: "scheme", Value: int(scheme), Range: "permutation or shifted"}
	}
}

func (s Sequence) Len() int {
	return len(s)
}

// Best returns the 1-based position and value of the maximum.
func (s Sequence) Best() (position, value int) {
	for i, v := range s {
		if i == 0 || v > value {
			position, value = i+1, v
		}
	}
	return position, value
}

// Rank returns the rank of the value at a 1-based position among the whole
// sequence, 1 being the best. It panics on an out-of-range position.
func (s Sequence) Rank(position int) int {
	if position < 1 || position > len(s) {
		panic("position out of range")
	}
	target := s[position-1]
	rank := 1
	for _, v := range s {
		if v > target {
			rank++
		}
	}
	return rank
}

// Ranks returns the rank of every position, 1 being the best.
func (s Sequence) Ranks() []int {
	order := make([]int, len(s))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return s[b] - s[a] })

	ranks := make([]int, len(s))
	for rank, i := range order {
		ranks[i] = rank + 1
	}
	return ranks
}
