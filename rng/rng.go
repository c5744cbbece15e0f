// Package rng hands out independent, reproducible random streams.
//
// Every trial of a batch draws from its own PCG stream keyed by (seed, trial index),
// so results do not depend on how trials are scheduled across goroutines.
package rng

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// New returns a generator for a single labelled scenario.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// ForTrial returns the stream owned by one trial of a batch.
func ForTrial(seed uint64, trial int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(trial)+1))
}

// RandomSeed draws a seed from the runtime's shared source.
func RandomSeed() uint64 {
	return rand.Uint64()
}

// DeriveSeed maps a label (a lab ID, a student name) to a stable seed.
func DeriveSeed(label string) uint64 {
	return xxhash.Sum64String(label)
}
