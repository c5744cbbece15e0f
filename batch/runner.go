// Package batch runs independent trials of either engine across a goroutine
// pool and folds their final states into summary statistics.
package batch

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/applied-statistics/competitions/experiments/metrics"
	"github.com/applied-statistics/competitions/meta"
	"github.com/applied-statistics/competitions/rng"
)

type Option func(r *Runner)

// Progress is reported at every checkpoint of a batch.
type Progress struct {
	Kind  string
	Done  int
	Total int
}

// randomSeed is drawn only for runners built without WithSeed.
var randomSeed = rng.RandomSeed

type Runner struct {
	goroutines   int
	seed         uint64
	seeded       bool
	every        int
	onCheckpoint func(Progress)
	metrics      metrics.Collector
}

func WithGoroutines(goroutines int) Option {
	return func(r *Runner) {
		if goroutines > 0 {
			r.goroutines = goroutines
		}
	}
}

// WithSeed fixes the seed every trial stream is derived from.
func WithSeed(seed uint64) Option {
	return func(r *Runner) {
		r.seed = seed
		r.seeded = true
	}
}

// WithCheckpoint runs trials in rounds of every, calling fn after each round.
func WithCheckpoint(every int, fn func(Progress)) Option {
	return func(r *Runner) {
		if every > 0 {
			r.every = every
		}
		r.onCheckpoint = fn
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(r *Runner) {
		if collector != nil {
			r.metrics = collector
		}
	}
}

func NewRunner(options ...Option) *Runner {
	r := &Runner{ // Default values
		goroutines: meta.GO_ROUTINES,
		every:      meta.CHECKPOINT_TRIALS,
		metrics:    metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(r)
	}
	if !r.seeded {
		r.seed = randomSeed()
	}
	return r
}

func (r *Runner) Seed() uint64 {
	return r.seed
}

// Metrics returns the figures of the last completed batch.
func (r *Runner) Metrics() metrics.Collector {
	return r.metrics
}

// run plays trials offset..offset+count-1 in checkpointed rounds. Trial i
// always draws from the stream rng.ForTrial(seed, i), so outcomes do not depend
// on scheduling. fold receives each round's results in trial order. When ctx is
// cancelled the batch stops at the next checkpoint and reports how many trials
// were folded.
func run[R any](ctx context.Context, r *Runner, kind string, offset, count int, trial func(src *rand.Rand) R, fold func(R)) (int, error) {
	done := 0
	for done < count {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		size := min(count-done, r.every)
		base := offset + done
		results := make([]R, size)
		r.iterate(size, func(i int) {
			results[i] = trial(rng.ForTrial(r.seed, base+i))
			r.metrics.AddTrial()
		})
		for _, res := range results {
			fold(res)
		}
		done += size

		if r.onCheckpoint != nil {
			r.onCheckpoint(Progress{Kind: kind, Done: done, Total: count})
		}
	}
	return done, nil
}

func (r *Runner) iterate(size int, simulate func(i int)) {
	task := make(chan int, size)
	for i := 0; i < size; i++ {
		task <- i
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < min(r.goroutines, size); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := range task {
				simulate(i)
			}
		}()
	}

	wg.Wait()
}
