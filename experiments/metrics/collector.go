package metrics

import (
	"sync/atomic"
	"time"
)

type BatchMetric struct {
	Kind         string
	Goroutines   int
	StartTime    time.Time
	Duration     time.Duration
	Trials       int
	Wins         int
	Insolvencies int
}

type Collector interface {
	Start(kind string, goroutines int)
	AddTrial()
	AddWin()
	AddInsolvency()
	Complete() BatchMetric
}

type collector struct {
	kind         string
	goroutines   int
	startTime    time.Time
	trials       atomic.Int64
	wins         atomic.Int64
	insolvencies atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(kind string, goroutines int) {
	m.kind = kind
	m.goroutines = goroutines
	m.startTime = time.Now()
	m.trials.Store(0)
	m.wins.Store(0)
	m.insolvencies.Store(0)
}

func (m *collector) AddTrial() {
	m.trials.Add(1)
}

func (m *collector) AddWin() {
	m.wins.Add(1)
}

func (m *collector) AddInsolvency() {
	m.insolvencies.Add(1)
}

func (m *collector) Complete() BatchMetric {
	return BatchMetric{
		Kind:         m.kind,
		Goroutines:   m.goroutines,
		StartTime:    m.startTime,
		Duration:     time.Since(m.startTime),
		Trials:       int(m.trials.Load()),
		Wins:         int(m.wins.Load()),
		Insolvencies: int(m.insolvencies.Load()),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(kind string, goroutines int) {}
func (m *dummyCollector) AddTrial()                         {}
func (m *dummyCollector) AddWin()                           {}
func (m *dummyCollector) AddInsolvency()                    {}
func (m *dummyCollector) Complete() BatchMetric             { return BatchMetric{} }
