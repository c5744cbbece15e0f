package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus holds the process-wide trial counters. Batches running at the
// same time each take their own Collector from it.
type Prometheus struct {
	trials       *prometheus.CounterVec
	wins         *prometheus.CounterVec
	insolvencies *prometheus.CounterVec
	batches      *prometheus.HistogramVec
}

// NewPrometheus registers the counters with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "competitions",
			Name:      "trials_total",
			Help:      "Simulated trials by batch kind.",
		}, []string{"kind"}),
		wins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "competitions",
			Name:      "stopping_wins_total",
			Help:      "Stopping trials that selected the best candidate.",
		}, []string{"kind"}),
		insolvencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "competitions",
			Name:      "fund_insolvencies_total",
			Help:      "Fund paths that ended insolvent.",
		}, []string{"kind"}),
		batches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "competitions",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a batch.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"kind"}),
	}
	for _, m := range []prometheus.Collector{p.trials, p.wins, p.insolvencies, p.batches} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Collector returns a fresh per-batch collector feeding the shared counters.
func (p *Prometheus) Collector() Collector {
	return &promCollector{shared: p}
}

type promCollector struct {
	local  collector
	shared *Prometheus
}

func (c *promCollector) Start(kind string, goroutines int) {
	c.local.Start(kind, goroutines)
}

func (c *promCollector) AddTrial() {
	c.local.AddTrial()
	c.shared.trials.WithLabelValues(c.local.kind).Inc()
}

func (c *promCollector) AddWin() {
	c.local.AddWin()
	c.shared.wins.WithLabelValues(c.local.kind).Inc()
}

func (c *promCollector) AddInsolvency() {
	c.local.AddInsolvency()
	c.shared.insolvencies.WithLabelValues(c.local.kind).Inc()
}

func (c *promCollector) Complete() BatchMetric {
	m := c.local.Complete()
	c.shared.batches.WithLabelValues(m.Kind).Observe(m.Duration.Seconds())
	return m
}
