package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/csim/cache"
)

// Metrics exports the counters of a cache simulation to Prometheus.
type Metrics struct {
	Accesses       *prometheus.CounterVec
	Evictions      prometheus.Counter
	DirtyBytes     prometheus.Gauge
	DirtyEvictions prometheus.Counter
	ResidentLines  prometheus.Gauge

	lastDirtyEvictions uint64
}

// NewMetrics creates the metrics and registers them with the registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		Accesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "csim",
				Subsystem: "cache",
				Name:      "accesses_total",
				Help:      "Total number of accesses by outcome",
			},
			[]string{"cache", "kind", "outcome"},
		),

		Evictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "csim",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of evicted lines",
			},
		),

		DirtyBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "csim",
				Subsystem: "cache",
				Name:      "dirty_bytes",
				Help:      "Dirty bytes currently resident in the cache",
			},
		),

		DirtyEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "csim",
				Subsystem: "cache",
				Name:      "dirty_evicted_bytes_total",
				Help:      "Total dirty bytes written back on eviction",
			},
		),

		ResidentLines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "csim",
				Subsystem: "cache",
				Name:      "resident_lines",
				Help:      "Number of valid lines in the cache",
			},
		),
	}

	registerer.MustRegister(
		m.Accesses,
		m.Evictions,
		m.DirtyBytes,
		m.DirtyEvictions,
		m.ResidentLines,
	)

	return m
}

func (m *Metrics) observe(
	name string,
	res cache.AccessResult,
	stats cache.Statistics,
	residentLines int,
) {
	m.Accesses.WithLabelValues(name, res.Kind.String(), res.Outcome.String()).Inc()

	if res.Evicted() {
		m.Evictions.Inc()
	}

	m.DirtyBytes.Set(float64(stats.DirtyBytes))
	m.ResidentLines.Set(float64(residentLines))

	if stats.DirtyEvictions > m.lastDirtyEvictions {
		m.DirtyEvictions.Add(float64(stats.DirtyEvictions - m.lastDirtyEvictions))
		m.lastDirtyEvictions = stats.DirtyEvictions
	}
}
