package region

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты запуска для метки result
const (
	ResultOK         = "ok"
	ResultDegenerate = "degenerate"
	ResultInvalid    = "invalid"
	ResultEmpty      = "empty"
	ResultError      = "error"
)

// Metrics метрики построения зон
type Metrics struct {
	runs       *prometheus.CounterVec
	openVoxels prometheus.Histogram
	hullPoints prometheus.Histogram
	duration   prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radzone_synth_runs_total",
				Help: "Total number of region synthesis runs by result",
			},
			[]string{"result"},
		),
		openVoxels: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radzone_synth_open_voxels",
			Help:    "Open voxels found by flood fill per run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		hullPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radzone_synth_hull_points",
			Help:    "Convex hull vertices per region",
			Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16, 32, 64},
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "radzone_synth_duration_seconds",
			Help:    "Region synthesis duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.openVoxels, m.hullPoints, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(result string, def Definition, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
	if result == ResultOK || result == ResultDegenerate {
		m.openVoxels.Observe(float64(def.Volume))
		m.hullPoints.Observe(float64(len(def.Polygon)))
	}
}
