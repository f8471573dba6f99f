package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	RankLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "volrank",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of ranking endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RankErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "volrank",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by ranking endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(RankLatency, RankErrors)
	})
}
