package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DeliveryCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cupido_message_deliveries_total",
			Help: "Number of message delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	AudioGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cupido_audio_generated_total",
			Help: "Number of audio synthesis attempts by outcome",
		},
		[]string{"outcome"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cupido_sweep_duration_seconds",
			Help:    "Duration of scheduled-message sweeps",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cupido_sweep_batch_size",
			Help:    "Number of due messages processed per sweep",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
)

func Init() {
	prometheus.MustRegister(DeliveryCount, AudioGenerated, SweepDuration, SweepBatchSize)
}
