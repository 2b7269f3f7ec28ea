package bulk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bulkBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domus_bulk_batches_total",
		Help: "Total number of bulk batches dispatched",
	})

	bulkRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domus_bulk_requests_total",
		Help: "Total bulk requests by host and outcome class",
	}, []string{"host", "class"})

	bulkBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "domus_bulk_batch_size",
		Help:    "Number of requests per bulk batch",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	bulkBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "domus_bulk_batch_duration_seconds",
		Help:    "Wall time of a bulk batch from dispatch to last result",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	bulkInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "domus_bulk_inflight_requests",
		Help: "Bulk requests currently on the wire",
	})
)
