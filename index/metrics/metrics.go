package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Fetch
	FetchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "fetch",
		Name:      "requests_total",
		Help:      "Dispatched toncenter requests by outcome",
	}, []string{"endpoint", "outcome"})

	FetchStatuses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "fetch",
		Name:      "responses_total",
		Help:      "Completed toncenter responses by HTTP status",
	}, []string{"endpoint", "status"})

	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "indexer",
		Subsystem: "fetch",
		Name:      "request_duration_seconds",
		Help:      "Toncenter request duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"endpoint"})

	// Controller
	RequestDelay = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "controller",
		Name:      "request_delay_seconds",
		Help:      "Current per-proxy dispatch delay",
	})

	RequestTimeout = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "controller",
		Name:      "request_timeout_seconds",
		Help:      "Current request timeout",
	})

	MissingResponses = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexer",
		Subsystem: "controller",
		Name:      "missing_responses",
		Help:      "Requests without a recorded status in the last cycle",
	})

	Adjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "controller",
		Name:      "adjustments_total",
		Help:      "Rate state increases by parameter",
	}, []string{"parameter"})

	// Pipeline
	Cycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "pipeline",
		Name:      "cycles_total",
		Help:      "Finished cycles by result",
	}, []string{"result"})

	CycleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "indexer",
		Subsystem: "pipeline",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a non-empty cycle",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	})

	BlocksSeen = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "pipeline",
		Name:      "blocks_total",
		Help:      "New shard blocks yielded by the block source",
	})

	AddressesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "pipeline",
		Name:      "addresses_total",
		Help:      "Unique addresses submitted for wallet lookup",
	})

	LiteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "blockchain",
		Name:      "retries_total",
		Help:      "Liteserver call retries by operation",
	}, []string{"operation"})

	// Store
	RecordsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "store",
		Name:      "records_total",
		Help:      "Records handed to the store by kind",
	}, []string{"kind"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexer",
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Failed store batches by kind",
	}, []string{"kind"})

	// Supervisor
	Restarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexer",
		Name:      "restarts_total",
		Help:      "Pipeline restarts after a halt or failure",
	})
)
