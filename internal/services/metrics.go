package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lifecycleTransitions counts applied lifecycle transitions by event and target state
	lifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_lifecycle_transitions_total",
		Help: "Problem lifecycle transitions by event and target state",
	}, []string{"event", "to"})

	// blobOperations counts blob store calls by operation and result
	blobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_blob_operations_total",
		Help: "Blob store operations by operation and result",
	}, []string{"op", "result"})
)

func observeBlob(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	blobOperations.WithLabelValues(op, result).Inc()
}
