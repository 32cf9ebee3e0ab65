package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bilearnhub_profile_operations_total",
			Help: "Profile operation outcomes by operation and result code.",
		},
		[]string{"operation", "code"},
	)

	ensureOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bilearnhub_student_profile_ensure_total",
			Help: "Reactive student profile provisioning outcomes.",
		},
		[]string{"outcome"},
	)
)

func observeOperation(operation, code string) {
	operationResults.WithLabelValues(operation, code).Inc()
}

func observeEnsureOutcome(outcome string) {
	ensureOutcomes.WithLabelValues(outcome).Inc()
}
