// Package metrics defines Prometheus instrumentation for planner operations
// and display publishing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Planner operation metrics
var (
	// PlannerOpsTotal tracks planner operations by operation and status
	PlannerOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_operations_total",
			Help: "Total planner operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// OrphanedEntriesPruned counts dangling service entries removed on plan load
	OrphanedEntriesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_orphaned_entries_pruned_total",
			Help: "Total dangling service entries pruned on plan load",
		},
	)
)

// Session manager metrics
var (
	// SessionRefreshesTotal counts current-service reloads from the store
	SessionRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_refreshes_total",
			Help: "Total current-service reloads from the store",
		},
	)

	// SessionFlushesTotal counts background flushes of buffered edits
	SessionFlushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_flushes_total",
			Help: "Total background flushes of buffered service edits",
		},
	)
)

// Display metrics
var (
	// DisplayPublishesTotal tracks display snapshot publishes by status
	DisplayPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_publishes_total",
			Help: "Total display snapshot publishes by status",
		},
		[]string{"status"},
	)

	// DisplayAttached tracks whether an external display is currently attached
	DisplayAttached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "display_attached",
			Help: "Whether an external display is currently attached (0 or 1)",
		},
	)
)

// RecordOp records a planner operation outcome.
func RecordOp(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PlannerOpsTotal.WithLabelValues(operation, status).Inc()
}
