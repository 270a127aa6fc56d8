package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/roster/internal/ir"
)

var (
	eventsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_events_applied_total",
		Help: "Events applied that changed the membership index",
	}, []string{"kind"})

	eventsNoopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_events_noop_total",
		Help: "Events applied that left the membership index unchanged",
	}, []string{"kind"})

	applyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_apply_errors_total",
		Help: "Events that failed to apply, by error code",
	}, []string{"code"})

	indexParents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roster_index_parents",
		Help: "Number of parents in the current membership index",
	})

	snapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_snapshots_total",
		Help: "Index snapshots written to the store",
	})
)

// kindLabel bounds label cardinality: every unrecognized kind shares one label.
func kindLabel(kind string) string {
	if ir.IsRecognized(kind) {
		return kind
	}
	return "unrecognized"
}
