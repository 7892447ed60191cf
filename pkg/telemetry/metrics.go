package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connector operation metrics, registered on the default registry.
var (
	// Discoveries counts inventory discovery calls per connector kind.
	Discoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tessera",
			Name:      "discoveries_total",
			Help:      "Total number of inventory discovery calls",
		},
		[]string{"connector", "status"},
	)

	// Commands counts remote command executions per connector kind.
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tessera",
			Name:      "commands_total",
			Help:      "Total number of remote command executions",
		},
		[]string{"connector", "status"},
	)

	// Transfers counts file transfers per connector kind and direction.
	Transfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tessera",
			Name:      "transfers_total",
			Help:      "Total number of file transfers",
		},
		[]string{"connector", "direction", "status"},
	)

	// InventoryCacheHits counts inventory fetches served from cache.
	InventoryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tessera",
			Name:      "inventory_cache_hits_total",
			Help:      "Total number of inventory fetches served from cache",
		},
	)

	// InventoryCacheMisses counts inventory fetches that hit the API.
	InventoryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tessera",
			Name:      "inventory_cache_misses_total",
			Help:      "Total number of inventory fetches that queried the API",
		},
	)
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// StatusOf maps an operation error to a status label value.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
