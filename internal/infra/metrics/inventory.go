package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(inventoryOperationsTotal) }

var inventoryOperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inventory_operations_total",
		Help: "Inventory operations by kind and outcome.",
	},
	[]string{"operation", "result"}, // e.g., operation="use", result="insufficient"
)

func IncInventoryOperation(operation, result string) {
	inventoryOperationsTotal.WithLabelValues(norm(operation), norm(result)).Inc()
}
