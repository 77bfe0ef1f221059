package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(expiryScansTotal, expiredMedicinesFound, expiryNotificationsTotal)
}

var (
	expiryScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_scans_total",
			Help: "Expiry scans by trigger (schedule/manual) and status.",
		},
		[]string{"trigger", "status"},
	)

	expiredMedicinesFound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "expired_medicines_found",
			Help: "Expired in-stock medicines seen by the last scan.",
		},
	)

	expiryNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_notifications_total",
			Help: "Expiry notifications by delivery result.",
		},
		[]string{"result"}, // 'sent', 'failed'
	)
)

func IncExpiryScan(trigger, status string) {
	expiryScansTotal.WithLabelValues(norm(trigger), norm(status)).Inc()
}

func SetExpiredFound(n int) {
	expiredMedicinesFound.Set(float64(n))
}

func IncExpiryNotification(result string) {
	expiryNotificationsTotal.WithLabelValues(norm(result)).Inc()
}
