package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(httpRequestsTotal) }

var httpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requests served by the keep-alive server.",
	},
	[]string{"method", "route", "status"},
)

func IncHTTPRequest(method, route, status string) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
}
