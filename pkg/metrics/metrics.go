package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total requests handled by the gateway, by service, method and status code.",
	}, []string{"service", "method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Wall-clock latency of gateway request handling.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	endpointUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_endpoint_up",
		Help: "Whether a backend endpoint is considered routable (1) or unhealthy (0).",
	}, []string{"service", "endpoint"})
)

// ObserveRequest records one handled request.
func ObserveRequest(service, method string, code int, elapsed time.Duration) {
	requestsTotal.WithLabelValues(service, method, strconv.Itoa(code)).Inc()
	requestDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// SetEndpointUp publishes the routability of one backend endpoint.
func SetEndpointUp(service, endpoint string, up bool) {
	value := 0.0
	if up {
		value = 1.0
	}
	endpointUp.WithLabelValues(service, endpoint).Set(value)
}
