// Package metrics exports prometheus metrics for container operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deixis/mac/internal/container"
)

// Registry holds every mac metric plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	operations = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "mac_container_operations_total",
		Help: "Container operations by outcome (ok or failure kind)",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mac_container_operation_duration_seconds",
		Help:    "Wall time of a container operation, including the child process",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"operation"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Observe records one finished operation.
func Observe(op container.Op, err error, d time.Duration) {
	operations.WithLabelValues(string(op), Outcome(err)).Inc()
	operationDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// Outcome returns the outcome label for err: "ok" or the failure kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return container.KindOf(err).String()
}

// Handler serves Registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
