// Package metrics exposes the prometheus collectors of the service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "atm"

var (
	registerOnce sync.Once

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions by target state.",
		},
		[]string{"state"},
	)
	ledgerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "calls_total",
			Help:      "Contract calls by method and outcome.",
		},
		[]string{"call", "success"},
	)
	ledgerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Contract call duration in seconds, confirmations included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"call"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifier",
			Name:      "subscribers",
			Help:      "Open websocket subscriptions.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(transitions, ledgerCalls, ledgerDuration, httpRequests, httpDuration, subscribers)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordSubscribers(delta int) {
	RegisterMetrics()
	subscribers.Add(float64(delta))
}

// Recorder reports session transitions and ledger calls.
type Recorder struct{}

func (Recorder) Transition(state string) {
	RegisterMetrics()
	transitions.WithLabelValues(state).Inc()
}

func (Recorder) LedgerCall(call string, err error, elapsed time.Duration) {
	RegisterMetrics()
	ledgerCalls.WithLabelValues(call, strconv.FormatBool(err == nil)).Inc()
	ledgerDuration.WithLabelValues(call).Observe(elapsed.Seconds())
}
