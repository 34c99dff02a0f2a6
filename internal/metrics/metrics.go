package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal  *prometheus.CounterVec
	votesTotal         *prometheus.CounterVec
	rateLimitDecisions *prometheus.CounterVec
	wsConnections      prometheus.Gauge
	reaperDeleted      prometheus.Counter
	reaperFailures     prometheus.Counter
	registerOnce       sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepolls",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the polls API.",
		}, []string{"method", "path", "status"})

		votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepolls",
			Name:      "votes_total",
			Help:      "Committed vote attempts by outcome.",
		}, []string{"action"})

		rateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livepolls",
			Name:      "vote_rate_limit_decisions_total",
			Help:      "Vote rate limiter decisions; unknown means the limiter failed open.",
		}, []string{"decision"})

		wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "livepolls",
			Name:      "broadcast_connections",
			Help:      "Currently connected broadcast observers.",
		})

		reaperDeleted = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "livepolls",
			Name:      "reaper_deleted_polls_total",
			Help:      "Polls permanently deleted by the expiry reaper.",
		})

		reaperFailures = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "livepolls",
			Name:      "reaper_failures_total",
			Help:      "Expiry reaper sweeps that failed.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncVote(action string) {
	if votesTotal == nil {
		return
	}
	votesTotal.WithLabelValues(action).Inc()
}

func IncRateLimit(decision string) {
	if rateLimitDecisions == nil {
		return
	}
	rateLimitDecisions.WithLabelValues(decision).Inc()
}

func SetConnections(n int) {
	if wsConnections == nil {
		return
	}
	wsConnections.Set(float64(n))
}

func AddReaped(n int64) {
	if reaperDeleted == nil || n <= 0 {
		return
	}
	reaperDeleted.Add(float64(n))
}

func IncReaperFailure() {
	if reaperFailures == nil {
		return
	}
	reaperFailures.Inc()
}
