package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type httpMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics

	taskRewardsOnce     sync.Once
	taskRewardsRegistry *TaskRewardsMetrics
)

// HTTP returns the lazily-initialised registry recording API request activity.
func HTTP() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azorion",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "azorion",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azorion",
				Subsystem: "http",
				Name:      "throttled_total",
				Help:      "Requests rejected by the rate limiter segmented by route.",
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			httpRegistry.requests,
			httpRegistry.latency,
			httpRegistry.throttles,
		)
	})
	return httpRegistry
}

// Observe records a completed request.
func (m *httpMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = labelOrDefault(route, "unknown")
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for route.
func (m *httpMetrics) RecordThrottle(route string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(labelOrDefault(route, "unknown")).Inc()
}

// TaskRewardsMetrics wraps collectors tracking reward claims and task-slot
// refreshes.
type TaskRewardsMetrics struct {
	claims         *prometheus.CounterVec
	paid           *prometheus.CounterVec
	repetition     prometheus.Histogram
	claimLatency   prometheus.Histogram
	balance        prometheus.Gauge
	availableTasks prometheus.Gauge
	randomizations *prometheus.CounterVec
	pauseEngaged   prometheus.Gauge
}

// TaskRewards exposes the metrics registry for the reward processor.
func TaskRewards() *TaskRewardsMetrics {
	taskRewardsOnce.Do(func() {
		taskRewardsRegistry = &TaskRewardsMetrics{
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "claims_total",
				Help:      "Reward claims segmented by activity and outcome.",
			}, []string{"activity", "outcome"}),
			paid: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "paid_base_units_total",
				Help:      "Rewards paid in base units segmented by activity.",
			}, []string{"activity"}),
			repetition: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "repetition_count",
				Help:      "Consecutive identical-activity count observed on accepted claims.",
				Buckets:   []float64{0, 1, 2, 3, 5, 10},
			}),
			claimLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "claim_duration_seconds",
				Help:      "Latency distribution for claim processing including the payout transfer.",
				Buckets:   prometheus.DefBuckets,
			}),
			balance: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "program_balance",
				Help:      "Remaining program balance in base units.",
			}),
			availableTasks: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "available_tasks",
				Help:      "Current number of available task slots.",
			}),
			randomizations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "randomizations_total",
				Help:      "Task-slot refresh attempts segmented by outcome.",
			}, []string{"outcome"}),
			pauseEngaged: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "azorion",
				Subsystem: "taskrewards",
				Name:      "pause_engaged",
				Help:      "Indicates whether the claim processor pause guard is active (1) or not (0).",
			}),
		}
		prometheus.MustRegister(
			taskRewardsRegistry.claims,
			taskRewardsRegistry.paid,
			taskRewardsRegistry.repetition,
			taskRewardsRegistry.claimLatency,
			taskRewardsRegistry.balance,
			taskRewardsRegistry.availableTasks,
			taskRewardsRegistry.randomizations,
			taskRewardsRegistry.pauseEngaged,
		)
	})
	return taskRewardsRegistry
}

// RecordClaim records an accepted claim.
func (m *TaskRewardsMetrics) RecordClaim(activity string, reward uint64, repetition uint8, d time.Duration) {
	if m == nil {
		return
	}
	label := labelOrDefault(activity, "unknown")
	m.claims.WithLabelValues(label, "accepted").Inc()
	m.paid.WithLabelValues(label).Add(float64(reward))
	m.repetition.Observe(float64(repetition))
	m.claimLatency.Observe(d.Seconds())
}

// RecordRejection records a rejected claim with its symbolic reason.
func (m *TaskRewardsMetrics) RecordRejection(activity, reason string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(labelOrDefault(activity, "unknown"), labelOrDefault(reason, "unspecified")).Inc()
}

// RecordRandomization records the outcome of a task-slot refresh.
func (m *TaskRewardsMetrics) RecordRandomization(outcome string) {
	if m == nil {
		return
	}
	m.randomizations.WithLabelValues(labelOrDefault(outcome, "unspecified")).Inc()
}

// SetProgram updates the balance and available task gauges.
func (m *TaskRewardsMetrics) SetProgram(balance uint64, availableTasks uint8) {
	if m == nil {
		return
	}
	m.balance.Set(float64(balance))
	m.availableTasks.Set(float64(availableTasks))
}

// SetPause toggles the pause_engaged gauge.
func (m *TaskRewardsMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.pauseEngaged.Set(1)
		return
	}
	m.pauseEngaged.Set(0)
}

func labelOrDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
