package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hris"

// LeaveTransitions counts lifecycle operations by action and result
// (ok, or the error code returned to the caller).
var LeaveTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "leave",
	Name:      "transitions_total",
	Help:      "Leave request lifecycle operations by action and result.",
}, []string{"action", "result"})

var LeaveDaysBooked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "leave",
	Name:      "days_booked_total",
	Help:      "Leave days reserved or committed at request creation.",
}, []string{"status"})

var BalanceCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "leave",
	Name:      "balance_cache_lookups_total",
	Help:      "Balance projection cache lookups by outcome (hit, miss, error).",
}, []string{"outcome"})

var OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "outbox",
	Name:      "published_total",
	Help:      "Outbox events relayed to kafka by result.",
}, []string{"result"})

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method, route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})
