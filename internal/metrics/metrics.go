// Package metrics holds the Prometheus collectors shared by the HTTP helper,
// the store and the sandbox server.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration observes outbound API calls by method, route template and status.
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mutation_sdk",
		Name:      "api_request_duration_seconds",
		Help:      "Latency of calls to the mutation API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "code"})

	// StoreActions counts store actions by name and outcome (ok|error).
	StoreActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mutation_sdk",
		Name:      "store_actions_total",
		Help:      "Store actions by outcome.",
	}, []string{"action", "outcome"})

	// CachedMutations is the number of mutations held by each named store.
	CachedMutations = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mutation_sdk",
		Name:      "cached_mutations",
		Help:      "Mutations currently cached by the store.",
	}, []string{"store"})

	// SandboxRequests counts requests served by the sandbox API.
	SandboxRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mutation_sandbox",
		Name:      "requests_total",
		Help:      "Requests served by the sandbox, by route and status.",
	}, []string{"route", "code"})
)

// Register registers every collector on reg (the default registerer when nil).
// Collectors that are already registered are ignored.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{RequestDuration, StoreActions, CachedMutations, SandboxRequests} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

// ObserveRequest records one API call. status is 0 for transport failures.
func ObserveRequest(method, route string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	RequestDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// ObserveAction records the outcome of a store action.
func ObserveAction(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	StoreActions.WithLabelValues(action, outcome).Inc()
}
