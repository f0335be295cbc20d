// Package metrics exposes ledger and HTTP counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledger/internal/ledger"
)

// Collector owns a private registry so tests and multiple servers never
// collide on the global one.
type Collector struct {
	registry *prometheus.Registry

	changes          *prometheus.CounterVec
	amounts          *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	balance          prometheus.Gauge
	transactions     prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	rateLimited  prometheus.Counter
}

var _ ledger.Notifier = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "changes_total",
				Help:      "Committed ledger changes by kind",
			},
			[]string{"kind"},
		),
		amounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "added_amount_total",
				Help:      "Sum of amounts added by transaction type",
			},
			[]string{"type"},
		),
		validationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_errors_total",
				Help:      "Rejected submissions by form field",
			},
			[]string{"field"},
		),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "balance",
			Help:      "Current balance (income minus expense)",
		}),
		transactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transactions",
			Help:      "Number of transactions in the ledger",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}

	c.registry.MustRegister(
		c.changes, c.amounts, c.validationErrors, c.balance, c.transactions,
		c.httpRequests, c.httpDuration, c.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Notify records a committed ledger change.
func (c *Collector) Notify(_ context.Context, ch ledger.Change) error {
	c.changes.WithLabelValues(string(ch.Kind)).Inc()
	if ch.Kind == ledger.ChangeAdded {
		c.amounts.WithLabelValues(string(ch.Transaction.Type)).Add(ch.Transaction.Amount)
	}
	c.balance.Set(ch.Totals.Balance)
	return nil
}

// SetLedgerSize sets the transaction count gauge.
func (c *Collector) SetLedgerSize(n int) {
	c.transactions.Set(float64(n))
}

// ValidationError counts a rejected submission.
func (c *Collector) ValidationError(field string) {
	c.validationErrors.WithLabelValues(field).Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RateLimited counts a request rejected by the rate limiter.
func (c *Collector) RateLimited() {
	c.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
