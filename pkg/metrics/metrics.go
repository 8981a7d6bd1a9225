package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Batch kinds used as label values.
const (
	KindDelegation = "delegation"
	KindProxy      = "proxy"
)

// Metrics holds the collectors of one session.
type Metrics struct {
	Registry *prometheus.Registry

	BatchQueries   *prometheus.CounterVec
	BatchStale     *prometheus.CounterVec
	BatchFailures  *prometheus.CounterVec
	BalanceReports prometheus.Counter
	BalanceDropped prometheus.Counter
	Accounts       prometheus.Gauge
	Snapshots      prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		BatchQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acctview",
			Name:      "batch_queries_total",
			Help:      "Batch chain queries issued.",
		}, []string{"kind"}),
		BatchStale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acctview",
			Name:      "batch_stale_total",
			Help:      "Batch results discarded because the address list changed.",
		}, []string{"kind"}),
		BatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acctview",
			Name:      "batch_failures_total",
			Help:      "Batch queries that failed or returned an unknown shape.",
		}, []string{"kind"}),
		BalanceReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acctview",
			Name:      "balance_reports_total",
			Help:      "Balance reports applied to the ledger.",
		}),
		BalanceDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acctview",
			Name:      "balance_reports_dropped_total",
			Help:      "Balance reports older than the stored one.",
		}),
		Accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "acctview",
			Name:      "accounts",
			Help:      "Accounts in the current sorted list.",
		}),
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "acctview",
			Name:      "snapshots_published_total",
			Help:      "View snapshots published to subscribers.",
		}),
	}
	m.Registry.MustRegister(
		m.BatchQueries, m.BatchStale, m.BatchFailures,
		m.BalanceReports, m.BalanceDropped, m.Accounts, m.Snapshots,
		collectors.NewGoCollector(),
	)
	return m
}
