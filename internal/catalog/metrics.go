package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsFetchedTotal tracks total markets returned by the Gamma API.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmspread_catalog_markets_fetched_total",
		Help: "Total number of markets fetched from the Gamma API",
	})

	// MarketsQualifiedTotal tracks markets that cleared every filter.
	MarketsQualifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmspread_catalog_markets_qualified_total",
		Help: "Total number of fetched markets that passed the quality filters",
	})

	// FetchDurationSeconds tracks Gamma API poll latency.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pmspread_catalog_fetch_duration_seconds",
		Help:    "Duration of Gamma API fetch requests",
		Buckets: prometheus.DefBuckets,
	})

	// FetchErrorsTotal tracks Gamma API fetch failures.
	FetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pmspread_catalog_fetch_errors_total",
		Help: "Total number of Gamma API fetch failures",
	})
)
