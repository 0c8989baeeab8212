package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketCount reports the number of markets currently tracked.
	MarketCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_market_count",
		Help: "Number of markets currently tracked by the registry",
	})

	// HydratedMarketCount reports how many tracked markets have both
	// sides cached with a positive best-ask.
	HydratedMarketCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "registry_hydrated_market_count",
		Help: "Number of tracked markets with both sides hydrated",
	})
)
