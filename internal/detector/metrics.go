package detector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WindowsOpenedTotal counts windows that cleared pending and confirmed open.
	WindowsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "detector_windows_opened_total",
		Help: "Total number of arbitrage windows confirmed open",
	})

	// WindowsClosedTotal counts all closed windows, including single-tick noise.
	WindowsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "detector_windows_closed_total",
		Help: "Total number of windows closed, including single-tick noise",
	})

	// ActiveWindows reports the number of markets currently pending or open.
	ActiveWindows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "detector_active_windows",
		Help: "Number of markets currently inside a pending or open arbitrage window",
	})

	// TightestSpread reports the smallest positive spread observed in the
	// current 30-second diagnostics window.
	TightestSpread = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "detector_tightest_spread",
		Help: "Smallest positive spread observed in the current diagnostics window",
	})

	// PriceMsgsTotal counts price ticks consumed by the detector.
	PriceMsgsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "detector_price_msgs_total",
		Help: "Total number of price change messages consumed by the detector",
	})

	// WindowChannelFullTotal counts window events dropped because the
	// output channel was full.
	WindowChannelFullTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "detector_window_channel_full_total",
		Help: "Total number of window events dropped because the output channel was full",
	})

	// HydratedReadyRatio is the one-shot 10s readiness snapshot: hydrated
	// markets over total tracked markets.
	HydratedReadyRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "detector_hydrated_ready_ratio",
		Help: "Fraction of tracked markets hydrated ten seconds after startup",
	})
)
