package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ParseErrorsTotal counts frames that failed to decode.
	ParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_parse_errors_total",
		Help: "Total number of raw feed frames that failed to decode",
	})

	// FramesTotal counts total inbound frames processed.
	FramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_frames_total",
		Help: "Total number of raw feed frames processed",
	})

	// SnapshotsTotal counts decoded book snapshots.
	SnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_snapshots_total",
		Help: "Total number of book snapshot frames routed",
	})

	// PriceChangesTotal counts decoded price-change entries.
	PriceChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_price_changes_total",
		Help: "Total number of price-change entries routed",
	})

	// TradesTotal counts decoded trade frames.
	TradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_trades_total",
		Help: "Total number of trade frames routed",
	})

	// RoutedPriceMsgsTotal counts PriceChangeMsg emissions downstream.
	RoutedPriceMsgsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_routed_price_msgs_total",
		Help: "Total number of PriceChangeMsg emitted downstream",
	})

	// DroppedEmptyAskTotal counts frames dropped because best_ask <= 0.
	DroppedEmptyAskTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_dropped_empty_ask_total",
		Help: "Total number of price updates dropped because the resulting best ask was not positive",
	})

	// ServerBestDivergenceTotal counts local/server best-price mismatches.
	ServerBestDivergenceTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_server_best_divergence_total",
		Help: "Total number of price_change frames whose server-supplied best diverged from the local book by more than 0.001",
	})

	// ActiveConnections reports whether the transport is currently connected.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_active_connections",
		Help: "Whether the feed transport is currently connected (0 or 1)",
	})

	// ReconnectAttemptsTotal counts reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_reconnect_attempts_total",
		Help: "Total number of feed reconnection attempts",
	})

	// DownstreamChannelFullTotal counts dropped messages due to a full
	// price/trade channel.
	DownstreamChannelFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_downstream_channel_full_total",
			Help: "Total number of messages dropped because a downstream channel was full",
		},
		[]string{"channel"},
	)
)
