package book

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotsAppliedTotal counts ApplySnapshot calls.
	SnapshotsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_snapshots_applied_total",
		Help: "Total number of book snapshots applied",
	})

	// ChangesAppliedTotal counts individual level mutations applied.
	ChangesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_changes_applied_total",
		Help: "Total number of individual level changes applied",
	})

	// UnknownTokenDropsTotal counts updates for tokens with no book.
	UnknownTokenDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_unknown_token_drops_total",
		Help: "Total number of book updates silently dropped for unknown tokens",
	})

	// TrackedTokens reports the current number of tracked token books.
	TrackedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "book_tracked_tokens",
		Help: "Number of tokens with an active book",
	})
)
