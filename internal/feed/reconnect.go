package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// backoffTableMS is the literal reconnect backoff table from the spec;
// the last entry is held once exhausted. Resets to index 0 on a clean
// close.
var backoffTableMS = []int64{100, 200, 400, 800}

// Reconnector drives reconnection attempts through the fixed backoff
// table, in the shape of the teacher's ReconnectManager (struct +
// Reconnect/Reset), but with a literal table instead of an
// exponential-with-jitter growth function, per the spec's literal
// requirement.
type Reconnector struct {
	logger *zap.Logger

	mu    sync.Mutex
	index int
}

// NewReconnector creates a Reconnector.
func NewReconnector(logger *zap.Logger) *Reconnector {
	return &Reconnector{logger: logger}
}

// Reset returns the backoff to the table's first entry; Reconnect calls
// it after each successful reconnection, so the next reconnect sequence
// starts again at the first entry.
func (r *Reconnector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = 0
}

func (r *Reconnector) nextDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := backoffTableMS[r.index]
	if r.index < len(backoffTableMS)-1 {
		r.index++
	}
	return time.Duration(ms) * time.Millisecond
}

// Reconnect retries connectFn with the fixed backoff table until it
// succeeds or ctx is cancelled.
func (r *Reconnector) Reconnect(ctx context.Context, connectFn func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delay := r.nextDelay()
		ReconnectAttemptsTotal.Inc()
		r.logger.Info("feed-reconnect-attempt", zap.Duration("backoff", delay))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := connectFn(ctx); err != nil {
			r.logger.Warn("feed-reconnect-failed", zap.Error(err))
			continue
		}

		r.Reset()
		r.logger.Info("feed-reconnect-succeeded")
		return nil
	}
}
