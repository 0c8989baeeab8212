// Package subscription implements the Subscription Controller: it
// consumes Subscribe/Unsubscribe control messages, reconciles them with
// the Market Registry, and drives the feed transport's wire frames.
package subscription

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/registry"
	"github.com/arbwatch/pmspread/pkg/types"
)

// Transport is the subset of the Feed Ingestor the controller drives.
// Depending on this interface rather than *feed.Ingestor directly keeps
// the controller testable without a live websocket connection.
type Transport interface {
	Subscribe(ctx context.Context, tokenIDs []string) error
	Unsubscribe(ctx context.Context, tokenIDs []string) error
}

// SubscribeMsg requests that a batch of markets be added and subscribed.
// Pinned marks every market in the batch as pinned once registered; only
// the Pinned-Market Watcher should ever set it.
type SubscribeMsg struct {
	Markets []types.Market
	Pinned  bool
}

// UnsubscribeMsg requests that a market be unsubscribed and removed.
// Force bypasses the registry's pinned-market refusal; only the Pinned
// Watcher should ever set it.
type UnsubscribeMsg struct {
	MarketID string
	Force    bool
}

// ControlMsg is the tagged union carried on the control channel.
type ControlMsg struct {
	Subscribe   *SubscribeMsg
	Unsubscribe *UnsubscribeMsg
}

// TrySend performs the spec's non-blocking producer send: on a full
// control channel, drop and count rather than block.
func TrySend(ch chan<- ControlMsg, msg ControlMsg, logger *zap.Logger) bool {
	select {
	case ch <- msg:
		return true
	default:
		ControlChannelFullTotal.Inc()
		logger.Warn("control-channel-full")
		return false
	}
}

// Controller is the Subscription Controller.
type Controller struct {
	registry  *registry.Registry
	transport Transport
	controlIn <-chan ControlMsg
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds Controller configuration.
type Config struct {
	Registry  *registry.Registry
	Transport Transport
	ControlIn <-chan ControlMsg
	Logger    *zap.Logger
}

// New creates a Subscription Controller.
func New(cfg Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		registry:  cfg.Registry,
		transport: cfg.Transport,
		controlIn: cfg.ControlIn,
		logger:    cfg.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the controller's consuming loop.
func (c *Controller) Start() {
	c.wg.Add(1)
	go c.run()
}

// Close stops the controller.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-c.controlIn:
			if !ok {
				return
			}
			c.handle(msg)
		}
	}
}

func (c *Controller) handle(msg ControlMsg) {
	switch {
	case msg.Subscribe != nil:
		c.handleSubscribe(msg.Subscribe)
	case msg.Unsubscribe != nil:
		c.handleUnsubscribe(msg.Unsubscribe)
	}
}

func (c *Controller) handleSubscribe(msg *SubscribeMsg) {
	tokenIDs := make([]string, 0, len(msg.Markets)*2)
	for _, m := range msg.Markets {
		c.registry.AddMarket(m)
		if msg.Pinned {
			c.registry.PinMarket(m.ID)
		}
		// AddMarket returning false means the market is already
		// registered (or unresolvable); either way, resolve and
		// subscribe its tokens rather than silently dropping them —
		// a pre-registered pinned market must still get its wire
		// subscribe frame sent.
		yes, no, ok := c.registry.TokenIDsForMarket(m.ID)
		if !ok {
			continue
		}
		tokenIDs = append(tokenIDs, yes, no)
	}
	if len(tokenIDs) == 0 {
		return
	}
	if err := c.transport.Subscribe(c.ctx, tokenIDs); err != nil {
		c.logger.Error("subscribe-failed", zap.Error(err), zap.Int("token-count", len(tokenIDs)))
	}
}

// handleUnsubscribe enforces the ordering invariant: token ids must be
// resolved from the registry before the market is removed. Resolving
// after removal would silently orphan the feed-side subscription — the
// registry would have already forgotten which tokens belonged to this
// market.
func (c *Controller) handleUnsubscribe(msg *UnsubscribeMsg) {
	yes, no, ok := c.registry.TokenIDsForMarket(msg.MarketID)
	if !ok {
		c.logger.Debug("unsubscribe-unknown-market", zap.String("market-id", msg.MarketID))
		return
	}

	if err := c.transport.Unsubscribe(c.ctx, []string{yes, no}); err != nil {
		c.logger.Error("unsubscribe-failed", zap.Error(err), zap.String("market-id", msg.MarketID))
		return
	}

	c.registry.RemoveMarket(msg.MarketID, msg.Force)
}
