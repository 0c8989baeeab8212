package feed

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/book"
)

func newTestIngestor(t *testing.T) (*Ingestor, *book.Store) {
	t.Helper()
	logger := zap.NewNop()
	store := book.New(logger)
	ing := New(Config{
		URL:               "ws://example.invalid",
		DialTimeout:       time.Second,
		PongTimeout:       time.Second,
		PingInterval:      time.Minute,
		MessageBufferSize: 16,
		Logger:            logger,
	}, store)
	return ing, store
}

func TestHandleFrameSnapshotEmitsPriceChange(t *testing.T) {
	ing, store := newTestIngestor(t)
	store.AddToken("tok-yes")

	ing.handleFrame([]byte(`{"event_type":"book","asset_id":"tok-yes","bids":[],"asks":[{"price":"0.55","size":"100"}]}`))

	select {
	case msg := <-ing.priceChan:
		if msg.TokenID != "tok-yes" || msg.BestAsk != 0.55 {
			t.Errorf("unexpected price msg: %+v", msg)
		}
	default:
		t.Fatal("expected a price change message")
	}
}

func TestHandleFrameDropsEmptyAsk(t *testing.T) {
	ing, store := newTestIngestor(t)
	store.AddToken("tok-yes")

	ing.handleFrame([]byte(`{"event_type":"book","asset_id":"tok-yes","bids":[{"price":"0.40","size":"10"}],"asks":[]}`))

	select {
	case msg := <-ing.priceChan:
		t.Fatalf("expected no price message for empty ask, got %+v", msg)
	default:
	}
}

func TestHandleFramePriceChangeArray(t *testing.T) {
	ing, store := newTestIngestor(t)
	store.AddToken("tok-a")
	store.AddToken("tok-b")
	store.ApplySnapshot("tok-a", []book.Level{{Price: 0.5, Size: 10}}, nil)
	store.ApplySnapshot("tok-b", []book.Level{{Price: 0.6, Size: 10}}, nil)

	ing.handleFrame([]byte(`{"event_type":"price_change","price_changes":[
		{"asset_id":"tok-a","price":"0.52","size":"20","side":"SELL"},
		{"asset_id":"tok-b","price":"0.61","size":"5","side":"SELL"}
	]}`))

	got := map[string]float64{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-ing.priceChan:
			got[msg.TokenID] = msg.BestAsk
		default:
			t.Fatalf("expected 2 price messages, got %d", i)
		}
	}
	if got["tok-a"] != 0.52 || got["tok-b"] != 0.61 {
		t.Errorf("unexpected routed prices: %+v", got)
	}
}

func TestHandleFrameTradeEvent(t *testing.T) {
	ing, _ := newTestIngestor(t)

	ing.handleFrame([]byte(`{"event_type":"last_trade_price","asset_id":"tok-yes","price":"0.58"}`))

	select {
	case msg := <-ing.tradeChan:
		if msg.TokenID != "tok-yes" || msg.Price != 0.58 {
			t.Errorf("unexpected trade msg: %+v", msg)
		}
	default:
		t.Fatal("expected a trade message")
	}
}

func TestSubscribeInitialBurstMarksEveryIDBeforeWrite(t *testing.T) {
	ing, _ := newTestIngestor(t)

	ids := make([]string, subscribeChunkSize+10)
	for i := range ids {
		ids[i] = "tok"
	}
	for i := range ids {
		ids[i] = ids[i] + string(rune('a'+i%26)) + strconv.Itoa(i)
	}

	// Without a live connection, writeJSON fails immediately; Subscribe
	// should still mark every id as subscribed, including those beyond
	// the first chunk, before the first write attempt fails, showing the
	// bookkeeping occurs ahead of the network call.
	_ = ing.Subscribe(ing.ctx, ids)

	ing.subMu.Lock()
	n := len(ing.subscribed)
	ing.subMu.Unlock()
	if n != len(ids) {
		t.Errorf("expected all %d ids marked subscribed, got %d", len(ids), n)
	}
}

// TestReadLoopClearsConnOnReadError reproduces the reconnect gate:
// reconnectLoop only redials once ing.conn is nil, so a read error must
// clear it rather than leaving the dead connection pointer in place.
func TestReadLoopClearsConnOnReadError(t *testing.T) {
	ing, _ := newTestIngestor(t)

	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()
	conn := websocket.NewConn(clientSide, false, 4096, 4096)

	ing.connMu.Lock()
	ing.conn = conn
	ing.connMu.Unlock()

	ing.wg.Add(1)
	go ing.readLoop()

	// Closing the underlying transport out from under the live
	// connection forces ReadMessage to fail, exercising the same path
	// as a dropped feed connection.
	serverSide.Close()
	clientSide.Close()

	deadline := time.After(time.Second)
	for {
		ing.connMu.RLock()
		c := ing.conn
		ing.connMu.RUnlock()
		if c == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for ing.conn to be cleared after a read error")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	ing.cancel()
	ing.wg.Wait()
}

func TestUnsubscribeClearsSubscribedSet(t *testing.T) {
	ing, _ := newTestIngestor(t)

	ing.subMu.Lock()
	ing.subscribed["tok-a"] = true
	ing.subscribed["tok-b"] = true
	ing.subMu.Unlock()

	_ = ing.Unsubscribe(ing.ctx, []string{"tok-a"})

	ing.subMu.Lock()
	_, stillThere := ing.subscribed["tok-a"]
	_, other := ing.subscribed["tok-b"]
	ing.subMu.Unlock()

	if stillThere {
		t.Error("expected tok-a to be removed from subscribed set")
	}
	if !other {
		t.Error("expected tok-b to remain subscribed")
	}
}
