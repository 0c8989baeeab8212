package registry

import (
	"testing"

	"github.com/arbwatch/pmspread/internal/book"
	"github.com/arbwatch/pmspread/pkg/types"
	"go.uber.org/zap"
)

func newTestRegistry() (*Registry, *book.Store) {
	logger := zap.NewNop()
	store := book.New(logger)
	return New(store, logger), store
}

func testMarket(id string) types.Market {
	return types.Market{
		ID:         id,
		Slug:       id + "-slug",
		Outcomes:   `["Yes","No"]`,
		ClobTokens: `["` + id + "-yes" + `","` + id + "-no" + `"]`,
	}
}

func TestAddMarketCreatesTokenBooks(t *testing.T) {
	reg, store := newTestRegistry()

	m := testMarket("m1")
	if !reg.AddMarket(m) {
		t.Fatal("expected AddMarket to succeed")
	}

	yes, no, ok := reg.TokenIDsForMarket("m1")
	if !ok {
		t.Fatal("expected token ids to resolve")
	}
	if yes != "m1-yes" || no != "m1-no" {
		t.Errorf("unexpected token ids: yes=%s no=%s", yes, no)
	}

	if _, ok := store.ApplySnapshot(yes, nil, nil); !ok {
		t.Error("expected yes token book to exist")
	}
	if _, ok := store.ApplySnapshot(no, nil, nil); !ok {
		t.Error("expected no token book to exist")
	}
}

func TestMarketForTokenReverseIndex(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.AddMarket(testMarket("m1"))

	marketID, ok := reg.MarketForToken("m1-yes")
	if !ok || marketID != "m1" {
		t.Errorf("expected reverse lookup to resolve m1-yes -> m1, got %q ok=%v", marketID, ok)
	}

	if _, ok := reg.MarketForToken("unknown-token"); ok {
		t.Error("expected unknown token to not resolve")
	}
}

// TestRemoveMarketOrdering is the registry half of seed scenario 6: token ids must resolve
// before the market is removed from the registry.
func TestRemoveMarketOrdering(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.AddMarket(testMarket("m1"))

	yesBefore, noBefore, ok := reg.TokenIDsForMarket("m1")
	if !ok {
		t.Fatal("expected token ids to resolve before removal")
	}

	yes, no, ok := reg.RemoveMarket("m1", false)
	if !ok {
		t.Fatal("expected RemoveMarket to succeed")
	}
	if yes != yesBefore || no != noBefore {
		t.Error("expected RemoveMarket to return the same token ids resolved before removal")
	}

	if _, _, ok := reg.TokenIDsForMarket("m1"); ok {
		t.Error("expected market to be gone after removal")
	}
}

func TestPinnedMarketResistsRemovalWithoutForce(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.AddMarket(testMarket("m1"))
	reg.PinMarket("m1")

	if !reg.IsPinned("m1") {
		t.Fatal("expected market to be pinned")
	}

	if _, _, ok := reg.RemoveMarket("m1", false); ok {
		t.Error("expected pinned market removal to be refused without force")
	}

	if _, _, ok := reg.RemoveMarket("m1", true); !ok {
		t.Error("expected forced removal of pinned market to succeed")
	}
}

func TestHydratedMarketCount(t *testing.T) {
	reg, store := newTestRegistry()
	reg.AddMarket(testMarket("m1"))

	if got := reg.HydratedMarketCount(); got != 0 {
		t.Fatalf("expected 0 hydrated markets, got %d", got)
	}

	store.ApplySnapshot("m1-yes", []book.Level{{Price: 0.4, Size: 10}}, nil)
	store.ApplySnapshot("m1-no", []book.Level{{Price: 0.4, Size: 10}}, nil)

	if got := reg.HydratedMarketCount(); got != 1 {
		t.Fatalf("expected 1 hydrated market, got %d", got)
	}
}
