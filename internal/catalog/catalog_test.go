package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/pkg/types"
)

func testMarket(id string, volume, liquidity float64, endIn time.Duration) types.Market {
	m := types.Market{
		ID:         id,
		Slug:       id,
		Active:     true,
		Volume24hr: volume,
		Liquidity:  liquidity,
		Tokens: []types.Token{
			{TokenID: id + "-yes", Outcome: "Yes"},
			{TokenID: id + "-no", Outcome: "No"},
		},
	}
	if endIn != 0 {
		m.EndDate = time.Now().Add(endIn)
	}
	return m
}

func TestQualifiesAppliesAllThresholds(t *testing.T) {
	svc := &Service{
		logger: zap.NewNop(),
		cfg: Config{
			MinVolume24h:     100,
			MinLiquidity:     50,
			MinExpiryMinutes: 10 * time.Minute,
			MaxExpiryHours:   48 * time.Hour,
		},
	}
	now := time.Now()

	cases := []struct {
		name string
		m    types.Market
		want bool
	}{
		{"qualifies", testMarket("m1", 200, 100, time.Hour), true},
		{"low-volume", testMarket("m2", 10, 100, time.Hour), false},
		{"low-liquidity", testMarket("m3", 200, 10, time.Hour), false},
		{"expires-too-soon", testMarket("m4", 200, 100, 5*time.Minute), false},
		{"expires-too-far", testMarket("m5", 200, 100, 72*time.Hour), false},
		{"already-closed", func() types.Market { m := testMarket("m6", 200, 100, time.Hour); m.Closed = true; return m }(), false},
		{"no-expiry-set", testMarket("m7", 200, 100, 0), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.qualifies(tc.m, now); got != tc.want {
				t.Errorf("qualifies(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestFetchQualifyingCapsAtMaxMarkets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"m1","slug":"m1","active":true,"outcomes":"[\"Yes\",\"No\"]","clobTokenIds":"[\"a\",\"b\"]","volume24hr":500,"liquidity":500},
			{"id":"m2","slug":"m2","active":true,"outcomes":"[\"Yes\",\"No\"]","clobTokenIds":"[\"c\",\"d\"]","volume24hr":500,"liquidity":500},
			{"id":"m3","slug":"m3","active":true,"outcomes":"[\"Yes\",\"No\"]","clobTokenIds":"[\"e\",\"f\"]","volume24hr":500,"liquidity":500}
		]`))
	}))
	defer server.Close()

	svc := New(Config{
		Client:     NewClient(server.URL, zap.NewNop()),
		Logger:     zap.NewNop(),
		MaxMarkets: 2,
	})

	markets, err := svc.FetchQualifying(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markets) != 2 {
		t.Fatalf("expected 2 markets capped by MaxMarkets, got %d", len(markets))
	}
}

func TestFetchPinnedCandidatesSkipsMissingEndDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"btc-1","slug":"btc-updown-5m-1","active":true,"outcomes":"[\"Yes\",\"No\"]","clobTokenIds":"[\"a\",\"b\"]","endDate":"2099-01-01T00:00:00Z"},
			{"id":"btc-2","slug":"btc-updown-5m-2","active":true,"outcomes":"[\"Yes\",\"No\"]","clobTokenIds":"[\"c\",\"d\"]"}
		]`))
	}))
	defer server.Close()

	svc := New(Config{
		Client: NewClient(server.URL, zap.NewNop()),
		Logger: zap.NewNop(),
	})

	candidates, err := svc.FetchPinnedCandidates(context.Background(), []string{"btc-updown-5m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Market.ID != "btc-1" {
		t.Fatalf("expected only btc-1 (has endDate) to be returned, got %+v", candidates)
	}
}
