package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/book"
	"github.com/arbwatch/pmspread/internal/registry"
	"github.com/arbwatch/pmspread/pkg/healthprobe"
	"github.com/arbwatch/pmspread/pkg/types"
)

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	store := book.New(logger)
	reg := registry.New(store, logger)

	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "valid_config_minimal",
			cfg: &Config{
				Port:          "8080",
				Logger:        logger,
				HealthChecker: healthChecker,
			},
		},
		{
			name: "valid_config_with_book",
			cfg: &Config{
				Port:           "8080",
				Logger:         logger,
				HealthChecker:  healthChecker,
				Book:           store,
				Registry:       reg,
				WindowRecorder: NewWindowRecorder(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := New(tt.cfg)
			if server == nil {
				t.Fatal("New() returned nil server")
			}
			if server.logger != tt.cfg.Logger {
				t.Error("New() logger not set correctly")
			}
			if server.healthChecker != tt.cfg.HealthChecker {
				t.Error("New() healthChecker not set correctly")
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	server := New(&Config{Port: "0", Logger: logger, HealthChecker: healthChecker})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{"ready_when_set", true, http.StatusOK},
		{"not_ready_initially", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			server := New(&Config{Port: "0", Logger: logger, HealthChecker: hc})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			server.server.Handler.ServeHTTP(w, req)

			resp := w.Result()
			defer resp.Body.Close()
			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	server := New(&Config{Port: "0", Logger: logger, HealthChecker: healthChecker})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp.Header.Get("Content-Type") == "" {
		t.Error("Metrics endpoint missing Content-Type header")
	}
}

func TestBookEndpoint_MarketNotFound(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	store := book.New(logger)
	reg := registry.New(store, logger)

	server := New(&Config{
		Port: "0", Logger: logger, HealthChecker: healthChecker,
		Book: store, Registry: reg, WindowRecorder: NewWindowRecorder(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/book?market_id=non-existent", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestBookEndpoint_MissingMarketID(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	store := book.New(logger)
	reg := registry.New(store, logger)

	server := New(&Config{
		Port: "0", Logger: logger, HealthChecker: healthChecker,
		Book: store, Registry: reg, WindowRecorder: NewWindowRecorder(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/book", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestBookEndpoint_ReturnsTrackedMarket(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	store := book.New(logger)
	reg := registry.New(store, logger)

	reg.AddMarket(types.Market{
		ID:   "m1",
		Slug: "m1",
		Tokens: []types.Token{
			{TokenID: "m1-yes", Outcome: "Yes"},
			{TokenID: "m1-no", Outcome: "No"},
		},
	})
	store.ApplySnapshot("m1-yes", []book.Level{{Price: 0.4, Size: 10}}, nil)

	server := New(&Config{
		Port: "0", Logger: logger, HealthChecker: healthChecker,
		Book: store, Registry: reg, WindowRecorder: NewWindowRecorder(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/book?market_id=m1", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var got BookResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Yes.BestAsk != 0.4 {
		t.Errorf("expected yes best ask 0.4, got %f", got.Yes.BestAsk)
	}
}

func TestWindowsEndpoint_ReturnsRecorded(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	recorder := NewWindowRecorder()
	recorder.Record(types.WindowCloseEvent{WindowOpenEvent: types.WindowOpenEvent{ID: "w1", MarketID: "m1"}})

	server := New(&Config{
		Port: "0", Logger: logger, HealthChecker: healthChecker,
		WindowRecorder: recorder,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/windows", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var got []types.WindowCloseEvent
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "w1" {
		t.Errorf("expected 1 recorded window w1, got %+v", got)
	}
}

func TestLatencyEndpoint_SummarizesRecorded(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()
	recorder := NewWindowRecorder()
	recorder.Record(types.WindowCloseEvent{DurationMS: 100})
	recorder.Record(types.WindowCloseEvent{DurationMS: 200})
	recorder.Record(types.WindowCloseEvent{DurationMS: 300})

	server := New(&Config{
		Port: "0", Logger: logger, HealthChecker: healthChecker,
		WindowRecorder: recorder,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/latency", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	var got LatencySummary
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.SampleCount != 3 {
		t.Errorf("expected sample count 3, got %d", got.SampleCount)
	}
	if got.MaxMs != 300 {
		t.Errorf("expected max 300ms, got %d", got.MaxMs)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	server := New(&Config{Port: "0", Logger: logger, HealthChecker: healthChecker})

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	logger := zap.NewNop()
	healthChecker := healthprobe.New()

	server := New(&Config{Port: "0", Logger: logger, HealthChecker: healthChecker})

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Non-existent route status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
