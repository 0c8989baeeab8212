package httpserver

import (
	"encoding/json"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/pkg/types"
)

// LatencyHandler summarizes the open-to-close durations (DurationMS) of
// the windows in the recent-window ring buffer, following the original implementation's
// separate latency-reporting endpoint.
type LatencyHandler struct {
	recorder *WindowRecorder
	logger   *zap.Logger
}

// NewLatencyHandler creates a latency debug handler.
func NewLatencyHandler(recorder *WindowRecorder, logger *zap.Logger) *LatencyHandler {
	return &LatencyHandler{recorder: recorder, logger: logger}
}

// LatencySummary reports duration-ms percentiles over the recent window.
type LatencySummary struct {
	SampleCount int     `json:"sample_count"`
	P50Ms       int64   `json:"p50_ms"`
	P95Ms       int64   `json:"p95_ms"`
	MaxMs       int64   `json:"max_ms"`
	MeanMs      float64 `json:"mean_ms"`
}

// HandleLatency handles GET /api/latency requests.
func (h *LatencyHandler) HandleLatency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "method not allowed"})
		return
	}

	recent := h.recorder.Recent()
	summary := summarizeLatency(recent)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func summarizeLatency(events []types.WindowCloseEvent) LatencySummary {
	if len(events) == 0 {
		return LatencySummary{}
	}

	durations := make([]int64, len(events))
	var sum int64
	for i, ev := range events {
		durations[i] = ev.DurationMS
		sum += ev.DurationMS
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	return LatencySummary{
		SampleCount: len(durations),
		P50Ms:       percentile(durations, 0.50),
		P95Ms:       percentile(durations, 0.95),
		MaxMs:       durations[len(durations)-1],
		MeanMs:      float64(sum) / float64(len(durations)),
	}
}

// percentile assumes durations is sorted ascending.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
