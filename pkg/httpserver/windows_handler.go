package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// WindowsHandler serves the recent closed-window ring buffer.
type WindowsHandler struct {
	recorder *WindowRecorder
	logger   *zap.Logger
}

// NewWindowsHandler creates a windows debug handler.
func NewWindowsHandler(recorder *WindowRecorder, logger *zap.Logger) *WindowsHandler {
	return &WindowsHandler{recorder: recorder, logger: logger}
}

// HandleWindows handles GET /api/windows requests.
func (h *WindowsHandler) HandleWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "method not allowed"})
		return
	}

	recent := h.recorder.Recent()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(recent); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}
