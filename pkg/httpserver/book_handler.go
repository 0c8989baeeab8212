package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/book"
	"github.com/arbwatch/pmspread/internal/registry"
)

// BookHandler serves read-only Book Store snapshots keyed by market id.
type BookHandler struct {
	store    *book.Store
	registry *registry.Registry
	logger   *zap.Logger
}

// NewBookHandler creates a book debug handler.
func NewBookHandler(store *book.Store, reg *registry.Registry, logger *zap.Logger) *BookHandler {
	return &BookHandler{store: store, registry: reg, logger: logger}
}

// SideSnapshot is one token's best bid/ask.
type SideSnapshot struct {
	TokenID string  `json:"token_id"`
	BestAsk float64 `json:"best_ask"`
	BestBid float64 `json:"best_bid"`
}

// BookResponse is the HTTP response for GET /api/book.
type BookResponse struct {
	MarketID string       `json:"market_id"`
	Yes      SideSnapshot `json:"yes"`
	No       SideSnapshot `json:"no"`
}

// HandleBook handles GET /api/book?market_id=<id> requests.
func (h *BookHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	marketID := r.URL.Query().Get("market_id")
	if marketID == "" {
		h.writeError(w, "missing required query parameter: market_id", http.StatusBadRequest)
		return
	}

	yesToken, noToken, ok := h.registry.TokenIDsForMarket(marketID)
	if !ok {
		h.writeError(w, "market not found or not subscribed", http.StatusNotFound)
		return
	}

	yesBest, _ := h.store.BestPrices(yesToken)
	noBest, _ := h.store.BestPrices(noToken)

	resp := BookResponse{
		MarketID: marketID,
		Yes:      SideSnapshot{TokenID: yesToken, BestAsk: yesBest.BestAsk, BestBid: yesBest.BestBid},
		No:       SideSnapshot{TokenID: noToken, BestAsk: noBest.BestAsk, BestBid: noBest.BestBid},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *BookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
