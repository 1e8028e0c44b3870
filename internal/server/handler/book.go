package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// BookService defines the methods the book handler requires from the service
// layer.
type BookService interface {
	DisplayDepth(ctx context.Context, levels int) domain.DepthSnapshot
	TradedVolume(traderID string) decimal.Decimal
}

// BookHandler serves order-book read endpoints.
type BookHandler struct {
	book   BookService
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler with the given service and logger.
func NewBookHandler(book BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		book:   book,
		logger: logHandler(logger, "book"),
	}
}

// GetDepth returns the aggregated top of the book.
// GET /api/book/depth?levels=20
func (h *BookHandler) GetDepth(w http.ResponseWriter, r *http.Request) {
	levels := 20
	if v := r.URL.Query().Get("levels"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "levels must be a positive integer")
			return
		}
		if n > 100 {
			n = 100
		}
		levels = n
	}

	writeJSON(w, http.StatusOK, h.book.DisplayDepth(r.Context(), levels))
}

// GetTraderVolume reports the cumulative notional a trader has executed.
// GET /api/traders/{id}/volume
func (h *BookHandler) GetTraderVolume(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing trader id")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"trader_id": id,
		"volume":    h.book.TradedVolume(id).String(),
	})
}
