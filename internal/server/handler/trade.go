package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/driftline/matchcore/internal/domain"
)

// TradeService defines the methods the trade handler requires from the
// service layer.
type TradeService interface {
	RecentTrades(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error)
	TraderTrades(ctx context.Context, traderID string, opts domain.ListOpts) ([]domain.Trade, error)
}

// TradeHandler serves trade history endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logHandler(logger, "trades"),
	}
}

// tradeRecordView is the JSON shape of one historical trade.
type tradeRecordView struct {
	ID         string    `json:"id"`
	Buyer      string    `json:"buyer"`
	Seller     string    `json:"seller"`
	Price      string    `json:"price"`
	Quantity   string    `json:"quantity"`
	ExecutedAt time.Time `json:"executed_at"`
}

// listTradesResponse wraps the trade list response.
type listTradesResponse struct {
	Trades []tradeRecordView `json:"trades"`
}

// ListTrades returns recent trades, optionally filtered to one trader.
// GET /api/trades?trader=alice&limit=50&offset=0
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	trader := r.URL.Query().Get("trader")

	var trades []domain.Trade
	var err error
	if trader != "" {
		trades, err = h.trades.TraderTrades(r.Context(), trader, opts)
	} else {
		trades, err = h.trades.RecentTrades(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	views := make([]tradeRecordView, 0, len(trades))
	for _, t := range trades {
		views = append(views, tradeRecordView{
			ID:         t.ID,
			Buyer:      t.Buyer,
			Seller:     t.Seller,
			Price:      t.Price.String(),
			Quantity:   t.Quantity.String(),
			ExecutedAt: t.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, listTradesResponse{Trades: views})
}
