package handler

import (
	"log/slog"
	"net/http"

	"github.com/driftline/matchcore/internal/domain"
)

// PositionSource reports the market maker's current inventory.
type PositionSource interface {
	Trader() string
	Snapshot() domain.Position
}

// CapitalSource reports the market maker's capital allocation.
type CapitalSource interface {
	Allocation() domain.CapitalAllocation
}

// PositionHandler exposes the market maker's inventory and capital. It is
// only registered when the process runs a strategy.
type PositionHandler struct {
	positions PositionSource
	capital   CapitalSource
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler over the given sources.
func NewPositionHandler(positions PositionSource, capital CapitalSource, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		capital:   capital,
		logger:    logHandler(logger, "positions"),
	}
}

// positionView is the JSON shape of the maker's inventory.
type positionView struct {
	TraderID     string `json:"trader_id"`
	NetQuantity  string `json:"net_quantity"`
	TotalBought  string `json:"total_bought"`
	TotalSold    string `json:"total_sold"`
	AvgBuyPrice  string `json:"avg_buy_price"`
	AvgSellPrice string `json:"avg_sell_price"`
	RealizedPnL  string `json:"realized_pnl"`
	Turnover     string `json:"turnover"`
}

// capitalView is the JSON shape of the maker's capital allocation.
type capitalView struct {
	TotalCapital    string `json:"total_capital"`
	Available       string `json:"available"`
	Reserved        string `json:"reserved"`
	PositionCapital string `json:"position_capital"`
	RealizedPnL     string `json:"realized_pnl"`
}

// GetPosition reports the maker's inventory and capital allocation.
// GET /api/positions
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos := h.positions.Snapshot()
	alloc := h.capital.Allocation()

	writeJSON(w, http.StatusOK, map[string]any{
		"position": positionView{
			TraderID:     h.positions.Trader(),
			NetQuantity:  pos.NetQuantity.String(),
			TotalBought:  pos.TotalBought.String(),
			TotalSold:    pos.TotalSold.String(),
			AvgBuyPrice:  pos.AvgBuyPrice.String(),
			AvgSellPrice: pos.AvgSellPrice.String(),
			RealizedPnL:  pos.RealizedPnL.String(),
			Turnover:     pos.Turnover.String(),
		},
		"capital": capitalView{
			TotalCapital:    alloc.TotalCapital.String(),
			Available:       alloc.Available.String(),
			Reserved:        alloc.Reserved.String(),
			PositionCapital: alloc.PositionCapital.String(),
			RealizedPnL:     alloc.RealizedPnL.String(),
		},
	})
}
