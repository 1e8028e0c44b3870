package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/driftline/matchcore/internal/strategy"
)

// StrategySource reports the registered strategies and which one is active.
type StrategySource interface {
	ActiveName() string
	ListInfo() []strategy.Info
}

// StrategyHandler exposes strategy runtime status. It is only registered
// when the process runs a strategy.
type StrategyHandler struct {
	source StrategySource
	logger *slog.Logger
}

// NewStrategyHandler creates a StrategyHandler over the given source.
func NewStrategyHandler(source StrategySource, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{
		source: source,
		logger: logHandler(logger, "strategies"),
	}
}

// strategyView is the JSON shape of one registered strategy's status.
type strategyView struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	OrdersSent  int64  `json:"orders_sent"`
	ErrorCount  int64  `json:"error_count"`
	LastOrderAt string `json:"last_order_at,omitempty"`
}

// ListStrategies reports every registered strategy and the live counters of
// the active one.
// GET /api/strategies
func (h *StrategyHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	infos := h.source.ListInfo()
	views := make([]strategyView, 0, len(infos))
	for _, info := range infos {
		v := strategyView{
			Name:       info.Name,
			Status:     info.Status,
			OrdersSent: info.OrdersSent,
			ErrorCount: info.ErrorCount,
		}
		if info.LastOrderAt != nil {
			v.LastOrderAt = info.LastOrderAt.UTC().Format(time.RFC3339)
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active":     h.source.ActiveName(),
		"strategies": views,
	})
}
