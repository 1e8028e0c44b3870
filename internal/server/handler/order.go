package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/driftline/matchcore/internal/domain"
)

// OrderService defines the methods that the order handler requires from the
// service layer.
type OrderService interface {
	SubmitOrder(ctx context.Context, order domain.Order) (domain.MatchResult, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	OrderStatus(orderID string) domain.OrderStatus
	OrderHistory(ctx context.Context, orderID string) ([]domain.OrderEvent, error)
}

// OrderHandler serves order-related HTTP endpoints.
type OrderHandler struct {
	orders OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(orders OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logHandler(logger, "orders"),
	}
}

// submitOrderRequest is the JSON body for placing an order. ID is optional;
// a UUID is assigned when it is omitted.
type submitOrderRequest struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
	TraderID string `json:"trader_id"`
}

// tradeView is the JSON shape of a single execution in a submit response.
type tradeView struct {
	ID       string `json:"id"`
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// submitOrderResponse summarizes the outcome of matching one order.
type submitOrderResponse struct {
	OrderID        string      `json:"order_id"`
	Status         string      `json:"status"`
	FilledQuantity string      `json:"filled_quantity"`
	AveragePrice   string      `json:"average_price,omitempty"`
	Remaining      string      `json:"remaining_quantity,omitempty"`
	Trades         []tradeView `json:"trades"`
}

// SubmitOrder places a new order into the matching engine.
// POST /api/orders
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.TraderID == "" {
		writeError(w, http.StatusBadRequest, "trader_id is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	price := decimal.Zero
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid price: "+req.Price)
			return
		}
		price = p
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity: "+req.Quantity)
		return
	}

	order, err := domain.NewOrder(req.ID, domain.OrderType(req.Type), domain.Side(req.Side),
		price, quantity, req.TraderID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orders.SubmitOrder(r.Context(), order)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, verr.Error())
			return
		}
		if errors.Is(err, domain.ErrDuplicateOrder) {
			writeError(w, http.StatusConflict, "duplicate order id")
			return
		}
		if errors.Is(err, domain.ErrInvalidOrder) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "submit order failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to submit order")
		return
	}

	writeJSON(w, http.StatusCreated, toSubmitResponse(order.ID, result))
}

// CancelOrder withdraws a resting order by its ID.
// DELETE /api/orders/{id}
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	ok, err := h.orders.CancelOrder(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "cancel order failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "order not found or already closed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "cancelled",
		"order_id": id,
	})
}

// GetOrder reports the current status of an order.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"order_id": id,
		"status":   string(h.orders.OrderStatus(id)),
	})
}

// orderEventView is the JSON shape of one lifecycle transition.
type orderEventView struct {
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// GetOrderEvents lists the recorded lifecycle transitions for an order.
// GET /api/orders/{id}/events
func (h *OrderHandler) GetOrderEvents(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	events, err := h.orders.OrderHistory(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list order events failed",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list order events")
		return
	}

	views := make([]orderEventView, 0, len(events))
	for _, e := range events {
		views = append(views, orderEventView{
			Status:    string(e.Status),
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id": id,
		"events":   views,
	})
}

func toSubmitResponse(orderID string, result domain.MatchResult) submitOrderResponse {
	resp := submitOrderResponse{
		OrderID:        orderID,
		Status:         string(result.FinalStatus),
		FilledQuantity: result.FilledQuantity.String(),
		Trades:         make([]tradeView, 0, len(result.Trades)),
	}
	if result.HasExecutions() {
		resp.AveragePrice = result.AveragePrice.String()
	}
	if result.RemainingOrder != nil {
		resp.Remaining = result.RemainingOrder.Quantity.String()
	}
	for _, t := range result.Trades {
		resp.Trades = append(resp.Trades, tradeView{
			ID:       t.ID,
			Buyer:    t.Buyer,
			Seller:   t.Seller,
			Price:    t.Price.String(),
			Quantity: t.Quantity.String(),
		})
	}
	return resp
}
