package http

import (
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/rs/zerolog"
)

type OrderHandler struct {
	orders OrderService
	log    zerolog.Logger
}

func NewOrderHandler(orders OrderService, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

type OrderResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

type OrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// POST /api/user/order
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req service.PlaceOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, OrderResponse{Message: "Order placed successfully", Order: order})
}

// GET /api/user/order
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.GetOrders(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}
