package http

import (
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/rs/zerolog"
)

type CartHandler struct {
	carts CartService
	log   zerolog.Logger
}

func NewCartHandler(carts CartService, log zerolog.Logger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

type CartResponse struct {
	Message string       `json:"message,omitempty"`
	Cart    *domain.Cart `json:"cart"`
}

// GET /api/user/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Cart: cart})
}

// POST /api/user/cart
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req service.AddToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.AddToCart(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Message: "Product added to cart", Cart: cart})
}

// PATCH /api/user/cart
func (h *CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req service.RemoveFromCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.carts.RemoveFromCart(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Message: "Product removed from cart", Cart: cart})
}
