package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/rs/zerolog"
)

type FavouriteHandler struct {
	favourites FavouriteService
	log        zerolog.Logger
}

func NewFavouriteHandler(favourites FavouriteService, log zerolog.Logger) *FavouriteHandler {
	return &FavouriteHandler{favourites: favourites, log: log}
}

type FavouritesResponse struct {
	Message    string            `json:"message,omitempty"`
	Favourites []*domain.Product `json:"favourites"`
}

// GET /api/user/favorite
func (h *FavouriteHandler) GetFavourites(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	products, err := h.favourites.GetFavourites(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, FavouritesResponse{Favourites: products})
}

// POST /api/user/favorite
func (h *FavouriteHandler) AddToFavourite(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.favourites.AddToFavourite, "Product added to favourites")
}

// PATCH /api/user/favorite
func (h *FavouriteHandler) RemoveFromFavourite(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.favourites.RemoveFromFavourite, "Product removed from favourites")
}

type favouriteMutation func(ctx context.Context, userID string, req service.FavouriteRequest) ([]*domain.Product, error)

func (h *FavouriteHandler) mutate(w http.ResponseWriter, r *http.Request, op favouriteMutation, message string) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req service.FavouriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	products, err := op(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, FavouritesResponse{Message: message, Favourites: products})
}
