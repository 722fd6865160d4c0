package service

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/rs/zerolog"
)

type FavouriteService struct {
	users   repository.UserRepository
	catalog ProductCatalog
	log     zerolog.Logger
}

func NewFavouriteService(users repository.UserRepository, catalog ProductCatalog, log zerolog.Logger) *FavouriteService {
	return &FavouriteService{users: users, catalog: catalog, log: log}
}

// AddToFavourite is idempotent: adding a product twice leaves one entry.
func (s *FavouriteService) AddToFavourite(ctx context.Context, userID string, req FavouriteRequest) ([]*domain.Product, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	user, err := s.users.AddFavourite(ctx, userID, req.ProductID)
	if err != nil {
		logger.FromContext(ctx, s.log).Error().Err(err).Str("user_id", userID).Msg("repo add favourite error")
		return nil, err
	}
	return s.resolve(ctx, user)
}

// RemoveFromFavourite is idempotent: removing an absent product is not an error.
func (s *FavouriteService) RemoveFromFavourite(ctx context.Context, userID string, req FavouriteRequest) ([]*domain.Product, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.RemoveFavourite(ctx, userID, req.ProductID)
	if err != nil {
		logger.FromContext(ctx, s.log).Error().Err(err).Str("user_id", userID).Msg("repo remove favourite error")
		return nil, err
	}
	return s.resolve(ctx, user)
}

func (s *FavouriteService) GetFavourites(ctx context.Context, userID string) ([]*domain.Product, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, user)
}

// resolve returns the user's favourite products in insertion order, skipping
// ones no longer in the catalog.
func (s *FavouriteService) resolve(ctx context.Context, user *domain.User) ([]*domain.Product, error) {
	products, err := s.catalog.GetProductsByIDs(ctx, user.Favourites)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.Product, 0, len(user.Favourites))
	for _, id := range user.Favourites {
		if p, ok := products[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}
