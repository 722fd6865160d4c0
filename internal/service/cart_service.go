package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ProductCatalog is the part of the product catalog the services resolve against.
type ProductCatalog interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}

const (
	cacheOpTimeout  = time.Second
	cartLoadTimeout = 5 * time.Second
)

type CartService struct {
	users   repository.UserRepository
	catalog ProductCatalog
	cache   cache.CartCache
	metrics metrics.Recorder
	log     zerolog.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(users repository.UserRepository, catalog ProductCatalog, cartCache cache.CartCache,
	rec metrics.Recorder, log zerolog.Logger) *CartService {
	return &CartService{
		users:   users,
		catalog: catalog,
		cache:   cartCache,
		metrics: rec,
		log:     log,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	ch := s.sfg.DoChan(userID, func() (interface{}, error) {
		// the flight is shared by every caller waiting on this user
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartLoadTimeout)
		defer cancel()
		return s.loadCart(loadCtx, userID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Cart), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	log := logger.FromContext(ctx, s.log)

	cart, err := s.cache.Get(ctx, userID)
	if err == nil {
		s.metrics.RecordCacheResult(true)
		return cart, nil
	}
	s.metrics.RecordCacheResult(false)
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("user_id", userID).Msg("cache get error")
	}

	// Read before the user document. A write committing after this point
	// bumps the generation and the fill below is dropped.
	gen, genErr := s.cache.Generation(ctx, userID)
	if genErr != nil {
		log.Warn().Err(genErr).Str("user_id", userID).Msg("cache generation error")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart, err = s.resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		err := s.cache.Set(ctx, userID, cart, gen)
		switch {
		case errors.Is(err, cache.ErrStaleCart):
			log.Debug().Str("user_id", userID).Msg("cart changed during load, not caching")
		case err != nil:
			log.Warn().Err(err).Str("user_id", userID).Msg("cache set error")
		}
	}
	return cart, nil
}

func (s *CartService) AddToCart(ctx context.Context, userID string, req AddToCartRequest) (*domain.Cart, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	user, err := s.users.AddCartItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		logger.FromContext(ctx, s.log).Error().Err(err).Str("user_id", userID).Msg("repo add cart item error")
		return nil, err
	}
	s.invalidate(ctx, userID)

	return s.resolve(ctx, user)
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID string, req RemoveFromCartRequest) (*domain.Cart, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.RemoveCartItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.FromContext(ctx, s.log).Error().Err(err).Str("user_id", userID).Msg("repo remove cart item error")
		}
		return nil, err
	}
	s.invalidate(ctx, userID)

	return s.resolve(ctx, user)
}

// resolve joins the user's cart lines to catalog products. Lines whose product
// is gone keep a nil Product.
func (s *CartService) resolve(ctx context.Context, user *domain.User) (*domain.Cart, error) {
	products, err := s.catalog.GetProductsByIDs(ctx, domain.ProductIDs(user.Cart))
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{
		UserID:    user.ID,
		Items:     make([]domain.CartItem, 0, len(user.Cart)),
		UpdatedAt: user.UpdatedAt,
	}
	for _, line := range user.Cart {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt,
			Product:   products[line.ProductID],
		})
	}
	return cart, nil
}

// invalidate drops the cached cart. It runs after the write has committed and
// outlives a cancelled request context.
func (s *CartService) invalidate(ctx context.Context, userID string) {
	invalidateCart(ctx, s.cache, s.log, userID)
}

func invalidateCart(ctx context.Context, c cache.CartCache, log zerolog.Logger, userID string) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := c.Delete(delCtx, userID); err != nil {
		logger.FromContext(ctx, log).Warn().Err(err).Str("user_id", userID).Msg("cache invalidate error")
	}
}
