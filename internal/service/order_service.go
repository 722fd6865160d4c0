package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/rs/zerolog"
)

type OrderService struct {
	orders  repository.OrderRepository
	users   repository.UserRepository
	cache   cache.CartCache
	mode    domain.PlacementMode
	metrics metrics.Recorder
	log     zerolog.Logger
}

func NewOrderService(orders repository.OrderRepository, users repository.UserRepository, cartCache cache.CartCache,
	mode domain.PlacementMode, rec metrics.Recorder, log zerolog.Logger) (*OrderService, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown order placement mode %q", mode)
	}
	return &OrderService{
		orders:  orders,
		users:   users,
		cache:   cartCache,
		mode:    mode,
		metrics: rec,
		log:     log,
	}, nil
}

// PlaceOrder records the order and empties the user's cart. The product
// snapshot and total are stored exactly as supplied.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*domain.Order, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	order := &domain.Order{
		UserID:      userID,
		Products:    req.Products,
		TotalAmount: req.TotalAmount,
		Address:     req.Address,
	}

	var err error
	switch s.mode {
	case domain.PlacementTwoPhase:
		err = s.placeTwoPhase(ctx, order)
	default:
		err = s.orders.PlaceOrderAtomic(ctx, order)
		if err == nil {
			s.invalidate(ctx, userID)
		}
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.FromContext(ctx, s.log).Error().Err(err).Str("user_id", userID).Msg("place order error")
		}
		return nil, err
	}

	s.metrics.RecordOrderPlaced(string(s.mode))
	logger.FromContext(ctx, s.log).Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Str("mode", string(s.mode)).
		Msg("order placed")
	return order, nil
}

// placeTwoPhase inserts the order before touching the cart. Once the insert has
// succeeded the order stands; a failed clear is left for ReconcileOrder.
func (s *OrderService) placeTwoPhase(ctx context.Context, order *domain.Order) error {
	if _, err := s.users.GetUserByID(ctx, order.UserID); err != nil {
		return err
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return err
	}

	if err := s.clearCart(ctx, order); err != nil {
		s.metrics.RecordCartClearFailure()
		logger.FromContext(ctx, s.log).Warn().Err(err).
			Str("order_id", order.ID).
			Msg("cart clear after order placement failed, leaving it for reconciliation")
		return nil
	}
	order.CartCleared = true
	return nil
}

func (s *OrderService) clearCart(ctx context.Context, order *domain.Order) error {
	if err := s.users.ClearCartBefore(ctx, order.UserID, order.CreatedAt); err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
	}
	s.invalidate(ctx, order.UserID)
	return s.orders.MarkCartCleared(ctx, order.ID)
}

func (s *OrderService) GetOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		logger.FromContext(ctx, s.log).Error().Err(err).Str("user_id", userID).Msg("list orders error")
		return nil, err
	}
	return orders, nil
}

// ReconcileOrder finishes an interrupted cart clear. Only lines added at or
// before the order's creation are removed, so items the user put in the cart
// afterwards survive. Safe to call any number of times.
func (s *OrderService) ReconcileOrder(ctx context.Context, orderID string) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.CartCleared {
		return nil
	}

	if err := s.clearCart(ctx, order); err != nil {
		return fmt.Errorf("reconcile order %s: %w", orderID, err)
	}

	s.metrics.RecordCartReconciled()
	logger.FromContext(ctx, s.log).Info().
		Str("order_id", orderID).
		Str("user_id", order.UserID).
		Msg("cart reconciled for order")
	return nil
}

func (s *OrderService) invalidate(ctx context.Context, userID string) {
	invalidateCart(ctx, s.cache, s.log, userID)
}
