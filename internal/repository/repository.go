package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// UserRepository stores users together with their embedded cart and favourites.
// Every mutation is a single atomic document update and returns the document as
// it is after the write.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	AddCartItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.User, error)
	// RemoveCartItem decrements the line by quantity, dropping it when it reaches zero.
	// A quantity <= 0 drops the line outright.
	RemoveCartItem(ctx context.Context, userID string, productID int64, quantity int) (*domain.User, error)
	// ClearCartBefore drops every line added at or before the given instant.
	ClearCartBefore(ctx context.Context, userID string, before time.Time) error

	AddFavourite(ctx context.Context, userID string, productID int64) (*domain.User, error)
	RemoveFavourite(ctx context.Context, userID string, productID int64) (*domain.User, error)
}

type OrderRepository interface {
	// PlaceOrderAtomic inserts the order and empties the owner's cart in one transaction.
	PlaceOrderAtomic(ctx context.Context, order *domain.Order) error
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)

	MarkCartCleared(ctx context.Context, orderID string) error
	MarkPublished(ctx context.Context, orderID string, at time.Time) error
	GetUnpublishedOrders(ctx context.Context, limit int) ([]*domain.Order, error)
	GetPendingCartClears(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Order, error)
}

var ErrContention = domain.NewError(domain.ErrStorage, "cart changed concurrently too many times, retry the request")

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}

// now is truncated to the millisecond precision BSON dates carry, so values read
// back compare equal to the ones written.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
