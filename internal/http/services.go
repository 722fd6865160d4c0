package http

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type UserService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResult, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResult, error)
}

type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddToCart(ctx context.Context, userID string, req service.AddToCartRequest) (*domain.Cart, error)
	RemoveFromCart(ctx context.Context, userID string, req service.RemoveFromCartRequest) (*domain.Cart, error)
}

type FavouriteService interface {
	GetFavourites(ctx context.Context, userID string) ([]*domain.Product, error)
	AddToFavourite(ctx context.Context, userID string, req service.FavouriteRequest) ([]*domain.Product, error)
	RemoveFromFavourite(ctx context.Context, userID string, req service.FavouriteRequest) ([]*domain.Product, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID string, req service.PlaceOrderRequest) (*domain.Order, error)
	GetOrders(ctx context.Context, userID string) ([]*domain.Order, error)
}

type ProductService interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}
