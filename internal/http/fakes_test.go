package http

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
)

type fakeUsers struct {
	result  *service.AuthResult
	err     error
	lastReg service.RegisterRequest
}

func (f *fakeUsers) Register(_ context.Context, req service.RegisterRequest) (*service.AuthResult, error) {
	f.lastReg = req
	return f.result, f.err
}

func (f *fakeUsers) Login(_ context.Context, _ service.LoginRequest) (*service.AuthResult, error) {
	return f.result, f.err
}

type fakeCarts struct {
	cart      *domain.Cart
	err       error
	gotUserID string
	added     service.AddToCartRequest
	removed   service.RemoveFromCartRequest
}

func (f *fakeCarts) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	f.gotUserID = userID
	return f.cart, f.err
}

func (f *fakeCarts) AddToCart(_ context.Context, userID string, req service.AddToCartRequest) (*domain.Cart, error) {
	f.gotUserID = userID
	f.added = req
	return f.cart, f.err
}

func (f *fakeCarts) RemoveFromCart(_ context.Context, userID string, req service.RemoveFromCartRequest) (*domain.Cart, error) {
	f.gotUserID = userID
	f.removed = req
	return f.cart, f.err
}

type fakeFavourites struct {
	products []*domain.Product
	err      error
	last     service.FavouriteRequest
}

func (f *fakeFavourites) GetFavourites(context.Context, string) ([]*domain.Product, error) {
	return f.products, f.err
}

func (f *fakeFavourites) AddToFavourite(_ context.Context, _ string, req service.FavouriteRequest) ([]*domain.Product, error) {
	f.last = req
	return f.products, f.err
}

func (f *fakeFavourites) RemoveFromFavourite(_ context.Context, _ string, req service.FavouriteRequest) ([]*domain.Product, error) {
	f.last = req
	return f.products, f.err
}

type fakeOrders struct {
	order  *domain.Order
	orders []*domain.Order
	err    error
	placed service.PlaceOrderRequest
}

func (f *fakeOrders) PlaceOrder(_ context.Context, _ string, req service.PlaceOrderRequest) (*domain.Order, error) {
	f.placed = req
	return f.order, f.err
}

func (f *fakeOrders) GetOrders(context.Context, string) ([]*domain.Order, error) {
	return f.orders, f.err
}

type fakeProducts struct {
	products []*domain.Product
	product  *domain.Product
	err      error
	filter   domain.ProductFilter
	gotID    int64
}

func (f *fakeProducts) ListProducts(_ context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	f.filter = filter
	return f.products, f.err
}

func (f *fakeProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	f.gotID = id
	return f.product, f.err
}

type fakeVerifier struct {
	userID string
	err    error
}

func (f fakeVerifier) Verify(string) (string, error) {
	return f.userID, f.err
}
