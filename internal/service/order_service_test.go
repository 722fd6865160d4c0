package service

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	users   *fakeUserRepo
	orders  *fakeOrderRepo
	cache   *mockCache
	metrics *recordingMetrics
	svc     *OrderService
}

func newOrderFixture(t *testing.T, mode domain.PlacementMode) *orderFixture {
	t.Helper()
	f := &orderFixture{
		users:   newFakeUserRepo(),
		cache:   newMockCache(),
		metrics: newRecordingMetrics(),
	}
	f.orders = &fakeOrderRepo{users: f.users}
	svc, err := NewOrderService(f.orders, f.users, f.cache, mode, f.metrics, zerolog.Nop())
	require.NoError(t, err)
	f.svc = svc
	return f
}

func validOrder() PlaceOrderRequest {
	return PlaceOrderRequest{
		Products:    []domain.OrderLine{{ProductID: 1, Quantity: 2}, {ProductID: 3, Quantity: 1}},
		Address:     "221B Baker Street",
		TotalAmount: 70,
	}
}

func TestNewOrderService_RejectsUnknownMode(t *testing.T) {
	_, err := NewOrderService(&fakeOrderRepo{}, newFakeUserRepo(), newMockCache(), "eventually", newRecordingMetrics(), zerolog.Nop())
	assert.Error(t, err)
}

func TestPlaceOrder_ClearsCart(t *testing.T) {
	for _, mode := range []domain.PlacementMode{domain.PlacementTransaction, domain.PlacementTwoPhase} {
		t.Run(string(mode), func(t *testing.T) {
			f := newOrderFixture(t, mode)
			f.users.seed("u1", domain.CartLine{ProductID: 1, Quantity: 2, AddedAt: time.Now().Add(-time.Minute)})
			f.cache.carts["u1"] = &domain.Cart{UserID: "u1"}

			order, err := f.svc.PlaceOrder(context.Background(), "u1", validOrder())
			require.NoError(t, err)

			assert.NotEmpty(t, order.ID)
			assert.Equal(t, "u1", order.UserID)
			assert.Equal(t, 70.0, order.TotalAmount)
			assert.Equal(t, validOrder().Products, order.Products)
			assert.True(t, order.CartCleared)

			assert.Empty(t, f.users.get("u1").Cart)
			assert.False(t, f.cache.has("u1"))
			assert.True(t, f.orders.stored(order.ID).CartCleared)
			assert.Equal(t, 1, f.metrics.placed[string(mode)])
		})
	}
}

func TestPlaceOrder_InvalidInputWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		req  func(r *PlaceOrderRequest)
	}{
		{"no products", func(r *PlaceOrderRequest) { r.Products = nil }},
		{"empty products", func(r *PlaceOrderRequest) { r.Products = []domain.OrderLine{} }},
		{"zero quantity", func(r *PlaceOrderRequest) { r.Products[0].Quantity = 0 }},
		{"zero product id", func(r *PlaceOrderRequest) { r.Products[1].ProductID = 0 }},
		{"missing address", func(r *PlaceOrderRequest) { r.Address = "" }},
		{"negative total", func(r *PlaceOrderRequest) { r.TotalAmount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t, domain.PlacementTransaction)
			f.users.seed("u1", domain.CartLine{ProductID: 1, Quantity: 2})

			req := validOrder()
			tt.req(&req)
			_, err := f.svc.PlaceOrder(context.Background(), "u1", req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)

			assert.Len(t, f.users.get("u1").Cart, 1)
			orders, err := f.svc.GetOrders(context.Background(), "u1")
			require.NoError(t, err)
			assert.Empty(t, orders)
		})
	}
}

func TestPlaceOrder_UnknownUser(t *testing.T) {
	for _, mode := range []domain.PlacementMode{domain.PlacementTransaction, domain.PlacementTwoPhase} {
		t.Run(string(mode), func(t *testing.T) {
			f := newOrderFixture(t, mode)

			_, err := f.svc.PlaceOrder(context.Background(), "ghost", validOrder())
			assert.ErrorIs(t, err, domain.ErrUserNotFound)
			assert.Empty(t, f.orders.orders)
		})
	}
}

func TestPlaceOrder_StorageFailureLeavesCart(t *testing.T) {
	f := newOrderFixture(t, domain.PlacementTransaction)
	f.users.seed("u1", domain.CartLine{ProductID: 1, Quantity: 2})
	f.orders.err = domain.ErrStorage

	_, err := f.svc.PlaceOrder(context.Background(), "u1", validOrder())
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Len(t, f.users.get("u1").Cart, 1)
}

func TestPlaceOrder_TwoPhaseClearFailureStillReturnsOrder(t *testing.T) {
	f := newOrderFixture(t, domain.PlacementTwoPhase)
	f.users.seed("u1", domain.CartLine{ProductID: 1, Quantity: 2, AddedAt: time.Now().Add(-time.Minute)})
	f.users.clearErr = domain.ErrStorage

	order, err := f.svc.PlaceOrder(context.Background(), "u1", validOrder())
	require.NoError(t, err)
	assert.False(t, order.CartCleared)
	assert.False(t, f.orders.stored(order.ID).CartCleared)
	assert.Len(t, f.users.get("u1").Cart, 1)
	assert.Equal(t, 1, f.metrics.clearFailures)
}

func TestReconcileOrder_KeepsLinesAddedAfterOrder(t *testing.T) {
	f := newOrderFixture(t, domain.PlacementTwoPhase)
	f.users.seed("u1", domain.CartLine{ProductID: 1, Quantity: 2, AddedAt: time.Now().Add(-time.Minute)})
	f.users.clearErr = domain.ErrStorage
	ctx := context.Background()

	order, err := f.svc.PlaceOrder(ctx, "u1", validOrder())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = f.users.AddCartItem(ctx, "u1", 9, 1)
	require.NoError(t, err)
	f.users.clearErr = nil
	f.cache.carts["u1"] = &domain.Cart{UserID: "u1"}

	require.NoError(t, f.svc.ReconcileOrder(ctx, order.ID))

	cart := f.users.get("u1").Cart
	require.Len(t, cart, 1)
	assert.Equal(t, int64(9), cart[0].ProductID)
	assert.True(t, f.orders.stored(order.ID).CartCleared)
	assert.False(t, f.cache.has("u1"))
	assert.Equal(t, 1, f.metrics.reconciled)

	// second run is a no-op
	require.NoError(t, f.svc.ReconcileOrder(ctx, order.ID))
	assert.Len(t, f.users.get("u1").Cart, 1)
	assert.Equal(t, 1, f.metrics.reconciled)
}

func TestReconcileOrder_Errors(t *testing.T) {
	f := newOrderFixture(t, domain.PlacementTwoPhase)
	f.users.seed("u1")
	f.users.clearErr = domain.ErrStorage
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ReconcileOrder(ctx, "missing"), domain.ErrOrderNotFound)

	order, err := f.svc.PlaceOrder(ctx, "u1", validOrder())
	require.NoError(t, err)

	err = f.svc.ReconcileOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.False(t, f.orders.stored(order.ID).CartCleared)
}

func TestGetOrders(t *testing.T) {
	f := newOrderFixture(t, domain.PlacementTransaction)
	f.users.seed("u1")
	f.users.seed("u2")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.PlaceOrder(ctx, "u1", validOrder())
		require.NoError(t, err)
	}
	_, err := f.svc.PlaceOrder(ctx, "u2", validOrder())
	require.NoError(t, err)

	orders, err := f.svc.GetOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = f.svc.GetOrders(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, orders)
}
