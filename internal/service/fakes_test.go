package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type fakeUserRepo struct {
	m        sync.Mutex
	users    map[string]*domain.User
	nextID   int
	err      error // returned by every call when set
	clearErr error // returned by ClearCartBefore only
	gets     int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Cart = append([]domain.CartLine{}, u.Cart...)
	c.Favourites = append([]int64{}, u.Favourites...)
	return &c
}

func (f *fakeUserRepo) seed(id string, lines ...domain.CartLine) *domain.User {
	f.m.Lock()
	defer f.m.Unlock()
	u := &domain.User{ID: id, Email: id + "@example.com", Cart: lines, Favourites: []int64{}}
	f.users[id] = u
	return cloneUser(u)
}

func (f *fakeUserRepo) get(id string) *domain.User {
	f.m.Lock()
	defer f.m.Unlock()
	return cloneUser(f.users[id])
}

func (f *fakeUserRepo) getCount() int {
	f.m.Lock()
	defer f.m.Unlock()
	return f.gets
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return domain.ErrEmailInUse
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.Cart = []domain.CartLine{}
	user.Favourites = []int64{}
	f.users[user.ID] = cloneUser(user)
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	f.m.Lock()
	defer f.m.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) mutate(userID string, fn func(u *domain.User) error) (*domain.User, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (f *fakeUserRepo) AddCartItem(_ context.Context, userID string, productID int64, quantity int) (*domain.User, error) {
	return f.mutate(userID, func(u *domain.User) error {
		if line := u.Line(productID); line != nil {
			line.Quantity += quantity
			line.AddedAt = time.Now()
			return nil
		}
		u.Cart = append(u.Cart, domain.CartLine{ProductID: productID, Quantity: quantity, AddedAt: time.Now()})
		return nil
	})
}

func (f *fakeUserRepo) RemoveCartItem(_ context.Context, userID string, productID int64, quantity int) (*domain.User, error) {
	return f.mutate(userID, func(u *domain.User) error {
		for i := range u.Cart {
			if u.Cart[i].ProductID != productID {
				continue
			}
			if quantity > 0 && u.Cart[i].Quantity > quantity {
				u.Cart[i].Quantity -= quantity
				return nil
			}
			u.Cart = append(u.Cart[:i], u.Cart[i+1:]...)
			return nil
		}
		return domain.ErrCartLineNotFound
	})
}

func (f *fakeUserRepo) ClearCartBefore(_ context.Context, userID string, before time.Time) error {
	f.m.Lock()
	clearErr := f.clearErr
	f.m.Unlock()
	if clearErr != nil {
		return clearErr
	}
	_, err := f.mutate(userID, func(u *domain.User) error {
		kept := u.Cart[:0]
		for _, l := range u.Cart {
			if l.AddedAt.After(before) {
				kept = append(kept, l)
			}
		}
		u.Cart = kept
		return nil
	})
	return err
}

func (f *fakeUserRepo) AddFavourite(_ context.Context, userID string, productID int64) (*domain.User, error) {
	return f.mutate(userID, func(u *domain.User) error {
		if !u.HasFavourite(productID) {
			u.Favourites = append(u.Favourites, productID)
		}
		return nil
	})
}

func (f *fakeUserRepo) RemoveFavourite(_ context.Context, userID string, productID int64) (*domain.User, error) {
	return f.mutate(userID, func(u *domain.User) error {
		kept := u.Favourites[:0]
		for _, id := range u.Favourites {
			if id != productID {
				kept = append(kept, id)
			}
		}
		u.Favourites = kept
		return nil
	})
}

// slowReadRepo parks the first GetUserByID after it has read the user, until
// release is closed. It then reports the caller's context error, if any.
type slowReadRepo struct {
	*fakeUserRepo
	readDone chan struct{}
	release  chan struct{}
	once     sync.Once
}

func newSlowReadRepo() *slowReadRepo {
	return &slowReadRepo{
		fakeUserRepo: newFakeUserRepo(),
		readDone:     make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (r *slowReadRepo) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	u, err := r.fakeUserRepo.GetUserByID(ctx, userID)
	r.once.Do(func() {
		close(r.readDone)
		<-r.release
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return u, err
}

type fakeOrderRepo struct {
	m      sync.Mutex
	users  *fakeUserRepo
	orders []*domain.Order
	err    error
}

func (f *fakeOrderRepo) stamp(order *domain.Order) {
	f.orders = append(f.orders, order)
	order.ID = fmt.Sprintf("order-%d", len(f.orders))
	order.CreatedAt = time.Now()
}

func (f *fakeOrderRepo) PlaceOrderAtomic(_ context.Context, order *domain.Order) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, err := f.users.mutate(order.UserID, func(u *domain.User) error {
		u.Cart = []domain.CartLine{}
		return nil
	}); err != nil {
		return err
	}
	order.CartCleared = true
	f.stamp(order)
	return nil
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stamp(order)
	return nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	f.m.Lock()
	defer f.m.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID {
			c := *o
			return &c, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrderRepo) ListOrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	result := make([]*domain.Order, 0)
	for _, o := range f.orders {
		if o.UserID == userID {
			c := *o
			result = append(result, &c)
		}
	}
	return result, nil
}

func (f *fakeOrderRepo) MarkCartCleared(_ context.Context, orderID string) error {
	f.m.Lock()
	defer f.m.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID {
			o.CartCleared = true
			return nil
		}
	}
	return domain.ErrOrderNotFound
}

func (f *fakeOrderRepo) MarkPublished(_ context.Context, orderID string, at time.Time) error {
	f.m.Lock()
	defer f.m.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID {
			o.PublishedAt = &at
			return nil
		}
	}
	return domain.ErrOrderNotFound
}

func (f *fakeOrderRepo) GetUnpublishedOrders(context.Context, int) ([]*domain.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) GetPendingCartClears(context.Context, time.Time, int) ([]*domain.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) stored(orderID string) *domain.Order {
	o, _ := f.GetOrder(context.Background(), orderID)
	return o
}

type fakeCatalog struct {
	products map[int64]*domain.Product
	err      error
}

func newFakeCatalog(ids ...int64) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]*domain.Product)}
	for _, id := range ids {
		c.products[id] = &domain.Product{ID: id, Name: fmt.Sprintf("product %d", id), Price: float64(id) * 10}
	}
	return c
}

func (c *fakeCatalog) ListProducts(context.Context, domain.ProductFilter) ([]*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	result := make([]*domain.Product, 0, len(c.products))
	for _, p := range c.products {
		result = append(result, p)
	}
	return result, nil
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (c *fakeCatalog) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	result := make(map[int64]*domain.Product)
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

type mockCache struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	gens    map[string]int64
	err     error
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart), gens: make(map[string]int64)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (m *mockCache) Generation(_ context.Context, userID string) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.gens[userID], nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart, generation int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.gens[userID] != generation {
		return cache.ErrStaleCart
	}
	m.carts[userID] = cart
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	m.gens[userID]++
	delete(m.carts, userID)
	return m.err
}

func (m *mockCache) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[userID]
	return ok
}

type recordingMetrics struct {
	m             sync.Mutex
	placed        map[string]int
	clearFailures int
	reconciled    int
	hits, misses  int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{placed: make(map[string]int)}
}

func (r *recordingMetrics) RecordOrderPlaced(mode string) {
	r.m.Lock()
	defer r.m.Unlock()
	r.placed[mode]++
}

func (r *recordingMetrics) RecordCartClearFailure() {
	r.m.Lock()
	defer r.m.Unlock()
	r.clearFailures++
}

func (r *recordingMetrics) RecordOutboxPublished(int) {}
func (r *recordingMetrics) RecordOutboxFailure()      {}

func (r *recordingMetrics) RecordCartReconciled() {
	r.m.Lock()
	defer r.m.Unlock()
	r.reconciled++
}

func (r *recordingMetrics) RecordCacheResult(hit bool) {
	r.m.Lock()
	defer r.m.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

type fakeTokens struct{ err error }

func (f fakeTokens) Issue(userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}
