package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	// Use in-memory database for tests
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations())
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func price(v float64) *float64 { return &v }

func TestListProducts_AllSeeded(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.ListProducts(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, 8) // seed migration inserts 8 products
	assert.Equal(t, int64(1), products[0].ID)
	assert.False(t, products[0].CreatedAt.IsZero())
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.RunMigrations())

	products, err := repo.ListProducts(context.Background(), domain.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, products, 8)
}

func TestListProducts_Filters(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter domain.ProductFilter
		want   []int64
	}{
		{"category", domain.ProductFilter{Categories: []string{"women"}}, []int64{3, 4}},
		{"several categories", domain.ProductFilter{Categories: []string{"Kids", "Footwear"}}, []int64{5, 6}},
		{"price range", domain.ProductFilter{MinPrice: price(20), MaxPrice: price(30)}, []int64{1, 5, 8}},
		{"search name", domain.ProductFilter{Search: "scarf"}, []int64{8}},
		{"search description", domain.ProductFilter{Search: "DENIM"}, []int64{2}},
		{"combined", domain.ProductFilter{Categories: []string{"Accessories"}, MaxPrice: price(20)}, []int64{7}},
		{"no match", domain.ProductFilter{Search: "spaceship"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.ListProducts(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]int64, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGetProduct(t *testing.T) {
	repo := setupTestDB(t)

	product, err := repo.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Linen Shirt", product.Name)
	assert.Equal(t, 20.0, product.Price)

	_, err = repo.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetProductsByIDs(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.GetProductsByIDs(context.Background(), []int64{2, 4, 999})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "Denim Jacket", products[2].Name)
	assert.Contains(t, products, int64(4))
	assert.NotContains(t, products, int64(999))

	empty, err := repo.GetProductsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListProducts_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := repo.ListProducts(ctx, domain.ProductFilter{})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
