package service

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ProductService struct {
	catalog ProductCatalog
}

func NewProductService(catalog ProductCatalog) *ProductService {
	return &ProductService{catalog: catalog}
}

func (s *ProductService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, domain.NewError(domain.ErrInvalidInput, "minPrice must not exceed maxPrice")
	}
	return s.catalog.ListProducts(ctx, filter)
}

func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.ErrProductNotFound
	}
	return s.catalog.GetProduct(ctx, id)
}
