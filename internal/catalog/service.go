package catalog

import (
	"context"
	"sort"
	"time"

	"cantina/internal/logger"
	"cantina/internal/models"
)

const (
	tablesKey   = "tables"
	productsKey = "products"
)

// Service is the catalog reader: table and product reference data served
// through a TTL cache to bound staleness versus load.
type Service struct {
	store  Store
	cache  *Cache
	logger *logger.Logger
}

// NewService creates a catalog service with the given cache TTL
func NewService(store Store, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		cache:  NewCache(ttl),
		logger: log,
	}
}

// Tables returns the table list, cached
func (s *Service) Tables(ctx context.Context) ([]models.Table, error) {
	if cached, ok := s.cache.Get(tablesKey); ok {
		return cached.([]models.Table), nil
	}

	tables, err := s.store.Tables(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Put(tablesKey, tables)
	return tables, nil
}

// Table returns one table by id, bypassing the cache
func (s *Service) Table(ctx context.Context, id int) (models.Table, error) {
	return s.store.Table(ctx, id)
}

// Products returns the product list, cached
func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	if cached, ok := s.cache.Get(productsKey); ok {
		return cached.([]models.Product), nil
	}

	products, err := s.store.Products(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Put(productsKey, products)
	return products, nil
}

// ProductsByCategory returns the cached product list filtered by category
func (s *Service) ProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []models.Product
	for _, p := range products {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Categories returns the distinct product categories, sorted
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var categories []string
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

// Product returns one product by id. Reads go straight to the store so a
// price captured into a line item is the current one, not a cached one.
func (s *Service) Product(ctx context.Context, id int) (models.Product, error) {
	return s.store.Product(ctx, id)
}

// Invalidate drops the cached reference data; the next read refetches
func (s *Service) Invalidate() {
	s.cache.Invalidate()
	if s.logger != nil {
		s.logger.Debug("catalog_invalidated", "", "Catalog cache invalidated")
	}
}
