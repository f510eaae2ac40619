package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cantina/internal/models"
)

type fakeStore struct {
	tables       []models.Table
	products     []models.Product
	tableReads   int
	productReads int
	err          error
}

func (f *fakeStore) Tables(ctx context.Context) ([]models.Table, error) {
	f.tableReads++
	if f.err != nil {
		return nil, f.err
	}
	return f.tables, nil
}

func (f *fakeStore) Table(ctx context.Context, id int) (models.Table, error) {
	for _, t := range f.tables {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Table{}, models.ErrTableNotFound
}

func (f *fakeStore) Products(ctx context.Context) ([]models.Product, error) {
	f.productReads++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeStore) Product(ctx context.Context, id int) (models.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, models.ErrProductNotFound
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog() *fakeStore {
	return &fakeStore{
		tables: []models.Table{
			{ID: 1, Name: "Mesa 1"},
			{ID: 3, Name: "Mesa 3"},
		},
		products: []models.Product{
			{ID: 1, Name: "Cerveza", UnitPrice: price("45.00"), Category: "Bebidas"},
			{ID: 2, Name: "Nachos", UnitPrice: price("120.00"), Category: "Entradas"},
			{ID: 3, Name: "Guacamole", UnitPrice: price("85.00"), Category: "Entradas"},
		},
	}
}

func TestService_TablesCached(t *testing.T) {
	store := testCatalog()
	svc := NewService(store, time.Minute, nil)

	for i := 0; i < 3; i++ {
		tables, err := svc.Tables(context.Background())
		require.NoError(t, err)
		assert.Len(t, tables, 2)
	}

	assert.Equal(t, 1, store.tableReads, "repeated reads within TTL hit the cache")
}

func TestService_InvalidateRefetches(t *testing.T) {
	store := testCatalog()
	svc := NewService(store, time.Minute, nil)

	_, err := svc.Products(context.Background())
	require.NoError(t, err)

	svc.Invalidate()

	_, err = svc.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.productReads)
}

func TestService_ProductsByCategory(t *testing.T) {
	svc := NewService(testCatalog(), time.Minute, nil)

	entradas, err := svc.ProductsByCategory(context.Background(), "Entradas")
	require.NoError(t, err)
	require.Len(t, entradas, 2)
	assert.Equal(t, "Nachos", entradas[0].Name)

	none, err := svc.ProductsByCategory(context.Background(), "Sopas")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_Categories(t *testing.T) {
	svc := NewService(testCatalog(), time.Minute, nil)

	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bebidas", "Entradas"}, categories)
}

func TestService_ProductBypassesCache(t *testing.T) {
	store := testCatalog()
	svc := NewService(store, time.Minute, nil)

	p, err := svc.Product(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Nachos", p.Name)
	assert.True(t, p.UnitPrice.Equal(price("120.00")))

	_, err = svc.Product(context.Background(), 99)
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestService_StoreErrorPropagates(t *testing.T) {
	store := testCatalog()
	store.err = models.StorageError{Op: "list tables", Err: context.DeadlineExceeded}
	svc := NewService(store, time.Minute, nil)

	_, err := svc.Tables(context.Background())
	require.Error(t, err)
}
