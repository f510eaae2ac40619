package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"cantina/internal/database"
	"cantina/internal/models"
)

// Store is the read-only storage boundary for reference data
type Store interface {
	Tables(ctx context.Context) ([]models.Table, error)
	Table(ctx context.Context, id int) (models.Table, error)
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id int) (models.Product, error)
}

// PostgresStore reads the catalog from PostgreSQL
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a catalog store backed by the given pool
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Tables(ctx context.Context) ([]models.Table, error) {
	rows, err := s.db.Query(ctx, database.GetTablesSQL)
	if err != nil {
		return nil, models.StorageError{Op: "list tables", Err: err}
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, models.StorageError{Op: "scan table", Err: err}
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, models.StorageError{Op: "list tables", Err: err}
	}
	return tables, nil
}

func (s *PostgresStore) Table(ctx context.Context, id int) (models.Table, error) {
	var t models.Table
	err := s.db.QueryRow(ctx, database.GetTableByIDSQL, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Table{}, models.ErrTableNotFound
	}
	if err != nil {
		return models.Table{}, models.StorageError{Op: "get table", Err: err}
	}
	return t, nil
}

func (s *PostgresStore) Products(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.Query(ctx, database.GetProductsSQL)
	if err != nil {
		return nil, models.StorageError{Op: "list products", Err: err}
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Category); err != nil {
			return nil, models.StorageError{Op: "scan product", Err: err}
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, models.StorageError{Op: "list products", Err: err}
	}
	return products, nil
}

func (s *PostgresStore) Product(ctx context.Context, id int) (models.Product, error) {
	var p models.Product
	err := s.db.QueryRow(ctx, database.GetProductByIDSQL, id).
		Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, models.ErrProductNotFound
	}
	if err != nil {
		return models.Product{}, models.StorageError{Op: "get product", Err: err}
	}
	return p, nil
}
