package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"cantina/internal/database"
	"cantina/internal/models"
)

// Store is the storage boundary for the order lifecycle
type Store interface {
	// Resolve returns the open order for a table, creating one if none
	// exists. The bool reports whether a new order was created.
	Resolve(ctx context.Context, tableID, partySize int) (models.Order, bool, error)
	Order(ctx context.Context, orderID int) (models.Order, error)
	InsertItem(ctx context.Context, orderID, productID, quantity int, unitPrice decimal.Decimal) error
	Items(ctx context.Context, orderID int) ([]models.LineItem, error)
	Total(ctx context.Context, orderID int) (decimal.Decimal, error)
	Finalize(ctx context.Context, orderID int) (time.Time, error)
}

// PostgresStore persists orders and line items in PostgreSQL
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates an order store backed by the given pool
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Resolve upserts the single open order for a table. The partial unique
// index on (table_id) WHERE status = 'open' serializes creation, so two
// concurrent resolves for the same table converge on one order.
func (s *PostgresStore) Resolve(ctx context.Context, tableID, partySize int) (models.Order, bool, error) {
	var (
		o       models.Order
		created bool
	)
	err := s.db.QueryRow(ctx, database.ResolveOrderSQL, tableID, partySize).
		Scan(&o.ID, &o.TableID, &o.PartySize, &o.Status, &o.CreatedAt, &o.ClosedAt, &created)
	if err != nil {
		return models.Order{}, false, models.StorageError{Op: "resolve order", Err: err}
	}
	return o, created, nil
}

func (s *PostgresStore) Order(ctx context.Context, orderID int) (models.Order, error) {
	var o models.Order
	err := s.db.QueryRow(ctx, database.GetOrderSQL, orderID).
		Scan(&o.ID, &o.TableID, &o.PartySize, &o.Status, &o.CreatedAt, &o.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, models.ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, models.StorageError{Op: "get order", Err: err}
	}
	return o, nil
}

// InsertItem appends one line item. The write is conditioned on the order
// still being open, so a failed precondition performs no write.
func (s *PostgresStore) InsertItem(ctx context.Context, orderID, productID, quantity int, unitPrice decimal.Decimal) error {
	tag, err := s.db.Pool.Exec(ctx, database.InsertLineItemSQL, orderID, productID, quantity, unitPrice)
	if err != nil {
		return models.StorageError{Op: "insert line item", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return s.classifyAppendFailure(ctx, orderID)
	}
	return nil
}

// classifyAppendFailure distinguishes a missing order from a closed one
func (s *PostgresStore) classifyAppendFailure(ctx context.Context, orderID int) error {
	o, err := s.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != models.StatusOpen {
		return models.StateError{OrderID: orderID, Status: o.Status, Message: "cannot append to a closed order"}
	}
	return models.StorageError{Op: "insert line item", Err: errors.New("no row written")}
}

func (s *PostgresStore) Items(ctx context.Context, orderID int) ([]models.LineItem, error) {
	rows, err := s.db.Query(ctx, database.GetLineItemsSQL, orderID)
	if err != nil {
		return nil, models.StorageError{Op: "list line items", Err: err}
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var li models.LineItem
		if err := rows.Scan(&li.ProductName, &li.Quantity, &li.UnitPrice, &li.Subtotal); err != nil {
			return nil, models.StorageError{Op: "scan line item", Err: err}
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, models.StorageError{Op: "list line items", Err: err}
	}
	return items, nil
}

func (s *PostgresStore) Total(ctx context.Context, orderID int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRow(ctx, database.GetOrderTotalSQL, orderID).Scan(&total)
	if err != nil {
		return decimal.Zero, models.StorageError{Op: "order total", Err: err}
	}
	return total, nil
}

// Finalize transitions an open order to paid, stamping the closure time.
// Re-finalizing a paid order is rejected with a StateError rather than
// silently re-stamping the closure time.
func (s *PostgresStore) Finalize(ctx context.Context, orderID int) (time.Time, error) {
	var closedAt time.Time
	err := s.db.QueryRow(ctx, database.FinalizeOrderSQL, orderID).Scan(&closedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		o, getErr := s.Order(ctx, orderID)
		if getErr != nil {
			return time.Time{}, getErr
		}
		return time.Time{}, models.StateError{OrderID: orderID, Status: o.Status, Message: "order is already finalized"}
	}
	if err != nil {
		return time.Time{}, models.StorageError{Op: "finalize order", Err: err}
	}
	return closedAt, nil
}
