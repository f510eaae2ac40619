package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	StatusOpen OrderStatus = "open"
	StatusPaid OrderStatus = "paid"
)

// Table represents a physical seating unit. Reference data, never written
// by this service.
type Table struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Product represents a catalog entry. Reference data, never written
// by this service.
type Product struct {
	ID        int             `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Category  string          `json:"category" db:"category"`
}

// Order represents one dining party's visit at a table. At most one open
// order exists per table; finalization is a one-way transition to paid.
type Order struct {
	ID        int         `json:"id" db:"id"`
	TableID   int         `json:"table_id" db:"table_id"`
	PartySize int         `json:"party_size" db:"party_size"`
	Status    OrderStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	ClosedAt  *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
}

// LineItem is one appended entry of (product, quantity, captured price)
// within an order. The unit price is the catalog price at append time and
// is never re-read, so later catalog changes do not rewrite history.
type LineItem struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Receipt is the derived, non-persisted view rendered for printing.
type Receipt struct {
	Venue       string
	TableName   string
	PartySize   int
	OrderID     int
	GeneratedAt time.Time
	Lines       []LineItem
	Total       decimal.Decimal
}

// ResolveOrderRequest is the request body for resolving a table's order
type ResolveOrderRequest struct {
	TableID   int `json:"table_id"`
	PartySize int `json:"party_size"`
}

// AppendItemRequest is the request body for appending a line item
type AppendItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// OrderDetails is the response for reading an order with its running total
type OrderDetails struct {
	Order Order           `json:"order"`
	Items []LineItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// OrderEvent is the message published on order lifecycle transitions
type OrderEvent struct {
	OrderID    int             `json:"order_id"`
	TableID    int             `json:"table_id"`
	PartySize  int             `json:"party_size"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}
