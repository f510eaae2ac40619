package models

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when an order id does not exist
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound is returned when a product id does not exist
	ErrProductNotFound = errors.New("product not found")

	// ErrTableNotFound is returned when a table id does not exist
	ErrTableNotFound = errors.New("table not found")
)

// ValidationError reports a missing or malformed input; the triggering
// action performs no write.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StorageError reports a connection or query failure against the store.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }

// StateError reports an operation applied to an order in the wrong
// lifecycle state, e.g. finalizing an already-paid order.
type StateError struct {
	OrderID int
	Status  OrderStatus
	Message string
}

func (e StateError) Error() string {
	return fmt.Sprintf("order %d is %s: %s", e.OrderID, e.Status, e.Message)
}

// EncodingError reports receipt text that the configured output encoding
// cannot represent.
type EncodingError struct {
	Encoding string
	Err      error
}

func (e EncodingError) Error() string {
	return fmt.Sprintf("receipt encoding %s: %v", e.Encoding, e.Err)
}

func (e EncodingError) Unwrap() error { return e.Err }
