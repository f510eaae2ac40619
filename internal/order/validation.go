package order

import (
	"github.com/shopspring/decimal"

	"cantina/internal/models"
)

const maxPartySize = 20

// ValidateResolve checks the inputs for resolving a table's order
func ValidateResolve(tableID, partySize int) error {
	if tableID <= 0 {
		return models.ValidationError{
			Field:   "table_id",
			Message: "table id is required",
		}
	}
	if partySize < 1 {
		return models.ValidationError{
			Field:   "party_size",
			Message: "party size must be at least 1",
		}
	}
	if partySize > maxPartySize {
		return models.ValidationError{
			Field:   "party_size",
			Message: "party size must be at most 20",
		}
	}
	return nil
}

// ValidateAppend checks the inputs for appending a line item. A failed
// check means no write happens.
func ValidateAppend(orderID, productID, quantity int, unitPrice decimal.Decimal) error {
	if orderID <= 0 {
		return models.ValidationError{
			Field:   "order_id",
			Message: "order id is required",
		}
	}
	if productID <= 0 {
		return models.ValidationError{
			Field:   "product_id",
			Message: "product id is required",
		}
	}
	if quantity < 1 {
		return models.ValidationError{
			Field:   "quantity",
			Message: "quantity must be at least 1",
		}
	}
	if unitPrice.IsNegative() {
		return models.ValidationError{
			Field:   "unit_price",
			Message: "unit price must not be negative",
		}
	}
	return nil
}
