package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cantina/internal/logger"
	"cantina/internal/models"
)

// EventPublisher emits order lifecycle events for downstream consumers.
// Publishing is best-effort: a broker failure never fails the user action.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, routingKey string, event models.OrderEvent) error
}

// NopPublisher drops events when no broker is configured
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(ctx context.Context, routingKey string, event models.OrderEvent) error {
	return nil
}

// Service implements the order lifecycle: resolve, append, read, finalize
type Service struct {
	store  Store
	events EventPublisher
	logger *logger.Logger
}

// NewService creates an order service
func NewService(store Store, events EventPublisher, log *logger.Logger) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	return &Service{
		store:  store,
		events: events,
		logger: log,
	}
}

// Resolve returns the open order for a table, creating one if none
// exists. While an order stays open, repeated resolves return the same
// order id; a differing party size is updated in place.
func (s *Service) Resolve(ctx context.Context, tableID, partySize int) (models.Order, error) {
	if err := ValidateResolve(tableID, partySize); err != nil {
		return models.Order{}, err
	}

	o, created, err := s.store.Resolve(ctx, tableID, partySize)
	if err != nil {
		return models.Order{}, err
	}

	if created {
		s.publish(ctx, "order.opened", models.OrderEvent{
			OrderID:    o.ID,
			TableID:    o.TableID,
			PartySize:  o.PartySize,
			Status:     o.Status,
			OccurredAt: o.CreatedAt,
		})
	}
	return o, nil
}

// Order returns one order by id
func (s *Service) Order(ctx context.Context, orderID int) (models.Order, error) {
	return s.store.Order(ctx, orderID)
}

// Append adds a line item with the unit price captured at append time.
// Validation failures perform no write; a failed append never partially
// applies.
func (s *Service) Append(ctx context.Context, orderID, productID, quantity int, unitPrice decimal.Decimal) error {
	if err := ValidateAppend(orderID, productID, quantity, unitPrice); err != nil {
		return err
	}
	return s.store.InsertItem(ctx, orderID, productID, quantity, unitPrice)
}

// Items returns the order's line items ordered by product name, with the
// running total. On a storage failure it fails open: an empty list plus
// the error, for the caller to surface.
func (s *Service) Items(ctx context.Context, orderID int) ([]models.LineItem, decimal.Decimal, error) {
	items, err := s.store.Items(ctx, orderID)
	if err != nil {
		return []models.LineItem{}, decimal.Zero, err
	}

	total, err := s.store.Total(ctx, orderID)
	if err != nil {
		return []models.LineItem{}, decimal.Zero, err
	}
	return items, total, nil
}

// Finalize closes an order: status becomes paid and the closure time is
// stamped. The transition is one-way; finalizing an already-paid order
// fails with a StateError.
func (s *Service) Finalize(ctx context.Context, orderID int) (models.Order, error) {
	closedAt, err := s.store.Finalize(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}

	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}

	total, totalErr := s.store.Total(ctx, orderID)
	if totalErr != nil {
		total = decimal.Zero
	}

	s.publish(ctx, "order.paid", models.OrderEvent{
		OrderID:    o.ID,
		TableID:    o.TableID,
		PartySize:  o.PartySize,
		Status:     o.Status,
		Total:      total,
		OccurredAt: closedAt,
	})
	return o, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, event models.OrderEvent) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.events.PublishOrderEvent(pubCtx, routingKey, event); err != nil && s.logger != nil {
		s.logger.Error("event_publish_failed", "",
			fmt.Sprintf("Failed to publish %s for order %d", routingKey, event.OrderID), err)
	}
}
