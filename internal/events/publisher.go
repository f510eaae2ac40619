package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"cantina/internal/logger"
	"cantina/internal/models"
)

// Publisher emits order lifecycle events to the table_orders exchange
type Publisher struct {
	conn   *Connection
	logger *logger.Logger
}

// NewPublisher creates a message publisher
func NewPublisher(conn *Connection, log *logger.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: log,
	}
}

// PublishOrderEvent publishes one lifecycle event with the given routing key
func (p *Publisher) PublishOrderEvent(ctx context.Context, routingKey string, event models.OrderEvent) error {
	if p.conn.IsClosed() {
		if err := p.conn.Reconnect(); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: 2, // persistent
		Timestamp:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(
		ctx,
		ExchangeName, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		publishing,
	)
	if err != nil {
		p.logger.Error("event_publish_failed", "",
			fmt.Sprintf("Failed to publish %s for order %d", routingKey, event.OrderID), err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event_published", "",
		fmt.Sprintf("Published %s for order %d", routingKey, event.OrderID))

	return nil
}

// Close closes the publisher's connection
func (p *Publisher) Close() error {
	return p.conn.Close()
}
