// Package amqp publishes order events to RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/domain"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// OrderCreatedType is the message type of a confirmed checkout.
const OrderCreatedType = "order.created"

// OrderCreatedMessage is the body of an order.created event.
type OrderCreatedMessage struct {
	Type        string             `json:"type"`
	OrderID     string             `json:"order_id"`
	TerminalID  string             `json:"terminal_id"`
	TotalAmount float64            `json:"total_amount"`
	Items       []domain.OrderLine `json:"items"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// NewOrderCreatedMessage builds the event for a receipt.
func NewOrderCreatedMessage(terminalID string, receipt *domain.Receipt, at time.Time) *OrderCreatedMessage {
	return &OrderCreatedMessage{
		Type:        OrderCreatedType,
		OrderID:     receipt.OrderID,
		TerminalID:  terminalID,
		TotalAmount: receipt.TotalAmount,
		Items:       receipt.Items,
		OccurredAt:  at.UTC(),
	}
}

// Publisher sends order events to a durable direct exchange.
type Publisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *zap.Logger
}

// NewPublisher dials the broker and declares the exchange, queue and binding.
func NewPublisher(url, exchangeName, queueName string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &Publisher{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger,
	}

	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return p, nil
}

func (p *Publisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = p.channel.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = p.channel.QueueBind(
		p.queueName,    // queue name
		p.queueName,    // routing key
		p.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishOrderCreated publishes a persistent order.created message.
func (p *Publisher) PublishOrderCreated(ctx context.Context, terminalID string, receipt *domain.Receipt) error {
	now := time.Now()
	body, err := json.Marshal(NewOrderCreatedMessage(terminalID, receipt, now))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         OrderCreatedType,
			MessageId:    receipt.OrderID,
			Timestamp:    now,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.Info("published order event",
		zap.String("order_id", receipt.OrderID),
		zap.String("terminal_id", terminalID),
		zap.String("exchange", p.exchangeName),
	)
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

// PublishOrderCreated does nothing.
func (Noop) PublishOrderCreated(context.Context, string, *domain.Receipt) error { return nil }
