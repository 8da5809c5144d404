package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/taskflow/taskflow-backend/pkg/logger"
)

const retryCountHeader = "x-retry-count"

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer handles consuming events and jobs from RabbitMQ.
//
// Delivery is at least once. A handler error sends the message to the retry
// holding queue, where it waits the configured delay before redelivery. After
// MaxJobAttempts failed attempts the message is rejected to the dead letter
// queue and never redelivered.
type Consumer struct {
	rmq        *RabbitMQ
	queueName  string
	handlers   map[string]MessageHandler
	maxRetries int
	logger     *logger.Logger
}

// NewConsumer creates a new consumer for the given queue, declaring the queue
// and its retry holding queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	if _, err := rmq.DeclareRetryQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare retry queue for %s: %w", queueName, err)
	}

	maxRetries := rmq.config.MaxJobAttempts
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Consumer{
		rmq:        rmq,
		queueName:  queueName,
		handlers:   make(map[string]MessageHandler),
		maxRetries: maxRetries,
		logger:     log,
	}, nil
}

// Subscribe subscribes to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	// Declare the exchange first
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Bind the queue to the exchange
	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event or job type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Msg("message channel closed")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		// Reject without requeue for malformed messages
		msg.Reject(false)
		return
	}

	// Add correlation ID to context
	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		msg.Ack(false)
		return
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")

		retryCount := RetryCount(msg.Headers)
		if retryCount >= c.maxRetries {
			c.logger.Warn().
				Str("event_id", event.ID).
				Int("retry_count", retryCount).
				Msg("max retries exceeded, sending to DLQ")
			msg.Reject(false)
			return
		}

		if err := c.scheduleRetry(ctx, msg, retryCount+1); err != nil {
			c.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Msg("failed to schedule retry, requeueing")
			msg.Nack(false, true)
			return
		}

		msg.Ack(false)
		return
	}

	msg.Ack(false)
}

// scheduleRetry republishes the message to the retry holding queue with an
// incremented attempt counter. The holding queue's TTL delivers it back to
// the work queue after the retry delay.
func (c *Consumer) scheduleRetry(ctx context.Context, msg amqp.Delivery, retryCount int) error {
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[retryCountHeader] = int32(retryCount)

	return c.rmq.Channel().PublishWithContext(ctx,
		"",                    // default exchange
		c.queueName+".retry",  // retry holding queue
		false,
		false,
		amqp.Publishing{
			ContentType:   msg.ContentType,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: msg.CorrelationId,
			Headers:       headers,
			Body:          msg.Body,
		},
	)
}

// RetryCount extracts the retry attempt counter from message headers.
// Messages on their first delivery have no counter.
func RetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}

	switch v := headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}

	return 0
}
