package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConsumer reads job IDs off the work queue. The message is a pointer,
// not the job: all state lives in the database row, a claim dedupes duplicate
// deliveries, and the dispatch scanner republishes any waiting job whose
// message went missing. Dead-lettering a delivery therefore never loses a job,
// so a message that fails its handler twice goes to the DLQ instead of cycling
// through the queue.
type RabbitMQConsumer struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:   client,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Consume delivers queue messages to handler until ctx is cancelled,
// re-establishing the channel with backoff after broker failures.
func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	backoff := reconnectBackoff
	for {
		err := c.drainChannel(ctx, queue, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = reconnectBackoff
			continue
		}

		c.logger.Warn("consume channel lost, reconnecting",
			zap.String("queue", queue),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *RabbitMQConsumer) drainChannel(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.settle(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

// settle runs the handler for one delivery and resolves its fate: ack on
// success, requeue once on a transient handler failure, dead-letter the rest.
func (c *RabbitMQConsumer) settle(ctx context.Context, d amqp.Delivery, handler MessageHandler) error {
	msg, err := decodeJobMessage(d.Body)
	if err != nil {
		// Undecodable payloads can never succeed; the reject routes them to
		// the DLQ through the queue's dead-letter exchange.
		c.logger.Warn("dead-lettering undecodable message",
			zap.String("messageId", d.MessageId),
			zap.Error(err),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject undecodable message: %w", rejectErr)
		}
		return nil
	}

	if err := handler(ctx, msg); err != nil {
		// Handler errors are infrastructure failures before any state
		// transition; the job row is untouched. One immediate requeue covers
		// blips, after that the scanner's republication is the retry path.
		requeue := !d.Redelivered
		c.logger.Warn("job message handling failed",
			zap.String("jobId", msg.JobID),
			zap.Bool("requeue", requeue),
			zap.Error(err),
		)
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			return fmt.Errorf("handler failed and nack failed: %w", nackErr)
		}
		return nil
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack delivery: %w", err)
	}
	return nil
}

func decodeJobMessage(body []byte) (JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return JobMessage{}, fmt.Errorf("invalid message body: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return JobMessage{}, err
	}
	return msg, nil
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
