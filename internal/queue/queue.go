package queue

import "context"

const (
	// JobQueue is the single work queue carrying notification job IDs.
	JobQueue = "notifications"

	// DLQ receives messages rejected as unparseable or invalid.
	DLQ = "dlq.notifications"
)

// Publisher publishes job messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg JobMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg JobMessage) error

// Consumer consumes job messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
