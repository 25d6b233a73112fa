package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, partitionKey string, payload []byte) error
}
