package mqtt

import (
	"context"
)

// Client is the interface for the outbound MQTT connection. It hides
// the underlying paho implementation details.
type Client interface {
	// Start initiates the connection to the broker. It is non-blocking
	// and returns immediately. Use AwaitConnection to wait.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends a message to the specified topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// AwaitConnection blocks until the client is connected to the broker.
	AwaitConnection(ctx context.Context) error
}
