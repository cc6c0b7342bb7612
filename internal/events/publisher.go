// internal/events/publisher.go
package events

import (
	"context"
	"time"
)

// Topics for customer lifecycle events.
const (
	TopicCustomerCreated        = "customer.created"
	TopicCustomerUpdated        = "customer.updated"
	TopicCustomerDeleted        = "customer.deleted"
	TopicPasswordResetRequested = "customer.password_reset_requested"
)

// Publisher is a fire-and-forget notification sink. No acknowledgement
// contract beyond the returned error.
type Publisher interface {
	// Publish sends a named event. The key selects the broker partition so
	// events for the same customer keep their order.
	Publish(ctx context.Context, topic, key string, payload interface{}) error
	Close() error
}

// Envelope is the wire shape of every published event.
type Envelope struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CustomerPayload is the body of customer lifecycle events.
type CustomerPayload struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email,omitempty"`
	HasAccount bool   `json:"has_account,omitempty"`
}

// PasswordResetPayload carries the issued token so a downstream consumer
// (mail sender etc.) can deliver it to the customer.
type PasswordResetPayload struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Token      string `json:"token"`
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (*NoopPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	return nil
}

func (*NoopPublisher) Close() error { return nil }
