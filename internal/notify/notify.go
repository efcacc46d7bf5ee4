// Package notify publishes transactional events (registrations, reset
// requests, contact messages) to an optional message broker. Publishing
// is fire-and-forget: failures are logged and never surfaced to the
// request that triggered them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pinvent/apiserver/config"
)

// Event types published by the services.
const (
	EventUserRegistered = "user.registered"
	EventResetRequested = "password-reset.requested"
	EventContactMessage = "contact.message"
)

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend with a fixed channel and JSON encoding.
// A nil Publisher is valid and drops every event.
type Publisher struct {
	backend Backend
	channel string
}

// New constructs a Publisher for the provided backend and channel.
func New(backend Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

// FromConfig constructs a Publisher for the configured backend, or nil
// when no broker is configured.
func FromConfig(ctx context.Context, cfg config.NotifyConfig) (*Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(backend, cfg.Channel), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(backend, cfg.Channel), nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.Backend)
	}
}

// Publish encodes the payload as JSON and sends it with the event type
// as a message attribute. Errors are logged, not returned.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) {
	if p == nil || p.backend == nil {
		return
	}

	body := map[string]any{
		"event":       eventType,
		"occurred_at": time.Now().UTC().Format(time.RFC3339),
		"data":        payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("notify: encode %s: %v", eventType, err)
		return
	}

	if _, err := p.backend.Publish(ctx, p.channel, data, map[string]string{"event": eventType}); err != nil {
		log.Printf("notify: publish %s: %v", eventType, err)
	}
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
