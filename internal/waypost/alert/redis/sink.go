// Package redis implements alert delivery over a Redis pub/sub channel
package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/waypost/waypost/internal/waypost/alert"
)

// publishTimeout bounds each publish so a slow Redis never stalls the caller
// longer than one alert's goroutine.
const publishTimeout = 2 * time.Second

// Sink publishes alerts to a Redis channel as JSON documents
type Sink struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// message is the published alert document
type message struct {
	Name      string                 `json:"name"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewSink creates a Redis-backed alert sink publishing to the given channel
func NewSink(client *redis.Client, channel string, logger *slog.Logger) *Sink {
	return &Sink{client: client, channel: channel, logger: logger}
}

// Emit implements alert.Sink. Publishing happens on a goroutine; failures are
// logged and discarded so alert delivery can never block or crash the
// pipeline.
func (s *Sink) Emit(name string, payload map[string]interface{}) {
	body, err := json.Marshal(message{
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to encode alert", "name", name, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.client.Publish(ctx, s.channel, body).Err(); err != nil {
			s.logger.Error("failed to publish alert",
				"name", name,
				"channel", s.channel,
				"error", err,
			)
		}
	}()
}

var _ alert.Sink = (*Sink)(nil)
