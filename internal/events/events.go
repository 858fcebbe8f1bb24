package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/onairfm/apiserver/config"
)

// Channel names used by the rating pipeline.
const (
	// ChannelRecorded carries ratings the API has already persisted,
	// for analytics consumers.
	ChannelRecorded = "ratings.recorded"

	// ChannelSubmitted carries ratings submitted out of band (bots,
	// embedded players) to be applied by the ingest worker.
	ChannelSubmitted = "ratings.submitted"
)

// RatingEvent is the wire form of a vote flowing through the broker.
type RatingEvent struct {
	SongID        string    `json:"song_id"`
	Identity      string    `json:"identity"`
	SourceAddress string    `json:"source_address,omitempty"`
	Value         int       `json:"value"`
	CreatedAt     time.Time `json:"created_at"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Bus wraps a backend with the rating-event API.
type Bus struct {
	backend Backend
}

// NewBus constructs a Bus for the broker named in config. It returns
// (nil, nil) when no backend is configured.
func NewBus(ctx context.Context, cfg config.EventsConfig) (*Bus, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := NewRabbitMQBackend(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return &Bus{backend: backend}, nil
	case "pubsub":
		backend, err := NewPubSubBackend(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return &Bus{backend: backend}, nil
	default:
		return nil, fmt.Errorf("unsupported events backend %q", cfg.Backend)
	}
}

// PublishRecorded announces a persisted rating on ChannelRecorded.
func (b *Bus) PublishRecorded(ctx context.Context, event RatingEvent) error {
	return b.publishRating(ctx, ChannelRecorded, event)
}

func (b *Bus) publishRating(ctx context.Context, channel string, event RatingEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	attrs := map[string]string{"song_id": event.SongID}
	_, err = b.backend.Publish(ctx, channel, data, attrs)
	return err
}

// Subscribe consumes messages from the named channel.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return b.backend.Subscribe(ctx, channel, handler)
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}

// DecodeRating parses a RatingEvent from a message payload.
func DecodeRating(data []byte) (RatingEvent, error) {
	var event RatingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return RatingEvent{}, err
	}
	if event.SongID == "" || event.Identity == "" {
		return RatingEvent{}, errors.New("rating event missing song id or identity")
	}
	return event, nil
}
