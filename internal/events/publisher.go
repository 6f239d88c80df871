package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitebook/internal/model"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives every place event.
const DefaultTopic = "places"

// Event types.
const (
	PlaceAdded   = "place_added"
	PlaceUpdated = "place_updated"
	PlaceDeleted = "place_deleted"
)

// PlaceEvent is published after a change has been committed.
type PlaceEvent struct {
	Type      string    `json:"type"`
	PlaceID   string    `json:"placeId"`
	Name      string    `json:"name,omitempty"`
	Visited   bool      `json:"visited"`
	Rating    *float64  `json:"rating,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPlaceEvent describes p at the current time.
func NewPlaceEvent(eventType string, p model.Place) PlaceEvent {
	return PlaceEvent{
		Type:      eventType,
		PlaceID:   p.ID,
		Name:      p.Name,
		Visited:   p.Visited,
		Rating:    p.Rating,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher emits place events.
type Publisher interface {
	Publish(ctx context.Context, e PlaceEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by place id.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for broker and topic.
func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e PlaceEvent) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.PlaceID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to emit kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PlaceEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }
