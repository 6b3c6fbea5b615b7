// Package events publishes enrollment and match notifications to Kafka.
// Publishing is best-effort plumbing around the core: a failed event never
// fails the request that produced it.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	TypeEnrolled = "person.enrolled"
	TypeMatched  = "person.matched"
	TypeRemoved  = "person.removed"
)

// Event is one notification about a person record.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	VectorID int64     `json:"vector_id"`
	Distance float32   `json:"distance,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(eventType string, vectorID int64, distance float32) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		VectorID: vectorID,
		Distance: distance,
		At:       time.Now().UTC(),
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the comma-separated broker list.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish sends one event, keyed by type so consumers can partition on it.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Type),
		Value: value,
		Time:  ev.At,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Used when eventing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
func (NopPublisher) Close() error                                { return nil }
