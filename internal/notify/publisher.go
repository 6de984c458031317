package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/segmentio/kafka-go"
)

type MessageType string

const (
	EventCreated  MessageType = "event.created"
	EventOpened   MessageType = "event.opened"
	EventClosed   MessageType = "event.closed"
	EventDrawn    MessageType = "event.drawn"
	EventArchived MessageType = "event.archived"
	EntryAccepted MessageType = "entry.accepted"
)

// Message is a domain event about one raffle event.
type Message struct {
	Type       MessageType `json:"type"`
	EventID    string      `json:"event_id"`
	Phase      string      `json:"phase,omitempty"`
	EntryID    int64       `json:"entry_id,omitempty"`
	EntryCount int         `json:"entry_count,omitempty"`
	Digest     string      `json:"digest,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// KafkaPublisher writes messages keyed by event id, so every message of
// one event lands on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.EventID),
		Value: data,
		Time:  msg.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs messages instead of sending them. It also keeps them
// in memory, which tests use to assert on what was published.
type LogPublisher struct {
	mu       sync.Mutex
	messages []Message
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	p.messages = append(p.messages, msg)
	p.mu.Unlock()
	logger.Infof("[Notify] %s event=%s phase=%s entry=%d", msg.Type, msg.EventID, msg.Phase, msg.EntryID)
	return nil
}

func (p *LogPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

func (p *LogPublisher) Close() error {
	return nil
}
