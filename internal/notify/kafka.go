package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ignite/leadflow/internal/domain"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits notifications as JSON events keyed by lead id.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}, topic), nil
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, now: time.Now}
}

// Event is the published payload.
type Event struct {
	Type           domain.NotificationKind `json:"type"`
	LeadID         string                  `json:"lead_id,omitempty"`
	ConversationID string                  `json:"conversation_id,omitempty"`
	Urgency        domain.Urgency          `json:"urgency,omitempty"`
	Subject        string                  `json:"subject"`
	Recipients     []string                `json:"recipients"`
	OccurredAt     time.Time               `json:"occurred_at"`
}

func (p *KafkaPublisher) Notify(ctx context.Context, n domain.Notification) error {
	ev := Event{
		Type:           n.Kind,
		LeadID:         n.LeadID,
		ConversationID: n.ConversationID,
		Urgency:        n.Urgency,
		Subject:        n.Subject,
		Recipients:     make([]string, 0, len(n.Recipients)),
		OccurredAt:     p.now().UTC(),
	}
	for _, r := range n.Recipients {
		ev.Recipients = append(ev.Recipients, r.Email)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := n.LeadID
	if key == "" {
		key = string(n.Kind)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: payload,
		Time:  ev.OccurredAt,
	}); err != nil {
		return fmt.Errorf("publish %s event: %w", n.Kind, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
