// Package event publishes variant changes to Kafka.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TypeVariantCommitted           = "VariantCommitted"
	TypeVariantVerificationChanged = "VariantVerificationChanged"
	TypeSetVariantVerified         = "SetVariantVerified" // command consumed by the listener
)

// Envelope is the wire shape shared by every omnipos event.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type VariantCommittedPayload struct {
	VariantID  string `json:"variant_id"`
	ProductID  string `json:"product_id"`
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	IsDefault  bool   `json:"is_default"`
	Mode       string `json:"mode"` // add or edit
}

type VerificationChangedPayload struct {
	VariantID  string `json:"variant_id"`
	ProductID  string `json:"product_id"`
	MerchantID string `json:"merchant_id"`
	Verified   bool   `json:"verified"`
	ActorID    string `json:"actor_id"`
	Role       string `json:"role"`
}

// SetVerifiedCommand is the payload of a SetVariantVerified command.
type SetVerifiedCommand struct {
	MerchantID string `json:"merchant_id"`
	VariantID  string `json:"variant_id"`
	Verified   bool   `json:"verified"`
	ActorID    string `json:"actor_id"`
	Role       string `json:"role"`
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
}

// Publisher writes envelopes keyed by product id, so events of one product
// stay ordered. A nil *Publisher drops everything.
type Publisher struct {
	writer MessageWriter
	logger logger.ZapLogger
	now    func() time.Time
}

func NewKafkaPublisher(cfg *Config, log logger.ZapLogger) *Publisher {
	return NewPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, log)
}

func NewPublisher(w MessageWriter, log logger.ZapLogger) *Publisher {
	return &Publisher{writer: w, logger: log, now: time.Now}
}

func (p *Publisher) VariantCommitted(ctx context.Context, payload VariantCommittedPayload) error {
	return p.publish(ctx, payload.ProductID, TypeVariantCommitted, payload)
}

func (p *Publisher) VerificationChanged(ctx context.Context, payload VerificationChangedPayload) error {
	return p.publish(ctx, payload.ProductID, TypeVariantVerificationChanged, payload)
}

func (p *Publisher) publish(ctx context.Context, key, eventType string, payload interface{}) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope := Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Payload:   body,
		Timestamp: p.now().UTC(),
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		p.logger.Error("failed to publish event", zap.String("event_type", eventType), zap.Error(err))
		return err
	}
	p.logger.Debug("event published", zap.String("event_type", eventType), zap.String("event_id", envelope.EventID))
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
