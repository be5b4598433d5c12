package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-variant-service/internal/logger"
	"github.com/fekuna/omnipos-variant-service/internal/variant"
	"github.com/fekuna/omnipos-variant-service/internal/variant/dto"
	"github.com/fekuna/omnipos-variant-service/internal/variant/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafka.Reader the listener uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewConsumer(cfg *ConsumerConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// VerificationListener applies SetVariantVerified commands sent by the
// back office. The actor and role are taken from the command payload, so the
// topic must only be writable by the back office (broker ACLs).
type VerificationListener struct {
	consumer   MessageReader
	uc         variant.UseCase
	logger     logger.ZapLogger
	retryDelay time.Duration
}

func NewVerificationListener(consumer MessageReader, uc variant.UseCase, logger logger.ZapLogger) *VerificationListener {
	return &VerificationListener{
		consumer:   consumer,
		uc:         uc,
		logger:     logger,
		retryDelay: time.Second,
	}
}

func (l *VerificationListener) Start(ctx context.Context) {
	l.logger.Info("Starting Verification Kafka Listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping Verification Kafka Listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(l.retryDelay)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *VerificationListener) processMessage(ctx context.Context, value []byte) {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}
	if env.EventType != event.TypeSetVariantVerified {
		return
	}

	var cmd event.SetVerifiedCommand
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		l.logger.Error("Failed to unmarshal verification command", zap.String("event_id", env.EventID), zap.Error(err))
		return
	}

	l.logger.Info("Processing SetVariantVerified command",
		zap.String("event_id", env.EventID),
		zap.String("variant_id", cmd.VariantID),
	)

	_, err := l.uc.SetVariantVerified(ctx, &dto.SetVerifiedInput{
		MerchantID: cmd.MerchantID,
		VariantID:  cmd.VariantID,
		Verified:   cmd.Verified,
		ActorID:    cmd.ActorID,
		Role:       cmd.Role,
	})
	if err != nil {
		l.logger.Error("Failed to set variant verification",
			zap.String("event_id", env.EventID),
			zap.String("variant_id", cmd.VariantID),
			zap.Error(err),
		)
	}
}
