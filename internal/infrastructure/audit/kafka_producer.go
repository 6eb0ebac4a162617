// Package audit implements the AuditService interface over Kafka, a SQL table or the service log.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/internal/domain/models"
	"github.com/omega-networks/mapkit-auth/internal/domain/service"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

// HeaderSignature carries the HMAC of the message value when a signing secret is configured.
const HeaderSignature = "X-Audit-Signature"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ service.AuditService = (*KafkaProducer)(nil)

// KafkaProducer is a Kafka-backed implementation of the AuditService.
type KafkaProducer struct {
	writer        messageWriter
	signingSecret string
	logger        logger.Logger
}

// NewKafkaProducer creates a new KafkaProducer.
func NewKafkaProducer(cfg config.KafkaConfig, signingSecret string, log logger.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
	return newKafkaProducer(writer, signingSecret, log)
}

func newKafkaProducer(writer messageWriter, signingSecret string, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer:        writer,
		signingSecret: signingSecret,
		logger:        log.WithComponent("KafkaProducer"),
	}
}

// LogEvent sends an audit event to the Kafka topic, keyed by event type.
func (p *KafkaProducer) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Type),
		Value: bytes,
	}
	if p.signingSecret != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key:   HeaderSignature,
			Value: []byte(SignPayload(bytes, p.signingSecret)),
		})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(ctx, "failed to write message to Kafka", err, logger.String("event_type", string(event.Type)))
		return err
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
