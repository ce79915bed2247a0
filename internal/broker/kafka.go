package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"material-service/internal/models"
	"material-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Message headers set on every published event
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
	HeaderSource    = "source"
)

type enveloped interface {
	Meta() models.BaseEvent
}

// Producer writes domain events to a single Kafka topic. Events with the same
// key land on the same partition so consumers see one part's changes in
// commit order.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: writer, logger: util.GetLogger().With(zap.String("topic", topic))}
}

// PublishEvent publishes an event to Kafka
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	msg, err := buildMessage(key, event)
	if err != nil {
		return err
	}

	ctx, span := util.StartSpan(ctx, "Producer.PublishEvent")
	defer span.End()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return util.RecordError(ctx, fmt.Errorf("failed to write message to kafka: %w", err))
	}

	p.logger.Debug("Published event", zap.String("key", key), zap.String("type", headerValue(msg, HeaderEventType)))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

func buildMessage(key string, event interface{}) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: HeaderSource, Value: []byte(util.ServiceName)}},
	}
	if e, ok := event.(enveloped); ok {
		meta := e.Meta()
		msg.Time = meta.Timestamp
		msg.Headers = append(msg.Headers,
			kafka.Header{Key: HeaderEventType, Value: []byte(meta.EventType)},
			kafka.Header{Key: HeaderEventID, Value: []byte(meta.EventID)},
		)
	}
	return msg, nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
