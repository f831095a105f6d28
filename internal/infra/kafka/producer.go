package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

const headerEventType = "event_type"

// Producer sends security events through a Sarama async producer. Delivery
// failures are logged and counted, never returned to the request path.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	prefix   string
	failures atomic.Int64
	done     chan struct{}
}

// NewProducer connects to the brokers. clientID identifies this service to Kafka.
func NewProducer(cfg config.KafkaSettings, clientID string, logger *zap.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	if clientID != "" {
		saramaConfig.ClientID = clientID
	}

	// Lockout and revocation events are rare and must not be lost.
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("security event producer connected",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)

	return newProducer(producer, cfg.TopicPrefix, logger), nil
}

func newProducer(producer sarama.AsyncProducer, prefix string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Producer{
		producer: producer,
		logger:   logger,
		prefix:   prefix,
		done:     make(chan struct{}),
	}
	go p.watchErrors()
	return p
}

// Send queues value on the topic for eventType. It blocks only while the
// producer input is full and gives up when ctx ends.
func (p *Producer) Send(ctx context.Context, eventType, key string, value []byte) error {
	message := &sarama.ProducerMessage{
		Topic: p.TopicName(eventType),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(eventType)},
		},
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) watchErrors() {
	for {
		select {
		case perr, ok := <-p.producer.Errors():
			if !ok {
				return
			}
			if perr == nil {
				continue
			}
			p.failures.Add(1)
			fields := []zap.Field{zap.Error(perr.Err)}
			if perr.Msg != nil {
				fields = append(fields, zap.String("topic", perr.Msg.Topic))
			}
			p.logger.Error("security event delivery failed", fields...)
		case <-p.done:
			return
		}
	}
}

// Failures returns the number of events the brokers rejected.
func (p *Producer) Failures() int64 {
	return p.failures.Load()
}

// Close flushes pending messages and closes the producer.
func (p *Producer) Close() error {
	close(p.done)

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	p.logger.Info("security event producer closed", zap.Int64("delivery_failures", p.Failures()))
	return nil
}

// TopicName places eventType behind the configured prefix.
func (p *Producer) TopicName(eventType string) string {
	if p.prefix == "" {
		return eventType
	}

	prefix := p.prefix + "."
	if strings.HasPrefix(eventType, prefix) {
		return eventType
	}
	return prefix + eventType
}
