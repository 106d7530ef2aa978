package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish writes one message. Messages with the same key land on the same
// partition and keep their order.
func (p *KafkaProducer) Publish(ctx context.Context, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaHandler processes one message. Returning an ErrReject error skips the
// message without retrying it; other errors are retried on the consumer's
// handler backoff.
type KafkaHandler func(ctx context.Context, key string, value []byte) error

type KafkaConsumer struct {
	reader     *kafka.Reader
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// KafkaConsumerOption configures a KafkaConsumer.
type KafkaConsumerOption func(*KafkaConsumer)

// WithHandlerBackOff sets the schedule for redelivering a failing message to
// its handler. backoff.StopBackOff disables redelivery.
func WithHandlerBackOff(newBackOff func() backoff.BackOff) KafkaConsumerOption {
	return func(c *KafkaConsumer) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// DefaultHandlerBackOff retries a failing handler for up to 30 seconds.
func DefaultHandlerBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func NewKafkaConsumer(brokers []string, topic, groupID string, logger *zap.Logger, opts ...KafkaConsumerOption) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &KafkaConsumer{
		logger:     logger.With(zap.String("component", "kafka"), zap.String("topic", topic)),
		newBackOff: DefaultHandlerBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return c
}

// Consume runs handler for each message until ctx is cancelled. A failing
// message is retried with backoff, then logged and committed so one bad event
// cannot stall the partition.
func (c *KafkaConsumer) Consume(ctx context.Context, handler KafkaHandler) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("error while reading message from kafka", zap.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return nil
			}
			continue
		}

		if err := c.handle(ctx, m, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("dropping kafka message",
				zap.Error(err),
				zap.String("key", string(m.Key)),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Warn("failed to commit kafka offset", zap.Error(err), zap.Int64("offset", m.Offset))
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message, handler KafkaHandler) error {
	return backoff.RetryNotify(func() error {
		err := handler(ctx, string(m.Key), m.Value)
		if err != nil && errors.Is(err, ErrReject) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(c.newBackOff(), ctx), func(err error, wait time.Duration) {
		c.logger.Warn("kafka handler failed, retrying", zap.Error(err), zap.Duration("retry_in", wait))
	})
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
