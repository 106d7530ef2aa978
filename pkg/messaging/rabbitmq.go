package messaging

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrReject marks a handler error for a message that can never be processed.
// Such messages are dead-lettered instead of requeued.
var ErrReject = errors.New("messaging: reject message")

var (
	ErrCircuitOpen    = errors.New("messaging: circuit breaker is open")
	ErrNotConnected   = errors.New("messaging: connection is not available")
	ErrChannelMissing = errors.New("messaging: channel is not initialized")
)

// Config holds configuration for the RabbitMQ client
type Config struct {
	URL       string
	TLSConfig *tls.Config

	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	// MaxReconnectTime bounds a single reconnection attempt; zero retries forever.
	MaxReconnectTime time.Duration
	HeartbeatTimeout time.Duration

	CircuitBreakerEnabled   bool
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	Logger *zap.Logger
}

func DefaultConfig() Config {
	return Config{
		ReconnectDelay:          time.Second,
		MaxReconnectDelay:       time.Minute,
		HeartbeatTimeout:        10 * time.Second,
		CircuitBreakerEnabled:   true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = d.MaxReconnectDelay
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = d.CircuitBreakerThreshold
	}
	if c.CircuitBreakerTimeout == 0 {
		c.CircuitBreakerTimeout = d.CircuitBreakerTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// RabbitMQClient publishes to and consumes from durable queues, reconnecting
// with exponential backoff when the broker connection drops.
type RabbitMQClient struct {
	config Config
	logger *zap.Logger

	mu           sync.RWMutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
	closed       bool

	cb *CircuitBreaker
}

func NewRabbitMQClient(config Config) (*RabbitMQClient, error) {
	config = config.withDefaults()
	client := &RabbitMQClient{
		config: config,
		logger: config.Logger.With(zap.String("component", "rabbitmq")),
		cb:     NewCircuitBreaker(config.CircuitBreakerThreshold, config.CircuitBreakerTimeout),
	}

	notify, err := client.connect()
	if err != nil {
		return nil, err
	}
	go client.watch(notify)

	return client, nil
}

func (r *RabbitMQClient) connect() (chan *amqp.Error, error) {
	r.logger.Info("connecting to rabbitmq", zap.String("url", maskURL(r.config.URL)))

	var (
		conn *amqp.Connection
		err  error
	)
	if r.config.TLSConfig != nil {
		conn, err = amqp.DialTLS(r.config.URL, r.config.TLSConfig)
	} else {
		conn, err = amqp.DialConfig(r.config.URL, amqp.Config{Heartbeat: r.config.HeartbeatTimeout})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	notify := conn.NotifyClose(make(chan *amqp.Error, 1))

	r.mu.Lock()
	r.conn, r.ch = conn, ch
	r.reconnecting = false
	r.mu.Unlock()

	r.logger.Info("connected to rabbitmq")
	return notify, nil
}

// watch waits for the connection to close and reconnects until Close is called.
func (r *RabbitMQClient) watch(notify chan *amqp.Error) {
	for {
		amqpErr, ok := <-notify
		if r.isClosed() {
			return
		}
		if ok {
			r.logger.Warn("rabbitmq connection closed", zap.String("reason", amqpErr.Reason), zap.Int("code", amqpErr.Code))
		}

		r.mu.Lock()
		r.reconnecting = true
		r.mu.Unlock()

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = r.config.ReconnectDelay
		b.MaxInterval = r.config.MaxReconnectDelay
		b.MaxElapsedTime = r.config.MaxReconnectTime

		var next chan *amqp.Error
		err := backoff.RetryNotify(func() error {
			if r.isClosed() {
				return backoff.Permanent(ErrNotConnected)
			}
			n, err := r.connect()
			if err != nil {
				return err
			}
			next = n
			return nil
		}, b, func(err error, wait time.Duration) {
			r.logger.Warn("rabbitmq reconnect failed", zap.Error(err), zap.Duration("retry_in", wait))
		})
		if err != nil {
			r.logger.Error("giving up on rabbitmq reconnection", zap.Error(err))
			return
		}
		notify = next
	}
}

func (r *RabbitMQClient) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *RabbitMQClient) channel() (*amqp.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.reconnecting || r.ch == nil {
		return nil, ErrNotConnected
	}
	return r.ch, nil
}

func (r *RabbitMQClient) DeclareQueue(name string) (amqp.Queue, error) {
	ch, err := r.channel()
	if err != nil {
		return amqp.Queue{}, err
	}
	return ch.QueueDeclare(name, true, false, false, false, nil)
}

// DeclareQueueWithDLQ declares name, name+".dlq" for rejected messages and
// name+".retry", whose expired messages flow back into name.
func (r *RabbitMQClient) DeclareQueueWithDLQ(name string) (amqp.Queue, error) {
	ch, err := r.channel()
	if err != nil {
		return amqp.Queue{}, err
	}

	dlq := DeadLetterQueue(name)
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	if _, err := ch.QueueDeclare(RetryQueue(name), true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": name,
	}); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare retry queue: %w", err)
	}

	return ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	})
}

func DeadLetterQueue(name string) string {
	return name + ".dlq"
}

// RetryQueue holds delayed redeliveries for name. It has no consumers.
func RetryQueue(name string) string {
	return name + ".retry"
}

func (r *RabbitMQClient) Publish(ctx context.Context, queue string, body []byte) error {
	return r.publish(ctx, queue, amqp.Publishing{Body: body})
}

// PublishDelayed parks body in the retry queue of queue; the broker moves it
// back to queue once delay has passed. queue must have been declared with
// DeclareQueueWithDLQ.
func (r *RabbitMQClient) PublishDelayed(ctx context.Context, queue string, body []byte, delay time.Duration) error {
	return r.publish(ctx, RetryQueue(queue), amqp.Publishing{
		Body:       body,
		Expiration: expiration(delay),
	})
}

func (r *RabbitMQClient) publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	if r.config.CircuitBreakerEnabled && !r.cb.Allow() {
		return ErrCircuitOpen
	}

	ch, err := r.channel()
	if err != nil {
		return err
	}

	msg.ContentType = "application/json"
	msg.DeliveryMode = amqp.Persistent
	msg.Timestamp = time.Now().UTC()
	err = ch.PublishWithContext(ctx, "", queue, false, false, msg)

	if r.config.CircuitBreakerEnabled {
		if err != nil {
			r.cb.RecordFailure()
		} else {
			r.cb.RecordSuccess()
		}
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// expiration formats a per-message TTL in milliseconds, as AMQP expects.
func expiration(delay time.Duration) string {
	ms := delay.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return strconv.FormatInt(ms, 10)
}

// Consume delivers messages from queue to handler until ctx is cancelled.
// A nil error acks, an ErrReject error dead-letters, and any other error
// requeues the message.
func (r *RabbitMQClient) Consume(ctx context.Context, queue string, handler func(ctx context.Context, body []byte) error) error {
	logger := r.logger.With(zap.String("queue", queue))

	for {
		if ctx.Err() != nil {
			return nil
		}

		ch, err := r.channel()
		if err != nil {
			if !sleepCtx(ctx, r.config.ReconnectDelay) {
				return nil
			}
			continue
		}

		msgs, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
		if err != nil {
			logger.Warn("failed to register consumer", zap.Error(err))
			if !sleepCtx(ctx, 2*time.Second) {
				return nil
			}
			continue
		}

		if !r.drain(ctx, msgs, handler, logger) {
			return nil
		}

		logger.Warn("consumer channel closed, waiting for reconnection")
		if !sleepCtx(ctx, r.config.ReconnectDelay) {
			return nil
		}
	}
}

// drain returns false when ctx is done and true when the delivery channel closed.
func (r *RabbitMQClient) drain(ctx context.Context, msgs <-chan amqp.Delivery, handler func(context.Context, []byte) error, logger *zap.Logger) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case d, ok := <-msgs:
			if !ok {
				return true
			}
			settle(d, handler(ctx, d.Body), logger)
		}
	}
}

// Acknowledger is the part of amqp.Delivery that settle needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(d Acknowledger, err error, logger *zap.Logger) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = d.Ack(false)
	case errors.Is(err, ErrReject):
		logger.Error("rejecting message to dead-letter queue", zap.Error(err))
		ackErr = d.Nack(false, false)
	default:
		logger.Warn("message handler failed, requeueing", zap.Error(err))
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		logger.Warn("failed to settle message", zap.Error(ackErr))
	}
}

func (r *RabbitMQClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

func (r *RabbitMQClient) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed() && !r.reconnecting
}

func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
