package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/pkg/messaging"
)

const (
	sentKeyPrefix = "email:sent:"
	sentKeyTTL    = 24 * time.Hour

	maxRetryDelay = 5 * time.Minute
)

// RetryPublisher schedules a task body for redelivery after delay.
type RetryPublisher interface {
	PublishDelayed(ctx context.Context, queue string, body []byte, delay time.Duration) error
}

// Worker delivers queued EmailTasks through a real Sender. A task that was
// already delivered (per Redis) is acknowledged without sending again.
type Worker struct {
	sender  Sender
	redis   *redis.Client
	retries RetryPublisher
	queue   string
	logger  *zap.Logger
	metrics *Metrics
}

// NewWorker builds a worker for EmailQueue. Without a RetryPublisher failed
// tasks are left to the broker's immediate requeue and are not capped.
func NewWorker(sender Sender, redisClient *redis.Client, retries RetryPublisher, logger *zap.Logger, metrics *Metrics) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		sender:  sender,
		redis:   redisClient,
		retries: retries,
		queue:   EmailQueue,
		logger:  logger,
		metrics: metrics,
	}
}

// ProcessTask handles one queue delivery. Undecodable or invalid tasks are
// rejected to the dead-letter queue. A provider failure schedules the task
// again with exponential delay until MaxAttempts, then dead-letters it.
func (w *Worker) ProcessTask(ctx context.Context, body []byte) error {
	var task EmailTask
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("%w: decode email task: %v", messaging.ErrReject, err)
	}
	if task.ID == "" {
		return fmt.Errorf("%w: email task has no id", messaging.ErrReject)
	}
	if err := validateRecord(task.Message.Kind, task.Message); err != nil {
		return fmt.Errorf("%w: task %s: %v", messaging.ErrReject, task.ID, err)
	}

	key := sentKeyPrefix + task.ID
	if w.redis != nil {
		exists, err := w.redis.Exists(ctx, key).Result()
		if err != nil {
			w.logger.Warn("idempotency check failed", zap.Error(err), zap.String("task_id", task.ID))
		} else if exists > 0 {
			w.logger.Info("email task already delivered", zap.String("task_id", task.ID))
			return nil
		}
	}

	start := time.Now()
	result, err := w.sender.Send(ctx, task.Message)
	if err != nil {
		w.metrics.record(task.Message.Kind, StatusFailed, time.Since(start))
		return w.retry(ctx, task, &DeliveryError{Recipient: task.Message.To, Subject: task.Message.Subject, Err: err})
	}
	w.metrics.record(task.Message.Kind, StatusSent, time.Since(start))

	if w.redis != nil {
		if err := w.redis.Set(ctx, key, result.ID, sentKeyTTL).Err(); err != nil {
			w.logger.Warn("failed to mark email task delivered", zap.Error(err), zap.String("task_id", task.ID))
		}
	}

	w.logger.Info("queued email delivered",
		zap.String("task_id", task.ID),
		zap.String("email_id", result.ID),
		zap.Duration("queued_for", time.Since(task.EnqueuedAt)))
	return nil
}

func (w *Worker) retry(ctx context.Context, task EmailTask, cause *DeliveryError) error {
	task.Attempts++
	logger := w.logger.With(
		zap.Error(cause),
		zap.String("task_id", task.ID),
		zap.String("kind", string(task.Message.Kind)),
		zap.Int("attempt", task.Attempts),
		zap.Int("max_attempts", task.maxAttempts()))

	if task.Attempts >= task.maxAttempts() {
		logger.Error("queued email exhausted its attempts, dead-lettering")
		return fmt.Errorf("%w: %w", messaging.ErrReject, cause)
	}
	if w.retries == nil {
		logger.Warn("failed to deliver queued email, requeueing")
		return cause
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("%w: marshal email task: %v", messaging.ErrReject, err)
	}
	delay := retryDelay(task.Attempts)
	if err := w.retries.PublishDelayed(ctx, w.queue, body, delay); err != nil {
		logger.Warn("failed to schedule email retry, requeueing", zap.NamedError("publish_error", err))
		return cause
	}

	logger.Warn("failed to deliver queued email, retry scheduled", zap.Duration("retry_in", delay))
	return nil
}

// retryDelay is 2^attempt seconds, capped at maxRetryDelay.
func retryDelay(attempt int) time.Duration {
	if attempt > 16 {
		return maxRetryDelay
	}
	delay := time.Duration(1<<attempt) * time.Second
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}
