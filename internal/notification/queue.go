package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EmailQueue is the durable RabbitMQ queue carrying rendered emails.
const EmailQueue = "email.notifications"

// DefaultMaxAttempts bounds provider calls per queued email before the task
// is dead-lettered.
const DefaultMaxAttempts = 3

// Publisher is the part of the RabbitMQ client QueueSender needs.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// EmailTask is a rendered message waiting in the queue. Attempts counts
// failed provider calls so far.
type EmailTask struct {
	ID          string       `json:"id"`
	Message     EmailMessage `json:"message"`
	EnqueuedAt  time.Time    `json:"enqueued_at"`
	Attempts    int          `json:"attempts"`
	MaxAttempts int          `json:"max_attempts"`
}

func (t EmailTask) maxAttempts() int {
	if t.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return t.MaxAttempts
}

// QueueSender defers delivery to a Worker by publishing tasks to RabbitMQ.
// The returned SendResult carries the task ID, not a provider ID.
type QueueSender struct {
	publisher Publisher
	queue     string
}

func NewQueueSender(publisher Publisher) *QueueSender {
	return &QueueSender{publisher: publisher, queue: EmailQueue}
}

func (q *QueueSender) Name() string { return "queue" }

func (q *QueueSender) Send(ctx context.Context, msg EmailMessage) (SendResult, error) {
	task := EmailTask{
		ID:          "task_" + uuid.NewString(),
		Message:     msg,
		EnqueuedAt:  time.Now().UTC(),
		MaxAttempts: DefaultMaxAttempts,
	}
	body, err := json.Marshal(task)
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal email task: %w", err)
	}
	if err := q.publisher.Publish(ctx, q.queue, body); err != nil {
		return SendResult{}, fmt.Errorf("publish email task: %w", err)
	}
	return SendResult{ID: task.ID}, nil
}
