package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monthlyclub/monthly-club/pkg/messaging"
)

func newTestWorker(t *testing.T, sender Sender, retries RetryPublisher) (*Worker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWorker(sender, client, retries, nil, nil), mr
}

// delayedPublisher records scheduled redeliveries.
type delayedPublisher struct {
	queue  string
	bodies [][]byte
	delays []time.Duration
	err    error
}

func (d *delayedPublisher) PublishDelayed(_ context.Context, queue string, body []byte, delay time.Duration) error {
	if d.err != nil {
		return d.err
	}
	d.queue = queue
	d.bodies = append(d.bodies, body)
	d.delays = append(d.delays, delay)
	return nil
}

func taskBody(t *testing.T, task EmailTask) []byte {
	t.Helper()
	body, err := json.Marshal(task)
	require.NoError(t, err)
	return body
}

func sampleTask() EmailTask {
	return EmailTask{
		ID:          "task_1",
		Message:     EmailMessage{To: "alex@example.com", Subject: "Hi", HTML: "<p>Hi</p>", Kind: KindWelcome},
		EnqueuedAt:  time.Now().UTC(),
		MaxAttempts: DefaultMaxAttempts,
	}
}

func TestWorkerDeliversOnce(t *testing.T) {
	sender := &recordingSender{}
	worker, mr := newTestWorker(t, sender, nil)
	body := taskBody(t, sampleTask())

	require.NoError(t, worker.ProcessTask(context.Background(), body))
	require.NoError(t, worker.ProcessTask(context.Background(), body))

	assert.Equal(t, 1, sender.calls)
	got, err := mr.Get("email:sent:task_1")
	require.NoError(t, err)
	assert.Equal(t, "email_1", got)
	assert.Equal(t, 24*time.Hour, mr.TTL("email:sent:task_1"))
}

func TestWorkerRejectsPoisonTasks(t *testing.T) {
	invalid := sampleTask()
	invalid.Message.To = "not-an-email"
	noID := sampleTask()
	noID.ID = ""

	tests := []struct {
		name string
		body []byte
	}{
		{"undecodable", []byte("{not json")},
		{"missing id", taskBody(t, noID)},
		{"invalid message", taskBody(t, invalid)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			worker, _ := newTestWorker(t, sender, nil)

			err := worker.ProcessTask(context.Background(), tt.body)
			assert.ErrorIs(t, err, messaging.ErrReject)
			assert.Zero(t, sender.calls)
		})
	}
}

func TestWorkerSendFailureIsRetryable(t *testing.T) {
	sender := &recordingSender{err: errors.New("rate limited"), failures: 1}
	worker, mr := newTestWorker(t, sender, nil)
	body := taskBody(t, sampleTask())

	err := worker.ProcessTask(context.Background(), body)
	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	assert.Equal(t, "alex@example.com", delivery.Recipient)
	assert.NotErrorIs(t, err, messaging.ErrReject)
	assert.False(t, mr.Exists("email:sent:task_1"))

	require.NoError(t, worker.ProcessTask(context.Background(), body))
	assert.Equal(t, 2, sender.calls)
}

func TestWorkerSendsWhenRedisUnavailable(t *testing.T) {
	sender := &recordingSender{}
	worker, mr := newTestWorker(t, sender, nil)
	mr.Close()

	require.NoError(t, worker.ProcessTask(context.Background(), taskBody(t, sampleTask())))
	assert.Equal(t, 1, sender.calls)
}

func TestWorkerWithoutRedis(t *testing.T) {
	sender := &recordingSender{}
	worker := NewWorker(sender, nil, nil, nil, nil)

	require.NoError(t, worker.ProcessTask(context.Background(), taskBody(t, sampleTask())))
	assert.Equal(t, 1, sender.calls)
}

func TestWorkerDeadLettersAfterMaxAttempts(t *testing.T) {
	sender := &recordingSender{err: errors.New("422 invalid recipient"), failures: 100}
	retries := &delayedPublisher{}
	worker, mr := newTestWorker(t, sender, retries)

	body := taskBody(t, sampleTask())
	for attempt := 1; attempt < DefaultMaxAttempts; attempt++ {
		require.NoError(t, worker.ProcessTask(context.Background(), body), "attempt %d", attempt)
		require.Len(t, retries.bodies, attempt)
		body = retries.bodies[attempt-1]

		var task EmailTask
		require.NoError(t, json.Unmarshal(body, &task))
		assert.Equal(t, attempt, task.Attempts)
		assert.Equal(t, "task_1", task.ID)
	}

	err := worker.ProcessTask(context.Background(), body)
	assert.ErrorIs(t, err, messaging.ErrReject)
	assert.ErrorIs(t, err, ErrDelivery)

	assert.Equal(t, DefaultMaxAttempts, sender.calls)
	assert.Len(t, retries.bodies, DefaultMaxAttempts-1)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, retries.delays)
	assert.Equal(t, EmailQueue, retries.queue)
	assert.False(t, mr.Exists("email:sent:task_1"))
}

func TestWorkerHonoursTaskMaxAttempts(t *testing.T) {
	sender := &recordingSender{err: errors.New("timeout"), failures: 100}
	retries := &delayedPublisher{}
	worker, _ := newTestWorker(t, sender, retries)

	task := sampleTask()
	task.MaxAttempts = 1

	err := worker.ProcessTask(context.Background(), taskBody(t, task))
	assert.ErrorIs(t, err, messaging.ErrReject)
	assert.Empty(t, retries.bodies)
}

func TestWorkerLegacyTaskUsesDefaultCap(t *testing.T) {
	sender := &recordingSender{err: errors.New("timeout"), failures: 100}
	retries := &delayedPublisher{}
	worker, _ := newTestWorker(t, sender, retries)

	task := sampleTask()
	task.MaxAttempts = 0
	task.Attempts = DefaultMaxAttempts - 1

	assert.ErrorIs(t, worker.ProcessTask(context.Background(), taskBody(t, task)), messaging.ErrReject)
}

func TestWorkerRequeuesWhenRetryCannotBeScheduled(t *testing.T) {
	sender := &recordingSender{err: errors.New("timeout"), failures: 1}
	worker, _ := newTestWorker(t, sender, &delayedPublisher{err: errors.New("channel closed")})

	err := worker.ProcessTask(context.Background(), taskBody(t, sampleTask()))
	assert.ErrorIs(t, err, ErrDelivery)
	assert.NotErrorIs(t, err, messaging.ErrReject)
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{9, maxRetryDelay},
		{64, maxRetryDelay},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}
