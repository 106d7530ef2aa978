package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a business event published by the rest of the application.
type EventType string

const (
	// Account events
	EventUserSignedUp      EventType = "user.signed_up"
	EventWelcomeRequested  EventType = "welcome.requested"
	EventBusinessActivated EventType = "business.activated"

	// Subscription events
	EventSubscriptionConfirmed EventType = "subscription.confirmed"
	EventSubscriptionCancelled EventType = "subscription.cancelled"
	EventSubscriberCreated     EventType = "subscriber.created"

	// Payment events
	EventPaymentSucceeded      EventType = "payment.succeeded"
	EventPaymentFailed         EventType = "payment.failed"
	EventBusinessPaymentFailed EventType = "payment.failed.business"

	// Messaging and billing batch
	EventMessageReceived EventType = "message.received"
	EventCronReport      EventType = "cron.report"
)

// Event is the envelope for all business events on the events topic.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh ID and timestamp.
func NewEvent(eventType EventType, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
