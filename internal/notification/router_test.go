package notification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monthlyclub/monthly-club/pkg/messaging"
)

func TestRouterDispatchesEvents(t *testing.T) {
	payment := PaymentNotification{
		CustomerEmail: "alex@example.com", CustomerName: "Alex",
		BusinessName: "Gym", ProductName: "Classes", Amount: 2550,
	}

	tests := []struct {
		eventType EventType
		data      any
		wantTo    string
		wantKind  Kind
	}{
		{EventUserSignedUp, NewUserSignup{Email: "sam@example.com"}, "owner@example.com", KindOwnerNewSignup},
		{EventWelcomeRequested, WelcomeNotification{Email: "sam@example.com", Name: "Sam"}, "sam@example.com", KindWelcome},
		{EventBusinessActivated, BusinessActivation{BusinessName: "Gym", ContactEmail: "gym@example.com"}, "owner@example.com", KindOwnerBusinessActivated},
		{EventSubscriptionConfirmed, sampleSubscription(), sampleSubscription().CustomerEmail, KindSubscriptionConfirmed},
		{EventSubscriptionCancelled, sampleSubscription(), sampleSubscription().CustomerEmail, KindSubscriptionCancelled},
		{EventSubscriberCreated, BusinessNotification{
			BusinessEmail: "gym@example.com", BusinessName: "Gym", CustomerName: "Alex",
			CustomerEmail: "alex@example.com", ProductName: "Classes", BillingDay: 1,
		}, "gym@example.com", KindNewSubscriber},
		{EventPaymentSucceeded, payment, "alex@example.com", KindPaymentSucceeded},
		{EventPaymentFailed, payment, "alex@example.com", KindPaymentFailed},
		{EventBusinessPaymentFailed, PaymentFailureNotification{
			BusinessEmail: "gym@example.com", BusinessName: "Gym", CustomerName: "Alex",
			CustomerEmail: "alex@example.com", ProductName: "Classes",
		}, "gym@example.com", KindBusinessPaymentFailed},
		{EventMessageReceived, MessageNotification{
			RecipientEmail: "alex@example.com", RecipientName: "Alex", SenderName: "Jordan", Snippet: "Hi",
		}, "alex@example.com", KindNewMessage},
		{EventCronReport, CronJobReport{Processed: 1, Succeeded: 1}, "owner@example.com", KindOwnerCronReport},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			sender := &recordingSender{}
			router := NewRouter(newTestService(sender), nil)

			event, err := NewEvent(tt.eventType, tt.data)
			require.NoError(t, err)
			require.NoError(t, router.Route(context.Background(), event))

			msg := sender.last(t)
			assert.Equal(t, tt.wantTo, msg.To)
			assert.Equal(t, tt.wantKind, msg.Kind)
		})
	}
}

func TestRouterPaymentStatusFollowsEventType(t *testing.T) {
	sender := &recordingSender{}
	router := NewRouter(newTestService(sender), nil)

	event, err := NewEvent(EventPaymentFailed, PaymentNotification{
		CustomerEmail: "alex@example.com", CustomerName: "Alex",
		BusinessName: "Gym", ProductName: "Classes", Status: PaymentSucceeded,
	})
	require.NoError(t, err)
	require.NoError(t, router.Route(context.Background(), event))

	assert.Equal(t, KindPaymentFailed, sender.last(t).Kind)
}

func TestRouterIgnoresUnknownEvents(t *testing.T) {
	sender := &recordingSender{}
	router := NewRouter(newTestService(sender), nil)

	event, err := NewEvent("invoice.created", map[string]string{"id": "inv_1"})
	require.NoError(t, err)

	assert.NoError(t, router.Route(context.Background(), event))
	assert.Zero(t, sender.calls)
}

func TestRouterHandleRejectsBadEvents(t *testing.T) {
	invalid, err := json.Marshal(Event{
		ID:   "evt_1",
		Type: EventWelcomeRequested,
		Data: json.RawMessage(`{"email":"not-an-email","name":"Sam"}`),
	})
	require.NoError(t, err)
	wrongShape, err := json.Marshal(Event{
		ID:   "evt_2",
		Type: EventCronReport,
		Data: json.RawMessage(`{"processed":"many"}`),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		value []byte
	}{
		{"not json", []byte("garbage")},
		{"invalid payload", invalid},
		{"payload of wrong shape", wrongShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			router := NewRouter(newTestService(sender), nil)

			err := router.Handle(context.Background(), "key", tt.value)
			assert.ErrorIs(t, err, messaging.ErrReject)
			assert.Zero(t, sender.calls)
		})
	}
}

func TestRouterHandleKeepsDeliveryErrorsRetryable(t *testing.T) {
	sender := &recordingSender{err: assert.AnError, failures: 1}
	router := NewRouter(newTestService(sender), nil)

	event, err := NewEvent(EventWelcomeRequested, WelcomeNotification{Email: "sam@example.com", Name: "Sam"})
	require.NoError(t, err)
	value, err := json.Marshal(event)
	require.NoError(t, err)

	err = router.Handle(context.Background(), "sam@example.com", value)
	assert.ErrorIs(t, err, ErrDelivery)
	assert.NotErrorIs(t, err, messaging.ErrReject)
}
