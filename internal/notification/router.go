package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/pkg/messaging"
)

// Router turns business events into facade calls. Each event type maps to
// exactly one email.
type Router struct {
	service *Service
	logger  *zap.Logger
}

func NewRouter(service *Service, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{service: service, logger: logger}
}

// Handle decodes a raw event (as read from Kafka) and dispatches it. Events
// that can never produce an email are marked for rejection so the consumer
// does not retry them.
func (r *Router) Handle(ctx context.Context, key string, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("%w: decode event %q: %v", messaging.ErrReject, key, err)
	}
	err := r.Route(ctx, &event)
	if errors.Is(err, ErrMalformedInput) {
		return fmt.Errorf("%w: %w", messaging.ErrReject, err)
	}
	return err
}

// Route dispatches a decoded event. Unknown types are logged and ignored.
func (r *Router) Route(ctx context.Context, event *Event) error {
	var (
		result SendResult
		err    error
	)

	switch event.Type {
	case EventUserSignedUp:
		result, err = dispatch(ctx, event, r.service.SendNewUserSignupNotification)
	case EventWelcomeRequested:
		result, err = dispatch(ctx, event, r.service.SendWelcomeEmail)
	case EventBusinessActivated:
		result, err = dispatch(ctx, event, r.service.SendBusinessActivatedNotification)
	case EventSubscriptionConfirmed:
		result, err = dispatch(ctx, event, r.service.SendSubscriptionConfirmation)
	case EventSubscriptionCancelled:
		result, err = dispatch(ctx, event, r.service.SendSubscriptionCancelledEmail)
	case EventSubscriberCreated:
		result, err = dispatch(ctx, event, r.service.SendNewSubscriberNotification)
	case EventPaymentSucceeded, EventPaymentFailed:
		result, err = dispatch(ctx, event, func(ctx context.Context, n PaymentNotification) (SendResult, error) {
			n.Status = PaymentSucceeded
			if event.Type == EventPaymentFailed {
				n.Status = PaymentFailed
			}
			return r.service.SendPaymentNotification(ctx, n)
		})
	case EventBusinessPaymentFailed:
		result, err = dispatch(ctx, event, r.service.SendPaymentFailureNotification)
	case EventMessageReceived:
		result, err = dispatch(ctx, event, r.service.SendMessageNotification)
	case EventCronReport:
		result, err = dispatch(ctx, event, r.service.SendCronJobReport)
	default:
		r.logger.Info("no email for event type", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return nil
	}

	if err != nil {
		return fmt.Errorf("event %s (%s): %w", event.ID, event.Type, err)
	}
	r.logger.Debug("event dispatched",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("email_id", result.ID))
	return nil
}

func dispatch[T any](ctx context.Context, event *Event, send func(context.Context, T) (SendResult, error)) (SendResult, error) {
	var data T
	if err := event.Decode(&data); err != nil {
		return SendResult{}, fmt.Errorf("%w: decode payload: %v", ErrMalformedInput, err)
	}
	return send(ctx, data)
}
