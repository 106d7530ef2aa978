package notification

import (
	"fmt"
	"time"
)

// Preview composes kind with sample data so templates can be reviewed without
// a real event.
func (s *Service) Preview(kind Kind) (EmailMessage, error) {
	now := s.now()

	switch kind {
	case KindWelcome:
		return s.ComposeWelcomeEmail(WelcomeNotification{
			Email: "sam@example.com", Name: "Sam", AccountType: "business",
		})
	case KindSubscriptionConfirmed:
		return s.ComposeSubscriptionConfirmation(sampleSubscription())
	case KindPaymentSucceeded, KindPaymentFailed:
		p := PaymentNotification{
			CustomerEmail: "alex@example.com",
			CustomerName:  "Alex",
			BusinessName:  "Northside Boxing Club",
			ProductName:   "Unlimited Classes",
			Amount:        2550,
			Status:        PaymentSucceeded,
			PaidAt:        now,
		}
		if kind == KindPaymentFailed {
			p.Status = PaymentFailed
			p.FailureReason = "Your card was declined."
		}
		return s.ComposePaymentNotification(p)
	case KindSubscriptionCancelled:
		n := sampleSubscription()
		n.EndsAt = now.AddDate(0, 0, 14)
		return s.ComposeSubscriptionCancelledEmail(n)
	case KindNewMessage:
		return s.ComposeMessageNotification(MessageNotification{
			RecipientEmail: "alex@example.com",
			RecipientName:  "Alex",
			SenderName:     "Jordan",
			BusinessName:   "Northside Boxing Club",
			Snippet:        "Hi Alex, Thursday's session is moved to 7pm.",
		})
	case KindNewSubscriber:
		return s.ComposeNewSubscriberNotification(BusinessNotification{
			BusinessEmail: "hello@northsideboxing.example",
			BusinessName:  "Northside Boxing Club",
			CustomerName:  "Alex",
			CustomerEmail: "alex@example.com",
			ProductName:   "Unlimited Classes",
			Amount:        2550,
			BillingDay:    1,
		})
	case KindBusinessPaymentFailed:
		return s.ComposePaymentFailureNotification(PaymentFailureNotification{
			BusinessEmail: "hello@northsideboxing.example",
			BusinessName:  "Northside Boxing Club",
			CustomerName:  "Alex",
			CustomerEmail: "alex@example.com",
			ProductName:   "Unlimited Classes",
			Amount:        2550,
			FailureReason: "insufficient_funds",
			FailedAt:      now,
		})
	case KindOwnerNewSignup:
		return s.ComposeNewUserSignupNotification(NewUserSignup{
			Email: "sam@example.com", Name: "Sam", AccountType: "business", SignedUpAt: now,
		})
	case KindOwnerBusinessActivated:
		return s.ComposeBusinessActivatedNotification(BusinessActivation{
			BusinessName: "Northside Boxing Club",
			ContactEmail: "hello@northsideboxing.example",
			Slug:         "northside-boxing",
			ActivatedAt:  now,
		})
	case KindOwnerCronReport:
		return s.ComposeCronJobReport(CronJobReport{
			Processed:   42,
			Succeeded:   39,
			Failed:      2,
			Skipped:     1,
			TotalAmount: 107100,
			TotalFees:   3213,
			SkipReasons: []string{"sub_123: paused by business"},
			Errors:      []string{"sub_456: card_declined", "sub_789: authentication_required"},
			RunAt:       now,
			Duration:    3 * time.Second,
		})
	default:
		return EmailMessage{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func sampleSubscription() SubscriptionNotification {
	return SubscriptionNotification{
		CustomerEmail: "alex@example.com",
		CustomerName:  "Alex",
		BusinessName:  "Northside Boxing Club",
		ProductName:   "Unlimited Classes",
		Amount:        2550,
		BillingDay:    1,
	}
}
