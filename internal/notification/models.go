package notification

import (
	"time"
)

// Kind identifies which email template produced a message.
type Kind string

const (
	KindWelcome                Kind = "welcome"
	KindSubscriptionConfirmed  Kind = "subscription_confirmed"
	KindPaymentSucceeded       Kind = "payment_succeeded"
	KindPaymentFailed          Kind = "payment_failed"
	KindSubscriptionCancelled  Kind = "subscription_cancelled"
	KindNewMessage             Kind = "new_message"
	KindNewSubscriber          Kind = "new_subscriber"
	KindBusinessPaymentFailed  Kind = "business_payment_failed"
	KindOwnerNewSignup         Kind = "owner_new_signup"
	KindOwnerBusinessActivated Kind = "owner_business_activated"
	KindOwnerCronReport        Kind = "owner_cron_report"
	KindTest                   Kind = "test"
	KindCustom                 Kind = "custom"
)

// Kinds lists every template-backed kind, in the order previews are listed.
var Kinds = []Kind{
	KindWelcome,
	KindSubscriptionConfirmed,
	KindPaymentSucceeded,
	KindPaymentFailed,
	KindSubscriptionCancelled,
	KindNewMessage,
	KindNewSubscriber,
	KindBusinessPaymentFailed,
	KindOwnerNewSignup,
	KindOwnerBusinessActivated,
	KindOwnerCronReport,
}

// Status is the delivery state recorded in the delivery log.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// PaymentStatus is the outcome of a single subscription charge.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// EmailMessage is a rendered email ready to hand to a Sender.
type EmailMessage struct {
	To      string            `json:"to" validate:"required,email"`
	Subject string            `json:"subject" validate:"required"`
	HTML    string            `json:"html" validate:"required"`
	From    string            `json:"from,omitempty"`
	Kind    Kind              `json:"kind,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// SendResult carries the provider's identifier for an accepted message.
type SendResult struct {
	ID string `json:"id"`
}

// CronJobReport summarises one run of the billing batch job.
type CronJobReport struct {
	Processed   int           `json:"processed" validate:"gte=0"`
	Succeeded   int           `json:"succeeded" validate:"gte=0"`
	Failed      int           `json:"failed" validate:"gte=0"`
	Skipped     int           `json:"skipped" validate:"gte=0"`
	TotalAmount int64         `json:"total_amount" validate:"gte=0"`
	TotalFees   int64         `json:"total_fees" validate:"gte=0"`
	SkipReasons []string      `json:"skip_reasons,omitempty"`
	Errors      []string      `json:"errors,omitempty"`
	RunAt       time.Time     `json:"run_at"`
	Duration    time.Duration `json:"duration"`
}

type WelcomeNotification struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required"`
	AccountType string `json:"account_type" validate:"omitempty,oneof=business customer"`
}

type SubscriptionNotification struct {
	CustomerEmail string    `json:"customer_email" validate:"required,email"`
	CustomerName  string    `json:"customer_name" validate:"required"`
	BusinessName  string    `json:"business_name" validate:"required"`
	ProductName   string    `json:"product_name" validate:"required"`
	Amount        int64     `json:"amount" validate:"gte=0"`
	BillingDay    int       `json:"billing_day" validate:"min=1,max=31"`
	EndsAt        time.Time `json:"ends_at,omitempty"`
}

type PaymentNotification struct {
	CustomerEmail string        `json:"customer_email" validate:"required,email"`
	CustomerName  string        `json:"customer_name" validate:"required"`
	BusinessName  string        `json:"business_name" validate:"required"`
	ProductName   string        `json:"product_name" validate:"required"`
	Amount        int64         `json:"amount" validate:"gte=0"`
	Status        PaymentStatus `json:"status" validate:"required,oneof=succeeded failed"`
	PaidAt        time.Time     `json:"paid_at,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
}

// BusinessNotification tells a business about a new subscriber.
type BusinessNotification struct {
	BusinessEmail string `json:"business_email" validate:"required,email"`
	BusinessName  string `json:"business_name" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	ProductName   string `json:"product_name" validate:"required"`
	Amount        int64  `json:"amount" validate:"gte=0"`
	BillingDay    int    `json:"billing_day" validate:"min=1,max=31"`
}

type PaymentFailureNotification struct {
	BusinessEmail string    `json:"business_email" validate:"required,email"`
	BusinessName  string    `json:"business_name" validate:"required"`
	CustomerName  string    `json:"customer_name" validate:"required"`
	CustomerEmail string    `json:"customer_email" validate:"required,email"`
	ProductName   string    `json:"product_name" validate:"required"`
	Amount        int64     `json:"amount" validate:"gte=0"`
	FailureReason string    `json:"failure_reason,omitempty"`
	FailedAt      time.Time `json:"failed_at,omitempty"`
}

type MessageNotification struct {
	RecipientEmail  string `json:"recipient_email" validate:"required,email"`
	RecipientName   string `json:"recipient_name" validate:"required"`
	SenderName      string `json:"sender_name" validate:"required"`
	BusinessName    string `json:"business_name,omitempty"`
	Snippet         string `json:"snippet" validate:"required"`
	ConversationURL string `json:"conversation_url,omitempty" validate:"omitempty,url"`
}

type NewUserSignup struct {
	Email       string    `json:"email" validate:"required,email"`
	Name        string    `json:"name,omitempty"`
	AccountType string    `json:"account_type,omitempty"`
	SignedUpAt  time.Time `json:"signed_up_at,omitempty"`
}

type BusinessActivation struct {
	BusinessName string    `json:"business_name" validate:"required"`
	ContactEmail string    `json:"contact_email" validate:"required,email"`
	Slug         string    `json:"slug,omitempty"`
	ActivatedAt  time.Time `json:"activated_at,omitempty"`
}

// DeliveryRecord is one row of the delivery log. The HTML body is never stored.
type DeliveryRecord struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Recipient  string     `json:"recipient"`
	Subject    string     `json:"subject"`
	Status     Status     `json:"status"`
	ProviderID string     `json:"provider_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}
