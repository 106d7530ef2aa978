package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/pkg/observability"
)

const (
	DefaultFromEmail  = "Monthly Club <notifications@monthlyclub.co.uk>"
	DefaultOwnerEmail = "owner@monthlyclub.co.uk"
	DefaultAppURL     = "https://monthlyclub.co.uk"
)

// Config is the facade's routing configuration.
type Config struct {
	// FromEmail is used for every message that does not set its own From.
	FromEmail string
	// OwnerEmail receives operator alerts.
	OwnerEmail string
	// AppURL is the base for links in emails.
	AppURL string
	// RedirectTo, when set, delivers every message to this address instead of
	// the real recipient. Development only.
	RedirectTo string
}

func (c Config) withDefaults() Config {
	if c.FromEmail == "" {
		c.FromEmail = DefaultFromEmail
	}
	if c.OwnerEmail == "" {
		c.OwnerEmail = DefaultOwnerEmail
	}
	if c.AppURL == "" {
		c.AppURL = DefaultAppURL
	}
	c.AppURL = strings.TrimRight(c.AppURL, "/")
	return c
}

// Service is the notification dispatch facade: one method per business event,
// each rendering a template and handing the result to SendEmail.
type Service struct {
	sender  Sender
	cfg     Config
	logger  *zap.Logger
	retry   RetryPolicy
	log     DeliveryLog
	metrics *Metrics
	now     func() time.Time
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetryPolicy installs the caller's retry policy. Without one, failed sends
// are returned immediately.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Service) {
		if p != nil {
			s.retry = p
		}
	}
}

func WithDeliveryLog(log DeliveryLog) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for payment dates and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(sender Sender, cfg Config, opts ...Option) *Service {
	s := &Service{
		sender: sender,
		cfg:    cfg.withDefaults(),
		logger: zap.NewNop(),
		retry:  NoRetry{},
		now:    time.Now,
		tracer: otel.Tracer("github.com/monthlyclub/monthly-club/internal/notification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration, defaults applied.
func (s *Service) Config() Config {
	return s.cfg
}

// SendEmail is the only path to the Sender. Provider failures are logged and
// returned as *DeliveryError; nothing is swallowed.
func (s *Service) SendEmail(ctx context.Context, msg EmailMessage) (SendResult, error) {
	if msg.Kind == "" {
		msg.Kind = KindCustom
	}
	if msg.From == "" {
		msg.From = s.cfg.FromEmail
	}
	if err := validateRecord(msg.Kind, msg); err != nil {
		s.logger.Warn("refusing to send malformed email", zap.Error(err), zap.String("kind", string(msg.Kind)))
		return SendResult{}, err
	}
	if s.cfg.RedirectTo != "" {
		msg.Subject = fmt.Sprintf("[DEV-REDIRECT] %s (Original: %s)", msg.Subject, msg.To)
		msg.To = s.cfg.RedirectTo
	}

	ctx, span := s.tracer.Start(ctx, "notification.SendEmail", trace.WithAttributes(
		attribute.String("email.kind", string(msg.Kind)),
		attribute.String("email.sender", s.sender.Name()),
	))
	defer span.End()
	logger := observability.WithContext(ctx, s.logger)

	rec := s.recordPending(ctx, msg)

	var result SendResult
	start := time.Now()
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		r, err := s.sender.Send(ctx, msg)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.record(msg.Kind, StatusFailed, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		logger.Error("failed to send email",
			zap.Error(err),
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("kind", string(msg.Kind)),
			zap.String("sender", s.sender.Name()))
		s.recordOutcome(ctx, rec, StatusFailed, "", err.Error())
		return SendResult{}, &DeliveryError{Recipient: msg.To, Subject: msg.Subject, Err: err}
	}

	s.metrics.record(msg.Kind, StatusSent, elapsed)
	span.SetAttributes(attribute.String("email.id", result.ID))
	logger.Info("email sent",
		zap.String("email_id", result.ID),
		zap.String("to", msg.To),
		zap.String("kind", string(msg.Kind)),
		zap.Duration("elapsed", elapsed))
	s.recordOutcome(ctx, rec, StatusSent, result.ID, "")
	return result, nil
}

// recordPending writes the delivery log row. Persistence problems are logged
// and never block the send.
func (s *Service) recordPending(ctx context.Context, msg EmailMessage) *DeliveryRecord {
	if s.log == nil {
		return nil
	}
	rec := &DeliveryRecord{Kind: msg.Kind, Recipient: msg.To, Subject: msg.Subject}
	if err := s.log.Create(ctx, rec); err != nil {
		s.logger.Warn("failed to persist delivery record", zap.Error(err), zap.String("to", msg.To))
		return nil
	}
	return rec
}

func (s *Service) recordOutcome(ctx context.Context, rec *DeliveryRecord, status Status, providerID, errMsg string) {
	if s.log == nil || rec == nil {
		return
	}
	if err := s.log.UpdateStatus(ctx, rec.ID, status, providerID, errMsg); err != nil {
		s.logger.Warn("failed to update delivery record", zap.Error(err), zap.String("id", rec.ID))
	}
}

func (s *Service) compose(msg EmailMessage, err error) func(context.Context) (SendResult, error) {
	return func(ctx context.Context) (SendResult, error) {
		if err != nil {
			s.logger.Warn("refusing to send notification", zap.Error(err))
			return SendResult{}, err
		}
		return s.SendEmail(ctx, msg)
	}
}

// Owner alerts.

func (s *Service) SendNewUserSignupNotification(ctx context.Context, n NewUserSignup) (SendResult, error) {
	return s.compose(s.ComposeNewUserSignupNotification(n))(ctx)
}

func (s *Service) SendBusinessActivatedNotification(ctx context.Context, n BusinessActivation) (SendResult, error) {
	return s.compose(s.ComposeBusinessActivatedNotification(n))(ctx)
}

func (s *Service) SendCronJobReport(ctx context.Context, r CronJobReport) (SendResult, error) {
	return s.compose(s.ComposeCronJobReport(r))(ctx)
}

// End-user lifecycle.

func (s *Service) SendWelcomeEmail(ctx context.Context, n WelcomeNotification) (SendResult, error) {
	return s.compose(s.ComposeWelcomeEmail(n))(ctx)
}

func (s *Service) SendSubscriptionConfirmation(ctx context.Context, n SubscriptionNotification) (SendResult, error) {
	return s.compose(s.ComposeSubscriptionConfirmation(n))(ctx)
}

func (s *Service) SendPaymentNotification(ctx context.Context, n PaymentNotification) (SendResult, error) {
	return s.compose(s.ComposePaymentNotification(n))(ctx)
}

func (s *Service) SendSubscriptionCancelledEmail(ctx context.Context, n SubscriptionNotification) (SendResult, error) {
	return s.compose(s.ComposeSubscriptionCancelledEmail(n))(ctx)
}

func (s *Service) SendMessageNotification(ctx context.Context, n MessageNotification) (SendResult, error) {
	return s.compose(s.ComposeMessageNotification(n))(ctx)
}

// Business-facing.

func (s *Service) SendNewSubscriberNotification(ctx context.Context, n BusinessNotification) (SendResult, error) {
	return s.compose(s.ComposeNewSubscriberNotification(n))(ctx)
}

func (s *Service) SendPaymentFailureNotification(ctx context.Context, n PaymentFailureNotification) (SendResult, error) {
	return s.compose(s.ComposePaymentFailureNotification(n))(ctx)
}
