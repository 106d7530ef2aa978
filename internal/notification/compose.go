package notification

import (
	"fmt"
	"time"
)

const (
	longDate     = "2 January 2006"
	longDateTime = "2 January 2006 15:04 MST"
)

// frame carries the links shared by every styled template.
type frame struct {
	AppURL       string
	DashboardURL string
}

func (s *Service) frame(path string) frame {
	return frame{AppURL: s.cfg.AppURL, DashboardURL: s.cfg.AppURL + path}
}

func formatDate(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// orNow substitutes the service clock for a missing event timestamp.
func (s *Service) orNow(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func (s *Service) ComposeWelcomeEmail(n WelcomeNotification) (EmailMessage, error) {
	if err := validateRecord(KindWelcome, n); err != nil {
		return EmailMessage{}, err
	}

	html, err := renderStyled(KindWelcome, "Welcome to Monthly Club", struct {
		frame
		Name       string
		IsBusiness bool
	}{s.frame("/dashboard"), n.Name, n.AccountType == "business"})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      n.Email,
		Subject: "Welcome to Monthly Club!",
		HTML:    html,
		Kind:    KindWelcome,
	}, nil
}

func (s *Service) ComposeSubscriptionConfirmation(n SubscriptionNotification) (EmailMessage, error) {
	if err := validateRecord(KindSubscriptionConfirmed, n); err != nil {
		return EmailMessage{}, err
	}

	html, err := renderStyled(KindSubscriptionConfirmed, "Subscription confirmed", struct {
		frame
		CustomerName, BusinessName, ProductName string
		Amount, BillingDay, NextPayment         string
	}{
		frame:        s.frame("/dashboard/subscriptions"),
		CustomerName: n.CustomerName,
		BusinessName: n.BusinessName,
		ProductName:  n.ProductName,
		Amount:       FormatAmount(n.Amount),
		BillingDay:   Ordinal(n.BillingDay),
		NextPayment:  FormatNextPaymentDate(n.BillingDay, s.now()),
	})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      n.CustomerEmail,
		Subject: fmt.Sprintf("Your subscription to %s is confirmed", n.ProductName),
		HTML:    html,
		Kind:    KindSubscriptionConfirmed,
	}, nil
}

func (s *Service) ComposePaymentNotification(n PaymentNotification) (EmailMessage, error) {
	kind := KindPaymentSucceeded
	if n.Status == PaymentFailed {
		kind = KindPaymentFailed
	}
	if err := validateRecord(kind, n); err != nil {
		return EmailMessage{}, err
	}

	failed := n.Status == PaymentFailed
	title := "Payment received"
	subject := fmt.Sprintf("Payment received: %s to %s", FormatAmount(n.Amount), n.BusinessName)
	if failed {
		title = "Payment failed"
		subject = fmt.Sprintf("Payment failed for %s", n.ProductName)
	}

	html, err := renderStyled(kind, title, struct {
		frame
		Failed                                  bool
		CustomerName, BusinessName, ProductName string
		Amount, PaidAt, FailureReason           string
	}{
		frame:         s.frame("/dashboard/payments"),
		Failed:        failed,
		CustomerName:  n.CustomerName,
		BusinessName:  n.BusinessName,
		ProductName:   n.ProductName,
		Amount:        FormatAmount(n.Amount),
		PaidAt:        formatDate(n.PaidAt, longDate),
		FailureReason: n.FailureReason,
	})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      n.CustomerEmail,
		Subject: subject,
		HTML:    html,
		Kind:    kind,
	}, nil
}

func (s *Service) ComposeSubscriptionCancelledEmail(n SubscriptionNotification) (EmailMessage, error) {
	if err := validateRecord(KindSubscriptionCancelled, n); err != nil {
		return EmailMessage{}, err
	}

	html, err := renderStyled(KindSubscriptionCancelled, "Subscription cancelled", struct {
		frame
		CustomerName, BusinessName, ProductName, EndsAt string
	}{
		frame:        s.frame("/explore"),
		CustomerName: n.CustomerName,
		BusinessName: n.BusinessName,
		ProductName:  n.ProductName,
		EndsAt:       formatDate(n.EndsAt, longDate),
	})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      n.CustomerEmail,
		Subject: fmt.Sprintf("Your subscription to %s has been cancelled", n.ProductName),
		HTML:    html,
		Kind:    KindSubscriptionCancelled,
	}, nil
}

func (s *Service) ComposeMessageNotification(n MessageNotification) (EmailMessage, error) {
	if err := validateRecord(KindNewMessage, n); err != nil {
		return EmailMessage{}, err
	}

	conversationURL := n.ConversationURL
	if conversationURL == "" {
		conversationURL = s.cfg.AppURL + "/messages"
	}

	html, err := renderStyled(KindNewMessage, "New message", struct {
		frame
		RecipientName, SenderName, BusinessName string
		Snippet, ConversationURL                string
	}{
		frame:           s.frame("/messages"),
		RecipientName:   n.RecipientName,
		SenderName:      n.SenderName,
		BusinessName:    n.BusinessName,
		Snippet:         n.Snippet,
		ConversationURL: conversationURL,
	})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      n.RecipientEmail,
		Subject: fmt.Sprintf("New message from %s", n.SenderName),
		HTML:    html,
		Kind:    KindNewMessage,
	}, nil
}

func (s *Service) ComposeNewSubscriberNotification(n BusinessNotification) (EmailMessage, error) {
	if err := validateRecord(KindNewSubscriber, n); err != nil {
		return EmailMessage{}, err
	}

	html, err := renderStyled(KindNewSubscriber, "New subscriber", struct {
		frame
		BusinessName, CustomerName, CustomerEmail, ProductName string
		Amount, BillingDay, NextPayment                        string
	}{
		frame:         s.frame("/business/subscribers"),
		BusinessName:  n.BusinessName,
		CustomerName:  n.CustomerName,
		CustomerEmail: n.CustomerEmail,
		ProductName:   n.ProductName,
		Amount:        FormatAmount(n.Amount),
		BillingDay:    Ordinal(n.BillingDay),
		NextPayment:   FormatNextPaymentDate(n.BillingDay, s.now()),
	})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      n.BusinessEmail,
		Subject: fmt.Sprintf("New subscriber: %s joined %s", n.CustomerName, n.ProductName),
		HTML:    html,
		Kind:    KindNewSubscriber,
	}, nil
}

func (s *Service) ComposePaymentFailureNotification(n PaymentFailureNotification) (EmailMessage, error) {
	if err := validateRecord(KindBusinessPaymentFailed, n); err != nil {
		return EmailMessage{}, err
	}

	html, err := renderStyled(KindBusinessPaymentFailed, "Payment failed", struct {
		frame
		BusinessName, CustomerName, CustomerEmail, ProductName string
		Amount, FailedAt, FailureReason                        string
	}{
		frame:         s.frame("/business/subscribers"),
		BusinessName:  n.BusinessName,
		CustomerName:  n.CustomerName,
		CustomerEmail: n.CustomerEmail,
		ProductName:   n.ProductName,
		Amount:        FormatAmount(n.Amount),
		FailedAt:      formatDate(n.FailedAt, longDate),
		FailureReason: n.FailureReason,
	})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      n.BusinessEmail,
		Subject: fmt.Sprintf("Payment failed for %s", n.CustomerName),
		HTML:    html,
		Kind:    KindBusinessPaymentFailed,
	}, nil
}

func (s *Service) ComposeNewUserSignupNotification(n NewUserSignup) (EmailMessage, error) {
	if err := validateRecord(KindOwnerNewSignup, n); err != nil {
		return EmailMessage{}, err
	}

	html, err := renderOwner(KindOwnerNewSignup, struct {
		Email, Name, AccountType, SignedUpAt string
	}{n.Email, n.Name, n.AccountType, s.orNow(n.SignedUpAt).Format(longDateTime)})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      s.cfg.OwnerEmail,
		Subject: fmt.Sprintf("New user signup: %s", n.Email),
		HTML:    html,
		Kind:    KindOwnerNewSignup,
	}, nil
}

func (s *Service) ComposeBusinessActivatedNotification(n BusinessActivation) (EmailMessage, error) {
	if err := validateRecord(KindOwnerBusinessActivated, n); err != nil {
		return EmailMessage{}, err
	}

	pageURL := ""
	if n.Slug != "" {
		pageURL = s.cfg.AppURL + "/" + n.Slug
	}

	html, err := renderOwner(KindOwnerBusinessActivated, struct {
		BusinessName, ContactEmail, PageURL, ActivatedAt string
	}{n.BusinessName, n.ContactEmail, pageURL, s.orNow(n.ActivatedAt).Format(longDateTime)})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      s.cfg.OwnerEmail,
		Subject: fmt.Sprintf("Business activated: %s", n.BusinessName),
		HTML:    html,
		Kind:    KindOwnerBusinessActivated,
	}, nil
}

func (s *Service) ComposeCronJobReport(r CronJobReport) (EmailMessage, error) {
	if err := validateRecord(KindOwnerCronReport, r); err != nil {
		return EmailMessage{}, err
	}

	duration := ""
	if r.Duration > 0 {
		duration = r.Duration.Round(time.Millisecond).String()
	}

	html, err := renderOwner(KindOwnerCronReport, struct {
		RunAt, Duration                       string
		Processed, Succeeded, Failed, Skipped int
		TotalAmount, TotalFees                string
		SkipReasons, Errors                   []string
	}{
		RunAt:       s.orNow(r.RunAt).Format(longDateTime),
		Duration:    duration,
		Processed:   r.Processed,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		Skipped:     r.Skipped,
		TotalAmount: FormatAmount(r.TotalAmount),
		TotalFees:   FormatAmount(r.TotalFees),
		SkipReasons: r.SkipReasons,
		Errors:      r.Errors,
	})
	if err != nil {
		return EmailMessage{}, err
	}

	return EmailMessage{
		To:      s.cfg.OwnerEmail,
		Subject: fmt.Sprintf("Cron job report: %d processed, %d succeeded, %d failed", r.Processed, r.Succeeded, r.Failed),
		HTML:    html,
		Kind:    KindOwnerCronReport,
	}, nil
}
