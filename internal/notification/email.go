package notification

import (
	"context"
	"fmt"
	"sort"

	"github.com/resend/resend-go/v2"
)

// Sender hands a rendered message to an outbound transport.
type Sender interface {
	Send(ctx context.Context, msg EmailMessage) (SendResult, error)
	Name() string
}

// ResendSender delivers email through the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a sender authenticated with apiKey.
func NewResendSender(apiKey string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: resend API key is required", ErrInvalidConfig)
	}
	return &ResendSender{client: resend.NewClient(apiKey)}, nil
}

// NewResendSenderWithClient wraps an already configured client.
func NewResendSenderWithClient(client *resend.Client) *ResendSender {
	return &ResendSender{client: client}
}

func (s *ResendSender) Name() string { return "resend" }

// Send performs exactly one API call; retries are the caller's decision.
func (s *ResendSender) Send(ctx context.Context, msg EmailMessage) (SendResult, error) {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Tags:    resendTags(msg),
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return SendResult{ID: sent.Id}, nil
}

// resendTags converts message tags into Resend tags, sorted for stable requests.
func resendTags(msg EmailMessage) []resend.Tag {
	tags := make([]resend.Tag, 0, len(msg.Tags)+1)
	if msg.Kind != "" {
		tags = append(tags, resend.Tag{Name: "category", Value: string(msg.Kind)})
	}

	names := make([]string, 0, len(msg.Tags))
	for name := range msg.Tags {
		if name != "category" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		tags = append(tags, resend.Tag{Name: name, Value: msg.Tags[name]})
	}
	return tags
}
