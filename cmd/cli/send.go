package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/notification"
)

func newSendTestCmd() *cobra.Command {
	var (
		to       string
		kind     string
		provider string
		dir      string
	)

	cmd := &cobra.Command{
		Use:   "send-test",
		Short: "Send a test email",
		Long: `Send a test email through the configured provider. With --kind set to a
template kind the sample message for that template is sent to --to instead of
its usual recipient.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				to = viper.GetString("contact_email")
			}
			if to == "" {
				return fmt.Errorf("--to or CONTACT_EMAIL is required")
			}

			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			sender, err := cliSender(provider, dir, logger)
			if err != nil {
				return err
			}
			svc := notification.NewService(sender, serviceConfig(), notification.WithLogger(logger))

			msg, err := testMessage(svc, notification.Kind(kind))
			if err != nil {
				return err
			}
			msg.To = to

			result, err := svc.SendEmail(cmd.Context(), msg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Email sent via %s. ID: %s\n", sender.Name(), result.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient (defaults to CONTACT_EMAIL)")
	cmd.Flags().StringVar(&kind, "kind", string(notification.KindTest), "template kind to send")
	cmd.Flags().StringVar(&provider, "provider", "resend", "resend, dev or log")
	cmd.Flags().StringVar(&dir, "dir", "./tmp/emails", "output directory for the dev provider")
	return cmd
}

func testMessage(svc *notification.Service, kind notification.Kind) (notification.EmailMessage, error) {
	if kind != notification.KindTest {
		return svc.Preview(kind)
	}
	html := notification.RenderDocument(
		"<h1>Test email</h1><p>This is a test email to verify the Monthly Club email integration.</p>",
		"Test email",
	)
	return notification.EmailMessage{
		Subject: "Test email from Monthly Club",
		HTML:    html,
		Kind:    notification.KindTest,
	}, nil
}

func cliSender(provider, dir string, logger *zap.Logger) (notification.Sender, error) {
	switch provider {
	case "resend":
		return notification.NewResendSender(viper.GetString("resend_api_key"))
	case "dev":
		return notification.NewDevSender(dir)
	case "log":
		return notification.NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", notification.ErrUnknownSender, provider)
	}
}
