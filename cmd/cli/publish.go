package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/monthlyclub/monthly-club/internal/notification"
	"github.com/monthlyclub/monthly-club/pkg/messaging"
)

func newPublishCmd() *cobra.Command {
	var (
		data    string
		brokers []string
		topic   string
	)

	cmd := &cobra.Command{
		Use:   "publish <event-type>",
		Short: "Publish a business event to Kafka",
		Long: `Publish a business event for the notifier to pick up. The payload is read
from --data, or from stdin when --data is "-".`,
		Example: `  mcctl publish welcome.requested --data '{"email":"sam@example.com","name":"Sam"}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(brokers) == 0 {
				brokers = splitList(viper.GetString("kafka_brokers"))
			}
			if len(brokers) == 0 {
				return fmt.Errorf("--brokers or KAFKA_BROKERS is required")
			}

			payload, err := readPayload(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}

			event, err := notification.NewEvent(notification.EventType(args[0]), payload)
			if err != nil {
				return err
			}
			body, err := json.Marshal(event)
			if err != nil {
				return err
			}

			producer := messaging.NewKafkaProducer(brokers, topic)
			defer producer.Close()
			if err := producer.Publish(cmd.Context(), event.ID, body); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Published %s (%s) to %s\n", event.ID, event.Type, topic)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "{}", `JSON payload, or "-" for stdin`)
	cmd.Flags().StringSliceVar(&brokers, "brokers", nil, "Kafka brokers (defaults to KAFKA_BROKERS)")
	cmd.Flags().StringVar(&topic, "topic", "monthlyclub.events", "Kafka topic")
	return cmd
}

func readPayload(stdin io.Reader, data string) (json.RawMessage, error) {
	raw := []byte(data)
	if data == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
