package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/notification"
	"github.com/monthlyclub/monthly-club/pkg/database"
)

func newDeliveriesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "deliveries <recipient>",
		Short: "List recent emails sent to a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := viper.GetString("db_dsn")
			if dsn == "" {
				return fmt.Errorf("DB_DSN is required")
			}

			db, err := database.Connect(cmd.Context(), dsn, zap.NewNop())
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := notification.NewRepository(db).ListByRecipient(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No deliveries for %s\n", args[0])
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tKIND\tSTATUS\tPROVIDER ID\tSUBJECT")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.Kind, r.Status, r.ProviderID, r.Subject)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rows")
	return cmd
}
