package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/notification"
)

func newPreviewCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "preview [kind]",
		Short: "Render sample emails",
		Long: `Render the sample email for one kind to stdout, or every kind into --out
as <kind>.html when no kind is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := notification.NewService(notification.NewLogSender(zap.NewNop()), serviceConfig())

			if len(args) == 1 {
				msg, err := svc.Preview(notification.Kind(args[0]))
				if err != nil {
					return err
				}
				if outDir == "" {
					_, err = fmt.Fprint(cmd.OutOrStdout(), msg.HTML)
					return err
				}
				return writePreview(cmd, outDir, msg)
			}

			if outDir == "" {
				for _, kind := range notification.Kinds {
					fmt.Fprintln(cmd.OutOrStdout(), kind)
				}
				return nil
			}
			for _, kind := range notification.Kinds {
				msg, err := svc.Preview(kind)
				if err != nil {
					return err
				}
				if err := writePreview(cmd, outDir, msg); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory to write HTML files into")
	return cmd
}

func writePreview(cmd *cobra.Command, dir string, msg notification.EmailMessage) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, string(msg.Kind)+".html")
	if err := os.WriteFile(path, []byte(msg.HTML), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, msg.Subject)
	return nil
}
