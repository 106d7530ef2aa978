package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/monthlyclub/monthly-club/internal/notification"
	"github.com/monthlyclub/monthly-club/pkg/observability"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "mcctl",
	Short:         "Monthly Club notification tooling",
	Long:          `Preview, test-send and publish Monthly Club emails and business events.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mcctl.yaml)")
	flags.String("from", "", "sender address (FROM_EMAIL)")
	flags.String("owner", "", "owner alert address (OWNER_EMAIL)")
	flags.String("app-url", "", "base URL for links (APP_URL)")
	flags.String("log-level", "warn", "log level (LOG_LEVEL)")

	cobra.CheckErr(viper.BindPFlag("from_email", flags.Lookup("from")))
	cobra.CheckErr(viper.BindPFlag("owner_email", flags.Lookup("owner")))
	cobra.CheckErr(viper.BindPFlag("app_url", flags.Lookup("app-url")))
	cobra.CheckErr(viper.BindPFlag("log_level", flags.Lookup("log-level")))

	rootCmd.AddCommand(newSendTestCmd(), newPreviewCmd(), newPublishCmd(), newDeliveriesCmd())
}

// initConfig reads ~/.mcctl.yaml when present. Environment variables with the
// same (upper-cased) names win over the file.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mcctl")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Warning: failed to read %s: %v\n", filepath.Clean(cfgFile), err)
		}
	}
}

func newLogger() (*zap.Logger, error) {
	return observability.NewLogger(observability.LoggerConfig{
		Service:     "mcctl",
		Environment: "cli",
		Level:       viper.GetString("log_level"),
	})
}

// serviceConfig is the facade configuration shared by every command.
func serviceConfig() notification.Config {
	return notification.Config{
		FromEmail:  viper.GetString("from_email"),
		OwnerEmail: viper.GetString("owner_email"),
		AppURL:     viper.GetString("app_url"),
	}
}

func main() {
	Execute()
}
