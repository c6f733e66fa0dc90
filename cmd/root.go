package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taharajati/habit-tracker/internal/apiclient"
	"github.com/taharajati/habit-tracker/internal/config"
	"github.com/taharajati/habit-tracker/internal/credentials"
	"github.com/taharajati/habit-tracker/internal/logger"
)

var (
	cfg       *config.Config
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "habits",
	Short: "Track recurring habits, streaks and completion rates",
	Long: `
	Habits tracks daily, weekly and monthly habits. The server keeps your habits
	and progress; the CLI records completions and shows streaks and completion
	rates as of today.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if serverURL != "" {
			c.APIBaseURL = serverURL
		}
		cfg = c
		return logger.Setup(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newClient talks to the configured server with the token from
// HABITS_AUTH_TOKEN or the keyring.
func newClient() *apiclient.Client {
	return apiclient.New(cfg.APIBaseURL, credentials.Resolve(cfg.APIBaseURL, cfg.AuthToken))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (overrides api_base_url)")
}
