package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taharajati/habit-tracker/internal/credentials"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API key or token for the configured server",
	Long: `The "login" command saves a bearer token in the OS keyring. Create an API
key in the browser (POST /auth/api_keys) or copy the token from /auth/token,
then run:

  habits login --token hab_live_...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tok := strings.TrimSpace(loginToken)
		if tok == "" {
			return errors.New("--token is required")
		}
		if err := credentials.SaveToken(cfg.APIBaseURL, tok); err != nil {
			return err
		}
		cmd.Printf("Saved token for %s\n", cfg.APIBaseURL)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token for the configured server",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := credentials.DeleteToken(cfg.APIBaseURL)
		if errors.Is(err, credentials.ErrNotFound) {
			cmd.Printf("No token stored for %s\n", cfg.APIBaseURL)
			return nil
		}
		if err != nil {
			return err
		}
		cmd.Printf("Removed token for %s\n", cfg.APIBaseURL)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "API key or bearer token")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
