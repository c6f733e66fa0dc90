package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/taharajati/habit-tracker/internal/server"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a service token signed with jwt_secret",
	Long: `The "token" command issues an HS256 bearer token for --user, accepted by a
server configured with the same jwt_secret. Use it for the nudge worker or
scripts when no OIDC provider is available.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("jwt_secret (HABITS_JWT_SECRET) is not configured")
		}
		tok, err := server.IssueServiceToken(cfg.JWTSecret, tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		cmd.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id the token acts as")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
