package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/taharajati/habit-tracker/internal/logger"
	"github.com/taharajati/habit-tracker/internal/nudge"
	"github.com/taharajati/habit-tracker/internal/nudge/resend"
)

var nudgeSchedule bool

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Email a reminder for streaks that end unless recorded today",
	Long: `The "nudge" command checks today's dashboard and emails the habits that
are due, not yet recorded, and carrying a streak. With --schedule it keeps
running and checks on the nudge.schedule cron expression.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Nudge.ResendAPIKey == "" {
			return errors.New("RESEND_API_KEY is not set")
		}
		if cfg.Nudge.Email == "" {
			return errors.New("HABITS_NUDGE_EMAIL is not set")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		q := newClient()
		n := &resend.ResendNotifier{
			ApiKey: cfg.Nudge.ResendAPIKey,
			Email:  cfg.Nudge.Email,
			From:   cfg.Nudge.From,
		}
		if !nudgeSchedule {
			count, err := nudge.Run(cmd.Context(), q, n, time.Now(), cfg.Location())
			if err != nil {
				return err
			}
			cmd.Printf("%d streak(s) at risk\n", count)
			return nil
		}
		return scheduleNudges(cmd.Context(), q, n)
	},
}

func scheduleNudges(ctx context.Context, q nudge.Querier, n nudge.Notifier) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New(cron.WithLocation(cfg.Location()))
	_, err := c.AddFunc(cfg.Nudge.Schedule, func() {
		if _, err := nudge.Run(ctx, q, n, time.Now(), cfg.Location()); err != nil {
			logger.ErrorContext(ctx, "Nudge failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	logger.Info("Nudge scheduler started", "schedule", cfg.Nudge.Schedule, "timezone", cfg.Timezone)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func init() {
	nudgeCmd.Flags().BoolVar(&nudgeSchedule, "schedule", false, "run continuously on the configured cron schedule")
	rootCmd.AddCommand(nudgeCmd)
}
