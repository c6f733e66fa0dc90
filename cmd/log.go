package cmd

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

var (
	logDate string
	logUndo bool
)

var logCmd = &cobra.Command{
	Use:   "log <habit-id>",
	Short: "Record a habit as done for today or a given day",
	Long: `The "log" command marks a habit completed on a due day. Use --undo to
record it as not completed instead. Days the habit is not due on are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day := civil.DateOf(time.Now().In(cfg.Location()))
		if logDate != "" {
			d, err := civil.ParseDate(logDate)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			day = d
		}

		snap, err := newClient().ToggleCompletion(cmd.Context(), args[0], day, !logUndo)
		if err != nil {
			return err
		}
		renderSnapshot(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	logCmd.Flags().StringVar(&logDate, "date", "", "day to record (YYYY-MM-DD, default today)")
	logCmd.Flags().BoolVar(&logUndo, "undo", false, "record the day as not completed")
	rootCmd.AddCommand(logCmd)
}
