package cmd

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

var todayDate string

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's status, streaks and completion rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		var ref civil.Date
		if todayDate != "" {
			d, err := civil.ParseDate(todayDate)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			ref = d
		}
		dash, err := newClient().GetSnapshots(cmd.Context(), ref)
		if err != nil {
			return err
		}
		renderDashboard(cmd.OutOrStdout(), dash)
		return nil
	},
}

func init() {
	todayCmd.Flags().StringVar(&todayDate, "date", "", "show the dashboard as of this day (YYYY-MM-DD)")
	rootCmd.AddCommand(todayCmd)
}
