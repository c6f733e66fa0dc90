package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

var (
	moodDate  string
	moodRange string
)

var moodCmd = &cobra.Command{
	Use:   "mood <level> [note...]",
	Short: "Record how you feel today on a scale of 1 to 5",
	Long: `The "mood" command stores one mood entry per day. Recording again on the
same day replaces the earlier entry. Any words after the level become the note.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid level %q: want a number from 1 to 5", args[0])
		}
		var day civil.Date
		if moodDate != "" {
			if day, err = civil.ParseDate(moodDate); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}

		m, err := newClient().RecordMood(cmd.Context(), day, level, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		cmd.Printf("Mood %s on %s\n", moodMark(m.Level), m.Day)
		return nil
	},
}

var moodStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise recorded moods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().MoodStats(cmd.Context(), moodRange)
		if err != nil {
			return err
		}
		renderMoodStats(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	moodCmd.Flags().StringVar(&moodDate, "date", "", "day to record (YYYY-MM-DD, default today)")
	moodStatsCmd.Flags().StringVar(&moodRange, "range", "", "week, month or year (default last 30 days)")
	moodCmd.AddCommand(moodStatsCmd)
	rootCmd.AddCommand(moodCmd)
}
