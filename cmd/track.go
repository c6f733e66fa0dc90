package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/taharajati/habit-tracker/pkg/habit"
)

var (
	trackFrequency   string
	trackWeekDay     string
	trackMonthDay    int
	trackStart       string
	trackDescription string
)

var trackCmd = &cobra.Command{
	Use:   "track <name>",
	Short: "Start tracking a new habit",
	Long: `The "track" command creates a habit. Weekly habits need --weekday and
monthly habits --monthday; the habit is due from --start (default today).

  habits track "long run" --frequency weekly --weekday saturday
  habits track "pay rent" --frequency monthly --monthday 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := buildHabit(args[0], time.Now().In(cfg.Location()))
		if err != nil {
			return err
		}
		created, err := newClient().CreateHabit(cmd.Context(), h)
		if err != nil {
			return err
		}
		cmd.Printf("Tracking %q (%s) from %s, id %s\n", created.Name, schedule(created), created.StartDate, created.ID)
		return nil
	},
}

func init() {
	trackCmd.Flags().StringVarP(&trackFrequency, "frequency", "f", string(habit.Daily), "daily, weekly or monthly")
	trackCmd.Flags().StringVar(&trackWeekDay, "weekday", "", "day of week for weekly habits (name or 0-6, 0=Sunday)")
	trackCmd.Flags().IntVar(&trackMonthDay, "monthday", 0, "day of month (1-31) for monthly habits")
	trackCmd.Flags().StringVar(&trackStart, "start", "", "first day the habit is due (YYYY-MM-DD)")
	trackCmd.Flags().StringVarP(&trackDescription, "description", "d", "", "optional description")
	rootCmd.AddCommand(trackCmd)
}

// buildHabit assembles and validates a habit from the track flags.
func buildHabit(name string, now time.Time) (habit.Habit, error) {
	h := habit.Habit{
		Name:        strings.TrimSpace(name),
		Description: trackDescription,
		Frequency:   habit.Frequency(strings.ToLower(trackFrequency)),
		StartDate:   civil.DateOf(now),
	}
	if trackStart != "" {
		d, err := civil.ParseDate(trackStart)
		if err != nil {
			return habit.Habit{}, fmt.Errorf("invalid --start: %w", err)
		}
		h.StartDate = d
	}
	if trackWeekDay != "" {
		wd, err := parseWeekday(trackWeekDay)
		if err != nil {
			return habit.Habit{}, err
		}
		h.WeekDay = &wd
	}
	if trackMonthDay != 0 {
		md := trackMonthDay
		h.MonthDay = &md
	}
	if err := h.Validate(); err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

// parseWeekday accepts 0-6 (0=Sunday) or an English day name or prefix of
// at least three letters.
func parseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return n, nil
	}
	if len(s) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.HasPrefix(strings.ToLower(d.String()), s) {
				return int(d), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
