package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/taharajati/habit-tracker/internal/server"
	"github.com/taharajati/habit-tracker/internal/tracker"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	missedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	nameStyle    = lipgloss.NewStyle().Width(24)
)

// schedule describes when a habit is due, e.g. "every Saturday".
func schedule(h habit.Habit) string {
	switch h.Frequency {
	case habit.Daily:
		return "every day"
	case habit.Weekly:
		if h.WeekDay != nil {
			return "every " + time.Weekday(*h.WeekDay).String()
		}
	case habit.Monthly:
		if h.MonthDay != nil {
			return fmt.Sprintf("monthly on day %d", *h.MonthDay)
		}
	}
	return string(h.Frequency)
}

func statusMark(s habit.TodayStatus) string {
	switch s {
	case habit.StatusCompleted:
		return doneStyle.Render("✓ done")
	case habit.StatusNotCompleted:
		return missedStyle.Render("✗ missed")
	case habit.StatusPending:
		return pendingStyle.Render("• due")
	default:
		return dimStyle.Render("- not due")
	}
}

func renderHabits(w io.Writer, habits []habit.Habit) {
	if len(habits) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No habits yet. Add one with `habits track`."))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(nameStyle.Render("NAME")+"SCHEDULE"))
	for _, h := range habits {
		fmt.Fprintf(w, "%s%s  %s\n", nameStyle.Render(h.Name), schedule(h), dimStyle.Render(h.ID))
	}
}

func renderSnapshot(w io.Writer, s habit.Snapshot) {
	fmt.Fprintf(w, "%s%-10s streak %d (best %d)  %d%% of %d\n",
		nameStyle.Render(s.Name),
		statusMark(s.TodayStatus),
		s.CurrentStreak,
		s.LongestStreak,
		s.CompletionRate.Percentage,
		s.CompletionRate.Expected,
	)
}

func renderDashboard(w io.Writer, dash tracker.Dashboard) {
	if len(dash.Snapshots) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No habits yet. Add one with `habits track`."))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(dash.Aggregate.ReferenceDay.String()))
	for _, s := range dash.Snapshots {
		renderSnapshot(w, s)
	}

	var parts []string
	for _, f := range habit.Frequencies {
		t, ok := dash.Aggregate.ByFrequency[f]
		if !ok || t.DueToday == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d/%d", f, t.CompletedToday, t.DueToday))
	}
	if len(parts) > 0 {
		fmt.Fprintln(w, dimStyle.Render("today: "+strings.Join(parts, ", ")))
	}
}

func moodMark(level int) string {
	style := pendingStyle
	switch {
	case level >= 4:
		style = doneStyle
	case level <= 2:
		style = missedStyle
	}
	return style.Render(fmt.Sprintf("%d/%d", level, habit.MaxMoodLevel))
}

func renderMoodStats(w io.Writer, resp server.MoodStatsResponse) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("mood %s..%s", resp.From, resp.To)))
	if resp.Stats.Count == 0 {
		fmt.Fprintln(w, dimStyle.Render("No moods recorded. Add one with `habits mood`."))
		return
	}
	fmt.Fprintf(w, "average %.2f  lowest %d  highest %d  (%d entries)\n",
		resp.Stats.Average, resp.Stats.Lowest, resp.Stats.Highest, resp.Stats.Count)
}
