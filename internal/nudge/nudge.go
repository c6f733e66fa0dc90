// Package nudge reminds users about streaks that will break if today's due
// habits are left unrecorded.
package nudge

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/internal/logger"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

// AtRisk is one habit whose current streak ends unless it is completed today.
type AtRisk struct {
	HabitID string
	Name    string
	Streak  int
}

// Message is what a Notifier delivers.
type Message struct {
	Day       civil.Date
	HoursLeft int
	Habits    []AtRisk
}

type Notifier interface {
	SendNudge(ctx context.Context, m Message) error
}

// StreaksAtRisk returns the habits that are due on ref, still pending, and
// carrying a streak from earlier due dates.
func StreaksAtRisk(ctx context.Context, q Querier, ref civil.Date) ([]AtRisk, error) {
	dash, err := q.GetSnapshots(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshots: %w", err)
	}
	var out []AtRisk
	for _, s := range dash.Snapshots {
		if s.TodayStatus != habit.StatusPending || s.CurrentStreak == 0 {
			continue
		}
		out = append(out, AtRisk{HabitID: s.HabitID, Name: s.Name, Streak: s.CurrentStreak})
	}
	return out, nil
}

// Run checks the day containing now in loc and sends one nudge listing every
// streak at risk. It reports how many habits were included; nothing is sent
// when none are at risk.
func Run(ctx context.Context, q Querier, n Notifier, now time.Time, loc *time.Location) (int, error) {
	local := now.In(loc)
	ref := civil.DateOf(local)

	log := logger.With("day", ref)

	atRisk, err := StreaksAtRisk(ctx, q, ref)
	if err != nil {
		return 0, err
	}
	if len(atRisk) == 0 {
		log.InfoContext(ctx, "No streaks at risk")
		return 0, nil
	}

	m := Message{Day: ref, HoursLeft: hoursLeft(local), Habits: atRisk}
	if err := n.SendNudge(ctx, m); err != nil {
		return 0, fmt.Errorf("send nudge: %w", err)
	}
	log.InfoContext(ctx, "Nudge sent", "habits", len(atRisk), "hours_left", m.HoursLeft)
	return len(atRisk), nil
}

// hoursLeft is the number of whole hours until the end of t's day.
func hoursLeft(t time.Time) int {
	next := civil.DateOf(t).AddDays(1).In(t.Location())
	return int(next.Sub(t) / time.Hour)
}
