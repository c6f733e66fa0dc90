package tracker

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/pkg/habit"
)

// PeriodStart returns the first day of a named reporting window ending at
// ref. An empty period means the last 30 days.
func PeriodStart(period string, ref civil.Date) (civil.Date, error) {
	t := ref.In(time.UTC)
	switch period {
	case "":
		return ref.AddDays(-DefaultLookbackDays), nil
	case "week":
		return ref.AddDays(-7), nil
	case "month":
		return civil.DateOf(t.AddDate(0, -1, 0)), nil
	case "year":
		return civil.DateOf(t.AddDate(-1, 0, 0)), nil
	}
	return civil.Date{}, fmt.Errorf("%w: unknown period %q", habit.ErrInvalidOperation, period)
}

// DailyTotals counts, for each day in [from, to], how many habits were due
// and how many were completed.
func DailyTotals(habits []habit.Habit, progress []habit.ProgressEntry, from, to civil.Date) []habit.DayTotals {
	if to.Before(from) {
		return nil
	}
	logs := IndexProgress(progress)

	out := make([]habit.DayTotals, 0, to.DaysSince(from)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		dt := habit.DayTotals{Day: d}
		for _, h := range habits {
			if !active(h) || d.Before(h.StartDate) || !h.IsDue(d) {
				continue
			}
			dt.Due++
			if logs[h.ID][d] {
				dt.Completed++
			}
		}
		out = append(out, dt)
	}
	return out
}
