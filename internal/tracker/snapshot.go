package tracker

import (
	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/pkg/habit"
)

const DefaultLookbackDays = 30

// BuildSnapshots derives the per-habit view of every habit as of ref.
// It does no I/O; progress must already hold the user's entries.
func BuildSnapshots(habits []habit.Habit, progress []habit.ProgressEntry, ref civil.Date, lookbackDays int) []habit.Snapshot {
	logs := IndexProgress(progress)
	out := make([]habit.Snapshot, 0, len(habits))
	for _, h := range habits {
		out = append(out, BuildSnapshot(h, logs[h.ID], ref, lookbackDays))
	}
	return out
}

func BuildSnapshot(h habit.Habit, log Log, ref civil.Date, lookbackDays int) habit.Snapshot {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	windowStart := ref.AddDays(-lookbackDays)

	s := habit.Snapshot{
		HabitID:        h.ID,
		Name:           h.Name,
		Frequency:      h.Frequency,
		ReferenceDay:   ref,
		TodayStatus:    todayStatus(h, log, ref),
		CurrentStreak:  CurrentStreak(h, log, ref),
		LongestStreak:  LongestStreak(h, log, ref),
		CompletionRate: CompletionRate(h, log, ref),
		RecentProgress: make(map[string]bool),
	}

	for d, done := range log {
		if d.After(ref) {
			continue
		}
		s.TotalDays++
		if done {
			s.TotalCompleted++
		}
		if !d.Before(windowStart) {
			s.RecentProgress[d.String()] = done
		}
	}
	return s
}

// todayStatus ignores entries on days the habit is not due on, including
// days before its start date.
func todayStatus(h habit.Habit, log Log, ref civil.Date) habit.TodayStatus {
	if !active(h) || ref.Before(h.StartDate) || !h.IsDue(ref) {
		return habit.StatusNotApplicable
	}
	done, ok := log[ref]
	switch {
	case !ok:
		return habit.StatusPending
	case done:
		return habit.StatusCompleted
	}
	return habit.StatusNotCompleted
}

// Aggregate totals the snapshots per frequency for the dashboard summary.
func Aggregate(ref civil.Date, snapshots []habit.Snapshot) habit.Aggregate {
	agg := habit.Aggregate{
		ReferenceDay: ref,
		ByFrequency:  make(map[habit.Frequency]habit.FrequencyTotals, len(habit.Frequencies)),
	}
	for _, f := range habit.Frequencies {
		agg.ByFrequency[f] = habit.FrequencyTotals{}
	}

	for _, s := range snapshots {
		t := agg.ByFrequency[s.Frequency]
		t.Habits++
		agg.Total.Habits++
		if s.TodayStatus != habit.StatusNotApplicable {
			t.DueToday++
			agg.Total.DueToday++
		}
		if s.TodayStatus == habit.StatusCompleted {
			t.CompletedToday++
			agg.Total.CompletedToday++
		}
		agg.ByFrequency[s.Frequency] = t
	}
	return agg
}
