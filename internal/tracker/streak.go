package tracker

import (
	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/pkg/habit"
)

// Log maps a logical day to the recorded outcome for a single habit.
// Absence of a day means nothing was recorded.
type Log map[civil.Date]bool

// IndexProgress groups entries by habit ID.
func IndexProgress(entries []habit.ProgressEntry) map[string]Log {
	out := make(map[string]Log)
	for _, e := range entries {
		l, ok := out[e.HabitID]
		if !ok {
			l = make(Log)
			out[e.HabitID] = l
		}
		l[e.Day] = e.Completed
	}
	return out
}

// CurrentStreak counts consecutive completed due dates scanning backward
// from ref. A due date before ref with no entry ends the streak; ref itself
// with no entry is pending and is skipped.
func CurrentStreak(h habit.Habit, log Log, ref civil.Date) int {
	if !active(h) {
		return 0
	}

	streak := 0
	for d := range h.DueDatesBackward(ref, h.StartDate) {
		done, recorded := log[d]
		switch {
		case recorded && done:
			streak++
		case !recorded && d == ref:
			continue
		default:
			return streak
		}
	}
	return streak
}

// LongestStreak returns the longest run of consecutive completed due dates
// between the start date and ref. A pending ref does not split a run.
func LongestStreak(h habit.Habit, log Log, ref civil.Date) int {
	if !active(h) {
		return 0
	}

	longest, run := 0, 0
	for d := range h.DueDatesBackward(ref, h.StartDate) {
		done, recorded := log[d]
		switch {
		case recorded && done:
			run++
			longest = max(longest, run)
		case !recorded && d == ref:
			continue
		default:
			run = 0
		}
	}
	return longest
}

// active reports whether the habit can have due dates at all. Malformed
// habits are treated as never due.
func active(h habit.Habit) bool {
	if !h.StartDate.IsValid() {
		return false
	}
	_, ok := h.PrevDue(h.StartDate)
	return ok
}
