package tracker

import (
	"math"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/pkg/habit"
)

// CompletionRate compares the due dates in [StartDate, ref] with the
// completed entries recorded on those due dates. Entries on days that are
// not due, which an edited recurrence rule can leave behind, are not counted.
func CompletionRate(h habit.Habit, log Log, ref civil.Date) habit.CompletionRate {
	var r habit.CompletionRate
	if !active(h) || ref.Before(h.StartDate) {
		return r
	}

	r.Expected = h.CountDue(h.StartDate, ref)
	for d, done := range log {
		if done && !d.Before(h.StartDate) && !d.After(ref) && h.IsDue(d) {
			r.Completed++
		}
	}
	r.Percentage = percentage(r.Completed, r.Expected)
	return r
}

// percentage rounds half away from zero and clamps to [0, 100]. Zero
// expected completions yields 0.
func percentage(completed, expected int) int {
	if expected <= 0 {
		return 0
	}
	p := int(math.Round(float64(completed) / float64(expected) * 100))
	return min(max(p, 0), 100)
}
