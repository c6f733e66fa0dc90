package habit

import (
	"iter"
	"time"

	"cloud.google.com/go/civil"
)

// IsDue reports whether the habit's recurrence rule requires action on d.
// A habit missing the field its frequency needs is never due.
func (h Habit) IsDue(d civil.Date) bool {
	switch h.Frequency {
	case Daily:
		return true
	case Weekly:
		wd, ok := h.weekDay()
		return ok && weekday(d) == wd
	case Monthly:
		md, ok := h.monthDay()
		return ok && d.Day == md
	}
	return false
}

// CanRecordOn reports whether a completion may be recorded for d: the
// habit must be due on d and d must not precede its start date.
func (h Habit) CanRecordOn(d civil.Date) bool {
	return !d.Before(h.StartDate) && h.IsDue(d)
}

// PrevDue returns the latest due date on or before d. It jumps directly
// between due dates instead of testing every calendar day.
func (h Habit) PrevDue(d civil.Date) (civil.Date, bool) {
	switch h.Frequency {
	case Daily:
		return d, true
	case Weekly:
		wd, ok := h.weekDay()
		if !ok {
			return civil.Date{}, false
		}
		back := (int(weekday(d)) - int(wd) + 7) % 7
		return d.AddDays(-back), true
	case Monthly:
		md, ok := h.monthDay()
		if !ok {
			return civil.Date{}, false
		}
		y, m := d.Year, d.Month
		if d.Day < md {
			y, m = prevMonth(y, m)
		}
		// every run of consecutive months contains one with 31 days
		for range 12 {
			if daysIn(y, m) >= md {
				return civil.Date{Year: y, Month: m, Day: md}, true
			}
			y, m = prevMonth(y, m)
		}
	}
	return civil.Date{}, false
}

// DueDatesBackward yields the habit's due dates from `from` down to `until`,
// both inclusive, newest first.
func (h Habit) DueDatesBackward(from, until civil.Date) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		d, ok := h.PrevDue(from)
		for ok && !d.Before(until) {
			if !yield(d) {
				return
			}
			d, ok = h.PrevDue(d.AddDays(-1))
		}
	}
}

// CountDue returns the number of due dates in [from, to].
func (h Habit) CountDue(from, to civil.Date) int {
	if to.Before(from) {
		return 0
	}
	if h.Frequency == Daily {
		return to.DaysSince(from) + 1
	}
	n := 0
	for range h.DueDatesBackward(to, from) {
		n++
	}
	return n
}

func (h Habit) weekDay() (time.Weekday, bool) {
	if h.WeekDay == nil || *h.WeekDay < 0 || *h.WeekDay > 6 {
		return 0, false
	}
	return time.Weekday(*h.WeekDay), true
}

func (h Habit) monthDay() (int, bool) {
	if h.MonthDay == nil || *h.MonthDay < 1 || *h.MonthDay > 31 {
		return 0, false
	}
	return *h.MonthDay, true
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func prevMonth(y int, m time.Month) (int, time.Month) {
	if m == time.January {
		return y - 1, time.December
	}
	return y, m - 1
}

// Today returns the logical day for now in loc.
func Today(loc *time.Location) civil.Date {
	return civil.DateOf(time.Now().In(loc))
}
