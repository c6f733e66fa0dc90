package habit

import "fmt"

const (
	MaxNameLength        = 64
	MaxDescriptionLength = 1024
)

// Validate checks the habit definition before it is stored. Weekly habits
// must carry a WeekDay, monthly habits a MonthDay, daily habits neither.
func (h Habit) Validate() error {
	if len(h.Name) == 0 || len(h.Name) > MaxNameLength {
		return fmt.Errorf("%w: bad habit name: must be 1-%d characters", ErrInvalidOperation, MaxNameLength)
	}
	if len(h.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: bad habit description: must be 0-%d characters", ErrInvalidOperation, MaxDescriptionLength)
	}
	if !h.StartDate.IsValid() {
		return fmt.Errorf("%w: invalid start date", ErrInvalidOperation)
	}

	switch h.Frequency {
	case Daily:
		if h.WeekDay != nil || h.MonthDay != nil {
			return fmt.Errorf("%w: daily habits take neither week_day nor month_day", ErrInvalidOperation)
		}
	case Weekly:
		if h.MonthDay != nil {
			return fmt.Errorf("%w: weekly habits do not take month_day", ErrInvalidOperation)
		}
		if _, ok := h.weekDay(); !ok {
			return fmt.Errorf("%w: weekly habits need week_day between 0 and 6", ErrInvalidOperation)
		}
	case Monthly:
		if h.WeekDay != nil {
			return fmt.Errorf("%w: monthly habits do not take week_day", ErrInvalidOperation)
		}
		if _, ok := h.monthDay(); !ok {
			return fmt.Errorf("%w: monthly habits need month_day between 1 and 31", ErrInvalidOperation)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidOperation, h.Frequency)
	}
	return nil
}
