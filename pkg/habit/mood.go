package habit

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

const (
	MinMoodLevel = 1
	MaxMoodLevel = 5
)

// MoodEntry is one user's mood for one logical day. A second entry for the
// same day replaces the first.
type MoodEntry struct {
	UserID    string     `json:"user_id,omitempty"`
	Day       civil.Date `json:"day"`
	Level     int        `json:"level"`
	Note      string     `json:"note,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (m MoodEntry) Validate() error {
	if !m.Day.IsValid() {
		return fmt.Errorf("%w: invalid mood day", ErrInvalidOperation)
	}
	if m.Level < MinMoodLevel || m.Level > MaxMoodLevel {
		return fmt.Errorf("%w: mood level must be between %d and %d", ErrInvalidOperation, MinMoodLevel, MaxMoodLevel)
	}
	if len(m.Note) > MaxDescriptionLength {
		return fmt.Errorf("%w: mood note must be 0-%d characters", ErrInvalidOperation, MaxDescriptionLength)
	}
	return nil
}

// MoodStats summarises the mood entries of a window. Lowest and Highest are
// zero when Count is zero.
type MoodStats struct {
	Average float64 `json:"average"`
	Lowest  int     `json:"lowest"`
	Highest int     `json:"highest"`
	Count   int     `json:"count"`
}
