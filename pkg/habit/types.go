package habit

import (
	"time"

	"cloud.google.com/go/civil"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Frequencies lists the supported recurrence kinds in display order.
var Frequencies = []Frequency{Daily, Weekly, Monthly}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Habit is a recurring practice owned by a single user. WeekDay (0=Sunday)
// is set only for weekly habits and MonthDay only for monthly ones.
type Habit struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Frequency   Frequency  `json:"frequency"`
	WeekDay     *int       `json:"week_day,omitempty"`
	MonthDay    *int       `json:"month_day,omitempty"`
	StartDate   civil.Date `json:"start_date"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressEntry records the outcome of a habit on one logical day. There is
// at most one entry per (habit, day).
type ProgressEntry struct {
	HabitID   string     `json:"habit_id"`
	UserID    string     `json:"user_id,omitempty"`
	Day       civil.Date `json:"day"`
	Completed bool       `json:"completed"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type TodayStatus string

const (
	StatusCompleted     TodayStatus = "completed"
	StatusNotCompleted  TodayStatus = "not_completed"
	StatusPending       TodayStatus = "pending"
	StatusNotApplicable TodayStatus = "not_applicable"
)

type CompletionRate struct {
	Expected   int `json:"expected"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

// Snapshot is the derived view of one habit as of a reference day.
type Snapshot struct {
	HabitID        string          `json:"habit_id"`
	Name           string          `json:"name"`
	Frequency      Frequency       `json:"frequency"`
	ReferenceDay   civil.Date      `json:"reference_day"`
	TodayStatus    TodayStatus     `json:"today_status"`
	CurrentStreak  int             `json:"current_streak"`
	LongestStreak  int             `json:"longest_streak"`
	CompletionRate CompletionRate  `json:"completion_rate"`
	RecentProgress map[string]bool `json:"recent_progress"`
	TotalCompleted int             `json:"total_completed"`
	TotalDays      int             `json:"total_days"`
}

type FrequencyTotals struct {
	Habits         int `json:"habits"`
	DueToday       int `json:"due_today"`
	CompletedToday int `json:"completed_today"`
}

// Aggregate summarises a set of snapshots for the dashboard.
type Aggregate struct {
	ReferenceDay civil.Date                    `json:"reference_day"`
	ByFrequency  map[Frequency]FrequencyTotals `json:"by_frequency"`
	Total        FrequencyTotals               `json:"total"`
}

// DayTotals is one point of the daily progress chart.
type DayTotals struct {
	Day       civil.Date `json:"day"`
	Due       int        `json:"due"`
	Completed int        `json:"completed"`
}
