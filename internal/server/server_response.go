package server

import (
	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/pkg/habit"
)

type HabitListResponse struct {
	Habits []habit.Habit `json:"habits"`
}

type HabitProgressResponse struct {
	HabitID string                `json:"habit_id"`
	Entries []habit.ProgressEntry `json:"entries"`
}

type ProgressRequest struct {
	Completed *bool `json:"completed"`
}

// CompleteRequest toggles a habit for Date, or for today when Date is empty.
type CompleteRequest struct {
	Completed *bool  `json:"completed"`
	Date      string `json:"date,omitempty"`
}

type DailyProgressResponse struct {
	Range string            `json:"range"`
	Days  []habit.DayTotals `json:"days"`
}

// MoodRequest records a mood for Date, or for today when Date is empty.
type MoodRequest struct {
	Level int    `json:"level"`
	Note  string `json:"note,omitempty"`
	Date  string `json:"date,omitempty"`
}

type MoodListResponse struct {
	Period  string            `json:"period"`
	From    civil.Date        `json:"from"`
	To      civil.Date        `json:"to"`
	Entries []habit.MoodEntry `json:"entries"`
}

type MoodStatsResponse struct {
	Period string          `json:"period"`
	From   civil.Date      `json:"from"`
	To     civil.Date      `json:"to"`
	Stats  habit.MoodStats `json:"stats"`
}

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}

type APIKeyListResponse struct {
	Keys []APIKeyInfo `json:"keys"`
}

type APIKeyInfo struct {
	Hash string `json:"hash"`
}
