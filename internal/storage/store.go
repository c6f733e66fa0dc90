package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/taharajati/habit-tracker/pkg/habit"
)

// ProgressFilter narrows ListProgress. Empty fields are unbounded.
type ProgressFilter struct {
	HabitID string
	From    civil.Date
	To      civil.Date
}

func (f ProgressFilter) Match(e habit.ProgressEntry) bool {
	if f.HabitID != "" && e.HabitID != f.HabitID {
		return false
	}
	return InRange(e.Day, f.From, f.To)
}

type Store interface {
	CreateHabit(ctx context.Context, userID string, h habit.Habit) (habit.Habit, error)
	GetHabit(ctx context.Context, userID, habitID string) (habit.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]habit.Habit, error)
	UpdateHabit(ctx context.Context, userID string, h habit.Habit) (habit.Habit, error)
	// DeleteHabit removes the habit together with all of its progress.
	DeleteHabit(ctx context.Context, userID, habitID string) error

	ListProgress(ctx context.Context, userID string, f ProgressFilter) ([]habit.ProgressEntry, error)
	// UpsertProgress records the outcome for (habit, day), replacing any
	// earlier entry. It fails with habit.ErrInvalidOperation when the day is
	// not a due date and habit.ErrNotFound for unknown habits.
	UpsertProgress(ctx context.Context, userID, habitID string, day civil.Date, completed bool) error

	// UpsertMood stores the entry, replacing any earlier entry for the same
	// day, and returns it as stored.
	UpsertMood(ctx context.Context, userID string, m habit.MoodEntry) (habit.MoodEntry, error)
	// ListMoods returns the entries in [from, to], newest first. Zero bounds
	// are unbounded.
	ListMoods(ctx context.Context, userID string, from, to civil.Date) ([]habit.MoodEntry, error)

	PutAPIKey(keyHash, userID string) error
	GetAPIKey(keyHash string) (userID string, found bool, err error)
	ListAPIKeyHashes(userID string) ([]string, error)
	DeleteAPIKey(keyHash string) error

	PutRefreshToken(userID string, tok *oauth2.Token) error
	GetRefreshToken(userID string) (*oauth2.Token, bool, error)
	DeleteRefreshToken(userID string) error

	Close() error
}

// NewHabit fills the server-assigned fields of a habit about to be created.
func NewHabit(userID string, h habit.Habit) habit.Habit {
	h.ID = uuid.NewString()
	h.UserID = userID
	h.CreatedAt = time.Now().UTC()
	return h
}

// MergeHabit applies the editable fields of update onto existing.
func MergeHabit(existing, update habit.Habit) habit.Habit {
	existing.Name = update.Name
	existing.Description = update.Description
	existing.Frequency = update.Frequency
	existing.WeekDay = update.WeekDay
	existing.MonthDay = update.MonthDay
	existing.StartDate = update.StartDate
	return existing
}

// CheckRecordable rejects writes for days the habit is not due on and for
// days before its start date.
func CheckRecordable(h habit.Habit, day civil.Date) error {
	if day.Before(h.StartDate) {
		return fmt.Errorf("%w: %s is before the start date of habit %s", habit.ErrInvalidOperation, day, h.ID)
	}
	if !h.CanRecordOn(day) {
		return fmt.Errorf("%w: %s is not a due date for habit %s", habit.ErrInvalidOperation, day, h.ID)
	}
	return nil
}

// InRange reports whether d lies in [from, to], treating zero bounds as open.
func InRange(d, from, to civil.Date) bool {
	if from.IsValid() && d.Before(from) {
		return false
	}
	if to.IsValid() && d.After(to) {
		return false
	}
	return true
}

// NewMood validates the entry and stamps it for storage under userID.
func NewMood(userID string, m habit.MoodEntry) (habit.MoodEntry, error) {
	if err := m.Validate(); err != nil {
		return habit.MoodEntry{}, err
	}
	m.UserID = userID
	m.UpdatedAt = time.Now().UTC()
	return m, nil
}
