package tracker

import (
	"context"
	"fmt"
	"math"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/internal/logger"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

// MoodReport holds the mood entries of a window, newest first, and their
// summary.
type MoodReport struct {
	Period  string            `json:"period"`
	From    civil.Date        `json:"from"`
	To      civil.Date        `json:"to"`
	Entries []habit.MoodEntry `json:"entries"`
	Stats   habit.MoodStats   `json:"stats"`
}

// SummarizeMoods averages the entry levels to two decimals.
func SummarizeMoods(entries []habit.MoodEntry) habit.MoodStats {
	var st habit.MoodStats
	if len(entries) == 0 {
		return st
	}
	sum := 0
	st.Lowest, st.Highest = entries[0].Level, entries[0].Level
	for _, e := range entries {
		sum += e.Level
		st.Lowest = min(st.Lowest, e.Level)
		st.Highest = max(st.Highest, e.Level)
	}
	st.Count = len(entries)
	st.Average = math.Round(float64(sum)/float64(st.Count)*100) / 100
	return st
}

// RecordMood stores the user's mood for m.Day, replacing an earlier entry
// for the same day.
func (s *Service) RecordMood(ctx context.Context, userID string, m habit.MoodEntry) (habit.MoodEntry, error) {
	if err := m.Validate(); err != nil {
		return habit.MoodEntry{}, err
	}
	stored, err := s.store.UpsertMood(ctx, userID, m)
	if err != nil {
		return habit.MoodEntry{}, err
	}
	logger.InfoContext(ctx, "mood recorded", "user", userID, "day", m.Day, "level", m.Level)
	return stored, nil
}

// Moods reports the user's mood entries over period ending at ref. Periods
// are the ones PeriodStart accepts.
func (s *Service) Moods(ctx context.Context, userID, period string, ref civil.Date) (MoodReport, error) {
	from, err := PeriodStart(period, ref)
	if err != nil {
		return MoodReport{}, err
	}
	entries, err := s.store.ListMoods(ctx, userID, from, ref)
	if err != nil {
		return MoodReport{}, fmt.Errorf("list moods: %w", err)
	}
	return MoodReport{
		Period:  period,
		From:    from,
		To:      ref,
		Entries: entries,
		Stats:   SummarizeMoods(entries),
	}, nil
}
