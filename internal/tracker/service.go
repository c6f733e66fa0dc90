package tracker

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/internal/logger"
	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

// Store is the slice of storage.Store the engine reads and writes through.
type Store interface {
	GetHabit(ctx context.Context, userID, habitID string) (habit.Habit, error)
	ListHabits(ctx context.Context, userID string) ([]habit.Habit, error)
	ListProgress(ctx context.Context, userID string, f storage.ProgressFilter) ([]habit.ProgressEntry, error)
	UpsertProgress(ctx context.Context, userID, habitID string, day civil.Date, completed bool) error
	UpsertMood(ctx context.Context, userID string, m habit.MoodEntry) (habit.MoodEntry, error)
	ListMoods(ctx context.Context, userID string, from, to civil.Date) ([]habit.MoodEntry, error)
}

// Dashboard is what GetSnapshots hands to the presentation layer.
type Dashboard struct {
	Snapshots []habit.Snapshot `json:"snapshots"`
	Aggregate habit.Aggregate  `json:"aggregate"`
}

// PeriodStats is the completion summary of one habit over a named window.
type PeriodStats struct {
	HabitID        string               `json:"habit_id"`
	Period         string               `json:"period"`
	From           civil.Date           `json:"from"`
	To             civil.Date           `json:"to"`
	CompletionRate habit.CompletionRate `json:"completion_rate"`
	Progress       map[string]bool      `json:"progress"`
}

// Service fetches a user's data once per call and runs the pure
// calculations over it. It holds no state between calls.
type Service struct {
	store    Store
	lookback int
}

func New(store Store, lookbackDays int) *Service {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	return &Service{store: store, lookback: lookbackDays}
}

func (s *Service) LookbackDays() int {
	return s.lookback
}

// GetSnapshots builds every habit snapshot of the user as of ref, plus the
// per-frequency aggregate.
func (s *Service) GetSnapshots(ctx context.Context, userID string, ref civil.Date) (Dashboard, error) {
	habits, err := s.store.ListHabits(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list habits: %w", err)
	}
	progress, err := s.store.ListProgress(ctx, userID, storage.ProgressFilter{To: ref})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list progress: %w", err)
	}

	snapshots := BuildSnapshots(habits, progress, ref, s.lookback)
	logger.DebugContext(ctx, "built snapshots", "user", userID, "ref", ref, "habits", len(snapshots))
	return Dashboard{
		Snapshots: snapshots,
		Aggregate: Aggregate(ref, snapshots),
	}, nil
}

func (s *Service) GetSnapshot(ctx context.Context, userID, habitID string, ref civil.Date) (habit.Snapshot, error) {
	h, err := s.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return habit.Snapshot{}, err
	}
	progress, err := s.store.ListProgress(ctx, userID, storage.ProgressFilter{HabitID: habitID, To: ref})
	if err != nil {
		return habit.Snapshot{}, fmt.Errorf("list progress: %w", err)
	}
	return BuildSnapshot(h, IndexProgress(progress)[habitID], ref, s.lookback), nil
}

// ToggleCompletion records completed for (habit, day). Days the habit is not
// due on fail with habit.ErrInvalidOperation and leave no entry behind.
func (s *Service) ToggleCompletion(ctx context.Context, userID, habitID string, day civil.Date, completed bool) error {
	if !day.IsValid() {
		return fmt.Errorf("%w: invalid day", habit.ErrInvalidOperation)
	}
	h, err := s.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return err
	}
	if err := storage.CheckRecordable(h, day); err != nil {
		logger.DebugContext(ctx, "rejected toggle on non-due day", "habit", habitID, "day", day)
		return err
	}
	if err := s.store.UpsertProgress(ctx, userID, habitID, day, completed); err != nil {
		return err
	}
	logger.InfoContext(ctx, "progress recorded", "user", userID, "habit", habitID, "day", day, "completed", completed)
	return nil
}

// PeriodStats reports the habit's completion over period ending at ref.
// Expected due dates are counted from the later of the window start and the
// habit's start date.
func (s *Service) PeriodStats(ctx context.Context, userID, habitID, period string, ref civil.Date) (PeriodStats, error) {
	from, err := PeriodStart(period, ref)
	if err != nil {
		return PeriodStats{}, err
	}
	h, err := s.store.GetHabit(ctx, userID, habitID)
	if err != nil {
		return PeriodStats{}, err
	}
	progress, err := s.store.ListProgress(ctx, userID, storage.ProgressFilter{HabitID: habitID, From: from, To: ref})
	if err != nil {
		return PeriodStats{}, fmt.Errorf("list progress: %w", err)
	}

	log := IndexProgress(progress)[habitID]
	windowed := h
	if h.StartDate.Before(from) {
		windowed.StartDate = from
	}

	stats := PeriodStats{
		HabitID:        habitID,
		Period:         period,
		From:           from,
		To:             ref,
		CompletionRate: CompletionRate(windowed, log, ref),
		Progress:       make(map[string]bool, len(log)),
	}
	for d, done := range log {
		stats.Progress[d.String()] = done
	}
	return stats, nil
}

// DailyProgress returns per-day due and completed counts across all of the
// user's habits in [from, to].
func (s *Service) DailyProgress(ctx context.Context, userID string, from, to civil.Date) ([]habit.DayTotals, error) {
	if !from.IsValid() || !to.IsValid() || to.Before(from) {
		return nil, fmt.Errorf("%w: invalid range %s..%s", habit.ErrInvalidOperation, from, to)
	}
	habits, err := s.store.ListHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	progress, err := s.store.ListProgress(ctx, userID, storage.ProgressFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return DailyTotals(habits, progress, from, to), nil
}
