// Package memory is a process-local storage.Store. Nothing survives a
// restart; it backs tests and the "memory" storage driver.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/oauth2"

	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

type progressKey struct {
	habitID string
	day     civil.Date
}

type Store struct {
	mu       sync.RWMutex
	habits   map[string]map[string]habit.Habit
	progress map[string]map[progressKey]habit.ProgressEntry
	moods    map[string]map[civil.Date]habit.MoodEntry
	apiKeys  map[string]string
	tokens   map[string]*oauth2.Token
}

func New() *Store {
	return &Store{
		habits:   map[string]map[string]habit.Habit{},
		progress: map[string]map[progressKey]habit.ProgressEntry{},
		moods:    map[string]map[civil.Date]habit.MoodEntry{},
		apiKeys:  map[string]string{},
		tokens:   map[string]*oauth2.Token{},
	}
}

func (m *Store) getHabit(userID, habitID string) (habit.Habit, error) {
	h, ok := m.habits[userID][habitID]
	if !ok {
		return habit.Habit{}, fmt.Errorf("%w: %s", habit.ErrNotFound, habitID)
	}
	return h, nil
}

func (m *Store) CreateHabit(_ context.Context, userID string, h habit.Habit) (habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h = storage.NewHabit(userID, h)
	if m.habits[userID] == nil {
		m.habits[userID] = map[string]habit.Habit{}
	}
	m.habits[userID][h.ID] = h
	return h, nil
}

func (m *Store) GetHabit(_ context.Context, userID, habitID string) (habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.getHabit(userID, habitID)
}

func (m *Store) ListHabits(_ context.Context, userID string) ([]habit.Habit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]habit.Habit, 0, len(m.habits[userID]))
	for _, h := range m.habits[userID] {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b habit.Habit) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *Store) UpdateHabit(_ context.Context, userID string, update habit.Habit) (habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.getHabit(userID, update.ID)
	if err != nil {
		return habit.Habit{}, err
	}
	h := storage.MergeHabit(existing, update)
	m.habits[userID][h.ID] = h
	return h, nil
}

func (m *Store) DeleteHabit(_ context.Context, userID, habitID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.getHabit(userID, habitID); err != nil {
		return err
	}
	delete(m.habits[userID], habitID)
	for k := range m.progress[userID] {
		if k.habitID == habitID {
			delete(m.progress[userID], k)
		}
	}
	return nil
}

func (m *Store) ListProgress(_ context.Context, userID string, f storage.ProgressFilter) ([]habit.ProgressEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []habit.ProgressEntry{}
	for _, e := range m.progress[userID] {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b habit.ProgressEntry) int {
		if a.HabitID != b.HabitID {
			if a.HabitID < b.HabitID {
				return -1
			}
			return 1
		}
		switch {
		case a.Day.Before(b.Day):
			return -1
		case a.Day.After(b.Day):
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *Store) UpsertProgress(_ context.Context, userID, habitID string, day civil.Date, completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.getHabit(userID, habitID)
	if err != nil {
		return err
	}
	if err := storage.CheckRecordable(h, day); err != nil {
		return err
	}
	if m.progress[userID] == nil {
		m.progress[userID] = map[progressKey]habit.ProgressEntry{}
	}
	m.progress[userID][progressKey{habitID, day}] = habit.ProgressEntry{
		HabitID:   habitID,
		UserID:    userID,
		Day:       day,
		Completed: completed,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *Store) UpsertMood(_ context.Context, userID string, entry habit.MoodEntry) (habit.MoodEntry, error) {
	entry, err := storage.NewMood(userID, entry)
	if err != nil {
		return habit.MoodEntry{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.moods[userID] == nil {
		m.moods[userID] = map[civil.Date]habit.MoodEntry{}
	}
	m.moods[userID][entry.Day] = entry
	return entry, nil
}

func (m *Store) ListMoods(_ context.Context, userID string, from, to civil.Date) ([]habit.MoodEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []habit.MoodEntry{}
	for d, e := range m.moods[userID] {
		if storage.InRange(d, from, to) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b habit.MoodEntry) int { return b.Day.Compare(a.Day) })
	return out, nil
}

func (m *Store) PutAPIKey(keyHash, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiKeys[keyHash] = userID
	return nil
}

func (m *Store) GetAPIKey(keyHash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userID, ok := m.apiKeys[keyHash]
	return userID, ok, nil
}

func (m *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for hash, owner := range m.apiKeys {
		if owner == userID {
			out = append(out, hash)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *Store) DeleteAPIKey(keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.apiKeys, keyHash)
	return nil
}

func (m *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[userID] = tok
	return nil
}

func (m *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[userID]
	return tok, ok, nil
}

func (m *Store) DeleteRefreshToken(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, userID)
	return nil
}

func (m *Store) Close() error {
	return nil
}

var _ storage.Store = (*Store)(nil)
