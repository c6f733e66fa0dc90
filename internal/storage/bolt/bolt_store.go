package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"

	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

const (
	rootBucket          = "users"
	apiKeysBucket       = "api_keys"
	refreshTokensBucket = "refresh_tokens"
	habitsBucket        = "habits"
	progressBucket      = "progress"
	moodsBucket         = "moods"
	defaultUserID       = "default"
)

// Store keeps each user's data under users/<id>/{habits,progress,moods}.
// Progress entries live in one bucket per habit keyed by YYYY-MM-DD, so a put
// on the same day overwrites and deleting the habit bucket cascades. Mood
// entries use the same day keys.
type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{rootBucket, apiKeysBucket, refreshTokensBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func userKey(userID string) []byte {
	if userID == "" {
		userID = defaultUserID
	}
	return []byte(userID)
}

// userBucket returns the named child bucket of the user, creating it in
// writable transactions. In read-only transactions a missing bucket is nil.
func userBucket(tx *bbolt.Tx, userID, name string) (*bbolt.Bucket, error) {
	users := tx.Bucket([]byte(rootBucket))
	if !tx.Writable() {
		u := users.Bucket(userKey(userID))
		if u == nil {
			return nil, nil
		}
		return u.Bucket([]byte(name)), nil
	}
	u, err := users.CreateBucketIfNotExists(userKey(userID))
	if err != nil {
		return nil, err
	}
	return u.CreateBucketIfNotExists([]byte(name))
}

func getHabit(tx *bbolt.Tx, userID, habitID string) (habit.Habit, error) {
	var h habit.Habit
	b, err := userBucket(tx, userID, habitsBucket)
	if err != nil {
		return h, err
	}
	if b == nil {
		return h, fmt.Errorf("%w: %s", habit.ErrNotFound, habitID)
	}
	v := b.Get([]byte(habitID))
	if v == nil {
		return h, fmt.Errorf("%w: %s", habit.ErrNotFound, habitID)
	}
	if err := json.Unmarshal(v, &h); err != nil {
		return h, err
	}
	return h, nil
}

func putHabit(tx *bbolt.Tx, userID string, h habit.Habit) error {
	b, err := userBucket(tx, userID, habitsBucket)
	if err != nil {
		return err
	}
	val, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return b.Put([]byte(h.ID), val)
}

func (s *Store) CreateHabit(_ context.Context, userID string, h habit.Habit) (habit.Habit, error) {
	h = storage.NewHabit(userID, h)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return putHabit(tx, userID, h)
	})
	return h, err
}

func (s *Store) GetHabit(_ context.Context, userID, habitID string) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		h, err = getHabit(tx, userID, habitID)
		return err
	})
	return h, err
}

func (s *Store) ListHabits(_ context.Context, userID string) ([]habit.Habit, error) {
	out := []habit.Habit{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, habitsBucket)
		if err != nil || b == nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			var h habit.Habit
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			out = append(out, h)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateHabit(_ context.Context, userID string, update habit.Habit) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.Update(func(tx *bbolt.Tx) error {
		existing, err := getHabit(tx, userID, update.ID)
		if err != nil {
			return err
		}
		h = storage.MergeHabit(existing, update)
		return putHabit(tx, userID, h)
	})
	return h, err
}

func (s *Store) DeleteHabit(_ context.Context, userID, habitID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		habits, err := userBucket(tx, userID, habitsBucket)
		if err != nil {
			return err
		}
		if habits.Get([]byte(habitID)) == nil {
			return fmt.Errorf("%w: %s", habit.ErrNotFound, habitID)
		}
		if err := habits.Delete([]byte(habitID)); err != nil {
			return err
		}

		progress, err := userBucket(tx, userID, progressBucket)
		if err != nil {
			return err
		}
		if progress.Bucket([]byte(habitID)) == nil {
			return nil
		}
		return progress.DeleteBucket([]byte(habitID))
	})
}

func (s *Store) ListProgress(_ context.Context, userID string, f storage.ProgressFilter) ([]habit.ProgressEntry, error) {
	out := []habit.ProgressEntry{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		progress, err := userBucket(tx, userID, progressBucket)
		if err != nil || progress == nil {
			return err
		}

		collect := func(hb *bbolt.Bucket) error {
			c := hb.Cursor()
			k, v := c.First()
			if f.From.IsValid() {
				k, v = c.Seek([]byte(f.From.String()))
			}
			for ; k != nil; k, v = c.Next() {
				var e habit.ProgressEntry
				if err := json.Unmarshal(v, &e); err != nil {
					return err
				}
				if f.To.IsValid() && e.Day.After(f.To) {
					break
				}
				out = append(out, e)
			}
			return nil
		}

		if f.HabitID != "" {
			hb := progress.Bucket([]byte(f.HabitID))
			if hb == nil {
				return nil
			}
			return collect(hb)
		}
		return progress.ForEachBucket(func(k []byte) error {
			return collect(progress.Bucket(k))
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpsertProgress(_ context.Context, userID, habitID string, day civil.Date, completed bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		h, err := getHabit(tx, userID, habitID)
		if err != nil {
			return err
		}
		if err := storage.CheckRecordable(h, day); err != nil {
			return err
		}

		progress, err := userBucket(tx, userID, progressBucket)
		if err != nil {
			return err
		}
		hb, err := progress.CreateBucketIfNotExists([]byte(habitID))
		if err != nil {
			return err
		}
		val, err := json.Marshal(habit.ProgressEntry{
			HabitID:   habitID,
			UserID:    userID,
			Day:       day,
			Completed: completed,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return hb.Put([]byte(day.String()), val)
	})
}

func (s *Store) UpsertMood(_ context.Context, userID string, m habit.MoodEntry) (habit.MoodEntry, error) {
	m, err := storage.NewMood(userID, m)
	if err != nil {
		return habit.MoodEntry{}, err
	}
	val, err := json.Marshal(m)
	if err != nil {
		return habit.MoodEntry{}, err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, moodsBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(m.Day.String()), val)
	})
	return m, err
}

func (s *Store) ListMoods(_ context.Context, userID string, from, to civil.Date) ([]habit.MoodEntry, error) {
	out := []habit.MoodEntry{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := userBucket(tx, userID, moodsBucket)
		if err != nil || b == nil {
			return err
		}

		// walk newest first; keys sort as the days they encode
		c := b.Cursor()
		k, v := c.Last()
		if to.IsValid() {
			k, v = c.Seek([]byte(to.String()))
			switch {
			case k == nil:
				k, v = c.Last()
			case string(k) > to.String():
				k, v = c.Prev()
			}
		}
		for ; k != nil; k, v = c.Prev() {
			var m habit.MoodEntry
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			if from.IsValid() && m.Day.Before(from) {
				break
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Put([]byte(keyHash), []byte(userID))
	})
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(apiKeysBucket)).Get([]byte(keyHash)); v != nil {
			userID = string(v)
		}
		return nil
	})
	return userID, userID != "", err
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).ForEach(func(k, v []byte) error {
			if string(v) == userID {
				out = append(out, string(k))
			}
			return nil
		})
	})
	return out, err
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Delete([]byte(keyHash))
	})
}

func (s *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(refreshTokensBucket)).Put(userKey(userID), val)
	})
}

func (s *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	var tok *oauth2.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(refreshTokensBucket)).Get(userKey(userID))
		if v == nil {
			return nil
		}
		tok = &oauth2.Token{}
		return json.Unmarshal(v, tok)
	})
	return tok, tok != nil, err
}

func (s *Store) DeleteRefreshToken(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(refreshTokensBucket)).Delete(userKey(userID))
	})
}

var _ storage.Store = (*Store)(nil)
