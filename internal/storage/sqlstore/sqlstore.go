// Package sqlstore implements storage.Store on database/sql for SQLite
// (modernc.org/sqlite) and PostgreSQL (lib/pq). Queries are written with ?
// placeholders and rebound for drivers that number them.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	_ "github.com/lib/pq"
	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"

	"github.com/taharajati/habit-tracker/internal/migration"
	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

//go:embed migrations
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and applies pending migrations. For SQLite
// dsn is a file path whose directory is created if missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrations() (*migration.Runner, error) {
	sub, err := fs.Sub(migrationsFS, "migrations/"+s.driver)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s migrations: %w", s.driver, err)
	}
	return migration.NewRunner(s.db, sub), nil
}

// Migrate applies the embedded migrations for the store's driver. It refuses
// to touch a schema written by a newer build.
func (s *Store) Migrate(ctx context.Context) error {
	r, err := s.migrations()
	if err != nil {
		return err
	}
	if err := r.Validate(ctx); err != nil {
		return err
	}
	if _, err := r.Apply(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	r, err := s.migrations()
	if err != nil {
		return 0, err
	}
	return r.CurrentVersion(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const habitColumns = "id, user_id, name, description, frequency, week_day, month_day, start_date, created_at"

func scanHabit(row scanner) (habit.Habit, error) {
	var (
		h                  habit.Habit
		freq               string
		weekDay, monthDay  sql.NullInt64
		startDate, created string
	)
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &freq, &weekDay, &monthDay, &startDate, &created); err != nil {
		return h, err
	}
	h.Frequency = habit.Frequency(freq)
	if weekDay.Valid {
		v := int(weekDay.Int64)
		h.WeekDay = &v
	}
	if monthDay.Valid {
		v := int(monthDay.Int64)
		h.MonthDay = &v
	}

	var err error
	if h.StartDate, err = civil.ParseDate(startDate); err != nil {
		return h, fmt.Errorf("failed to parse start_date: %w", err)
	}
	if h.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return h, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return h, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func (s *Store) getHabit(ctx context.Context, q queryer, userID, habitID string) (habit.Habit, error) {
	row := q.QueryRowContext(ctx, s.rebind(`SELECT `+habitColumns+` FROM habits WHERE user_id = ? AND id = ?`), userID, habitID)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return h, fmt.Errorf("%w: %s", habit.ErrNotFound, habitID)
	}
	return h, err
}

func (s *Store) CreateHabit(ctx context.Context, userID string, h habit.Habit) (habit.Habit, error) {
	h = storage.NewHabit(userID, h)
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		h.ID, h.UserID, h.Name, h.Description, string(h.Frequency),
		nullInt(h.WeekDay), nullInt(h.MonthDay), h.StartDate.String(), h.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return habit.Habit{}, fmt.Errorf("failed to insert habit: %w", err)
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, userID, habitID string) (habit.Habit, error) {
	return s.getHabit(ctx, s.db, userID, habitID)
}

func (s *Store) ListHabits(ctx context.Context, userID string) ([]habit.Habit, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) UpdateHabit(ctx context.Context, userID string, update habit.Habit) (habit.Habit, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return habit.Habit{}, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := s.getHabit(ctx, tx, userID, update.ID)
	if err != nil {
		return habit.Habit{}, err
	}
	h := storage.MergeHabit(existing, update)
	_, err = tx.ExecContext(ctx, s.rebind(`
		UPDATE habits
		SET name = ?, description = ?, frequency = ?, week_day = ?, month_day = ?, start_date = ?
		WHERE user_id = ? AND id = ?`),
		h.Name, h.Description, string(h.Frequency), nullInt(h.WeekDay), nullInt(h.MonthDay), h.StartDate.String(),
		userID, h.ID)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("failed to update habit: %w", err)
	}
	return h, tx.Commit()
}

func (s *Store) DeleteHabit(ctx context.Context, userID, habitID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// SQLite only honours ON DELETE CASCADE with foreign_keys enabled
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM progress WHERE user_id = ? AND habit_id = ?`), userID, habitID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM habits WHERE user_id = ? AND id = ?`), userID, habitID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", habit.ErrNotFound, habitID)
	}
	return tx.Commit()
}

func (s *Store) ListProgress(ctx context.Context, userID string, f storage.ProgressFilter) ([]habit.ProgressEntry, error) {
	query := `SELECT habit_id, user_id, day, completed, updated_at FROM progress WHERE user_id = ?`
	args := []any{userID}
	if f.HabitID != "" {
		query += ` AND habit_id = ?`
		args = append(args, f.HabitID)
	}
	// YYYY-MM-DD strings order the same as the dates they encode
	if f.From.IsValid() {
		query += ` AND day >= ?`
		args = append(args, f.From.String())
	}
	if f.To.IsValid() {
		query += ` AND day <= ?`
		args = append(args, f.To.String())
	}
	query += ` ORDER BY habit_id, day`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []habit.ProgressEntry{}
	for rows.Next() {
		var (
			e            habit.ProgressEntry
			day, updated string
		)
		if err := rows.Scan(&e.HabitID, &e.UserID, &day, &e.Completed, &updated); err != nil {
			return nil, err
		}
		if e.Day, err = civil.ParseDate(day); err != nil {
			return nil, fmt.Errorf("failed to parse day: %w", err)
		}
		if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpsertProgress(ctx context.Context, userID, habitID string, day civil.Date, completed bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	h, err := s.getHabit(ctx, tx, userID, habitID)
	if err != nil {
		return err
	}
	if err := storage.CheckRecordable(h, day); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO progress (habit_id, user_id, day, completed, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (habit_id, day) DO UPDATE SET
			completed = excluded.completed,
			updated_at = excluded.updated_at`),
		habitID, userID, day.String(), completed, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return tx.Commit()
}

func (s *Store) UpsertMood(ctx context.Context, userID string, m habit.MoodEntry) (habit.MoodEntry, error) {
	m, err := storage.NewMood(userID, m)
	if err != nil {
		return habit.MoodEntry{}, err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO moods (user_id, day, level, note, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET
			level = excluded.level,
			note = excluded.note,
			updated_at = excluded.updated_at`),
		userID, m.Day.String(), m.Level, m.Note, m.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return habit.MoodEntry{}, fmt.Errorf("failed to upsert mood: %w", err)
	}
	return m, nil
}

func (s *Store) ListMoods(ctx context.Context, userID string, from, to civil.Date) ([]habit.MoodEntry, error) {
	query := `SELECT user_id, day, level, note, updated_at FROM moods WHERE user_id = ?`
	args := []any{userID}
	if from.IsValid() {
		query += ` AND day >= ?`
		args = append(args, from.String())
	}
	if to.IsValid() {
		query += ` AND day <= ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY day DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []habit.MoodEntry{}
	for rows.Next() {
		var (
			m            habit.MoodEntry
			day, updated string
		)
		if err := rows.Scan(&m.UserID, &day, &m.Level, &m.Note, &updated); err != nil {
			return nil, err
		}
		if m.Day, err = civil.ParseDate(day); err != nil {
			return nil, fmt.Errorf("failed to parse day: %w", err)
		}
		if m.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	_, err := s.db.Exec(s.rebind(`
		INSERT INTO api_keys (key_hash, user_id) VALUES (?, ?)
		ON CONFLICT (key_hash) DO UPDATE SET user_id = excluded.user_id`), keyHash, userID)
	return err
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.QueryRow(s.rebind(`SELECT user_id FROM api_keys WHERE key_hash = ?`), keyHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	rows, err := s.db.Query(s.rebind(`SELECT key_hash FROM api_keys WHERE user_id = ? ORDER BY key_hash`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		out = append(out, hash)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM api_keys WHERE key_hash = ?`), keyHash)
	return err
}

func (s *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.rebind(`
		INSERT INTO refresh_tokens (user_id, token) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET token = excluded.token`), userID, string(val))
	return err
}

func (s *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	var raw string
	err := s.db.QueryRow(s.rebind(`SELECT token FROM refresh_tokens WHERE user_id = ?`), userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, false, err
	}
	return tok, true, nil
}

func (s *Store) DeleteRefreshToken(userID string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM refresh_tokens WHERE user_id = ?`), userID)
	return err
}

var _ storage.Store = (*Store)(nil)
