package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/taharajati/habit-tracker/internal/config"
	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/internal/storage/memory"
	"github.com/taharajati/habit-tracker/internal/tracker"
	"github.com/taharajati/habit-tracker/pkg/habit"
	"github.com/taharajati/habit-tracker/pkg/versioninfo"
)

func TestListHabits_Empty(t *testing.T) {
	h := newTestServer(t, memory.New())
	rr := mockRequest(h, http.MethodGet, "/habits/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	var resp HabitListResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Habits) != 0 {
		t.Fatalf("len=%d want 0", len(resp.Habits))
	}
}

func TestHealthzAndVersion(t *testing.T) {
	h := newTestServer(t, memory.New())

	rr := mockRequest(h, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: got %d want 200", rr.Code)
	}

	rr = mockRequest(h, http.MethodGet, "/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("version: got %d want 200", rr.Code)
	}
	var info versioninfo.VersionInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if info.Version != versioninfo.Version {
		t.Fatalf("got version %q want %q", info.Version, versioninfo.Version)
	}
}

func TestCreateHabit(t *testing.T) {
	st := memory.New()
	h := newTestServer(t, st)

	created := createWeeklyHabit(t, h)
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if created.UserID != "anonymous" {
		t.Fatalf("got user %q want anonymous", created.UserID)
	}

	rr := mockRequest(h, http.MethodGet, "/habits/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	var got habit.Habit
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if got.Name != "long run" || got.Frequency != habit.Weekly {
		t.Fatalf("unexpected habit %+v", got)
	}
}

func TestCreateHabit_Invalid(t *testing.T) {
	h := newTestServer(t, memory.New())

	cases := map[string]any{
		"missing name":     map[string]any{"frequency": "daily"},
		"weekly, no day":   map[string]any{"name": "x", "frequency": "weekly"},
		"monthly day 32":   map[string]any{"name": "x", "frequency": "monthly", "month_day": 32},
		"bad frequency":    map[string]any{"name": "x", "frequency": "hourly"},
		"bad start date":   map[string]any{"name": "x", "frequency": "daily", "start_date": "yesterday"},
		"weekday on daily": map[string]any{"name": "x", "frequency": "daily", "week_day": 1},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := mockRequest(h, http.MethodPost, "/habits/", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d want 400, body: %s", rr.Code, rr.Body.String())
			}
		})
	}

	rr := mockRequest(h, http.MethodGet, "/habits/", nil)
	var resp HabitListResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Habits) != 0 {
		t.Fatalf("invalid habits were stored: %d", len(resp.Habits))
	}
}

func TestToggle_NonDueDay(t *testing.T) {
	h := newTestServer(t, memory.New())
	created := createWeeklyHabit(t, h)

	rr := mockRequest(h, http.MethodPatch, "/habits/"+created.ID+"/complete",
		CompleteRequest{Date: "2024-01-10"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rr.Code)
	}

	rr = mockRequest(h, http.MethodGet, "/habits/"+created.ID+"/progress", nil)
	var progress HabitProgressResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &progress); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(progress.Entries) != 0 {
		t.Fatalf("got %d entries want 0", len(progress.Entries))
	}
}

func TestToggle_UnknownHabit(t *testing.T) {
	h := newTestServer(t, memory.New())

	completed := true
	rr := mockRequest(h, http.MethodPut, "/habits/missing/progress/2024-01-06",
		ProgressRequest{Completed: &completed})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d want 404", rr.Code)
	}

	rr = mockRequest(h, http.MethodGet, "/habits/missing/summary", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("summary: got %d want 404", rr.Code)
	}
}

func TestPutProgress_RequiresCompleted(t *testing.T) {
	h := newTestServer(t, memory.New())
	created := createWeeklyHabit(t, h)

	rr := mockRequest(h, http.MethodPut, "/habits/"+created.ID+"/progress/2024-01-06", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rr.Code)
	}
	rr = mockRequest(h, http.MethodPut, "/habits/"+created.ID+"/progress/not-a-day", map[string]any{"completed": true})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d want 400", rr.Code)
	}
}

func TestSnapshots_WeeklyScenario(t *testing.T) {
	h := newTestServer(t, memory.New())
	created := createWeeklyHabit(t, h)

	for day, done := range map[string]bool{"2024-01-06": true, "2024-01-13": true, "2024-01-20": false} {
		rr := mockRequest(h, http.MethodPut, "/habits/"+created.ID+"/progress/"+day,
			ProgressRequest{Completed: &done})
		if rr.Code != http.StatusOK {
			t.Fatalf("put %s: got %d want 200, body: %s", day, rr.Code, rr.Body.String())
		}
	}

	rr := mockRequest(h, http.MethodGet, "/snapshots?date=2024-01-20", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	var dash tracker.Dashboard
	if err := json.Unmarshal(rr.Body.Bytes(), &dash); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(dash.Snapshots) != 1 {
		t.Fatalf("got %d snapshots want 1", len(dash.Snapshots))
	}
	s := dash.Snapshots[0]
	want := habit.CompletionRate{Expected: 3, Completed: 2, Percentage: 67}
	if s.CompletionRate != want {
		t.Fatalf("got rate %+v want %+v", s.CompletionRate, want)
	}
	if s.CurrentStreak != 0 || s.LongestStreak != 2 {
		t.Fatalf("got streaks %d/%d want 0/2", s.CurrentStreak, s.LongestStreak)
	}
	if s.TodayStatus != habit.StatusNotCompleted {
		t.Fatalf("got status %q want not_completed", s.TodayStatus)
	}
	if dash.Aggregate.Total.DueToday != 1 {
		t.Fatalf("got due today %d want 1", dash.Aggregate.Total.DueToday)
	}

	rr = mockRequest(h, http.MethodGet, "/snapshots?lookback=0", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("lookback=0: got %d want 400", rr.Code)
	}
}

func TestComplete_ReturnsSnapshot(t *testing.T) {
	h := newTestServer(t, memory.New())
	created := createWeeklyHabit(t, h)

	rr := mockRequest(h, http.MethodPatch, "/habits/"+created.ID+"/complete", CompleteRequest{Date: "2024-01-06"})
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
	var snap habit.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if snap.TodayStatus != habit.StatusCompleted || snap.CurrentStreak != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDeleteHabit(t *testing.T) {
	h := newTestServer(t, memory.New())
	created := createWeeklyHabit(t, h)

	rr := mockRequest(h, http.MethodDelete, "/habits/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("got %d want 204", rr.Code)
	}
	rr = mockRequest(h, http.MethodDelete, "/habits/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: got %d want 404", rr.Code)
	}
}

func TestDailyProgress(t *testing.T) {
	h := newTestServer(t, memory.New())
	created := createWeeklyHabit(t, h)

	done := true
	mockRequest(h, http.MethodPut, "/habits/"+created.ID+"/progress/2024-01-13", ProgressRequest{Completed: &done})

	rr := mockRequest(h, http.MethodGet, "/progress?date=2024-01-14", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	var resp DailyProgressResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if resp.Range != "week" || len(resp.Days) != 7 {
		t.Fatalf("got range %q with %d days, want week with 7", resp.Range, len(resp.Days))
	}
	sat := resp.Days[5]
	if sat.Day.String() != "2024-01-13" || sat.Due != 1 || sat.Completed != 1 {
		t.Fatalf("unexpected saturday totals %+v", sat)
	}

	rr = mockRequest(h, http.MethodGet, "/progress?range=year", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("range=year: got %d want 400", rr.Code)
	}
}

func TestHabitStats(t *testing.T) {
	h := newTestServer(t, memory.New())
	created := createWeeklyHabit(t, h)

	done := true
	mockRequest(h, http.MethodPut, "/habits/"+created.ID+"/progress/2024-01-13", ProgressRequest{Completed: &done})

	rr := mockRequest(h, http.MethodGet, "/habits/"+created.ID+"/stats?period=month&date=2024-01-20", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200, body: %s", rr.Code, rr.Body.String())
	}
	var stats tracker.PeriodStats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if stats.CompletionRate.Expected != 3 || stats.CompletionRate.Completed != 1 {
		t.Fatalf("unexpected rate %+v", stats.CompletionRate)
	}
}

func createWeeklyHabit(t *testing.T, h http.Handler) habit.Habit {
	t.Helper()
	saturday := int(time.Saturday)
	rr := mockRequest(h, http.MethodPost, "/habits/", map[string]any{
		"name":       "long run",
		"frequency":  "weekly",
		"week_day":   saturday,
		"start_date": "2024-01-06",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d want 201, body: %s", rr.Code, rr.Body.String())
	}
	var created habit.Habit
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	return created
}

func newTestServer(t *testing.T, st storage.Store) http.Handler {
	t.Helper()
	s, err := New(&config.Config{Timezone: "UTC"}, st)
	if err != nil {
		t.Fatalf("error creating server: %v", err)
	}
	return s.Router()
}

func mockRequest(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}
