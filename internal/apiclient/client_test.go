package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taharajati/habit-tracker/internal/config"
	"github.com/taharajati/habit-tracker/internal/server"
	"github.com/taharajati/habit-tracker/internal/storage/memory"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	srv, err := server.New(&config.Config{Timezone: "UTC"}, memory.New())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return New(ts.URL+"/", "")
}

func TestClient_RoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	saturday := int(time.Saturday)
	start := civil.Date{Year: 2024, Month: time.January, Day: 6}
	created, err := c.CreateHabit(ctx, habit.Habit{
		Name:      "long run",
		Frequency: habit.Weekly,
		WeekDay:   &saturday,
		StartDate: start,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	habits, err := c.ListHabits(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 1)

	snap, err := c.ToggleCompletion(ctx, created.ID, start, true)
	require.NoError(t, err)
	assert.Equal(t, habit.StatusCompleted, snap.TodayStatus)

	dash, err := c.GetSnapshots(ctx, start.AddDays(7))
	require.NoError(t, err)
	require.Len(t, dash.Snapshots, 1)
	assert.Equal(t, habit.StatusPending, dash.Snapshots[0].TodayStatus)
	assert.Equal(t, 1, dash.Snapshots[0].CurrentStreak)

	require.NoError(t, c.DeleteHabit(ctx, created.ID))
	habits, err = c.ListHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, habits)
}

func TestClient_StatusError(t *testing.T) {
	c := newClient(t)

	_, err := c.ToggleCompletion(context.Background(), "missing", civil.Date{Year: 2024, Month: time.January, Day: 6}, true)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestClient_SendsToken(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"version":"1.2.3","build_date":"today"}`))
	}))
	t.Cleanup(ts.Close)

	info, err := New(ts.URL, "hab_live_abc").Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer hab_live_abc", got)
	assert.Equal(t, "1.2.3", info.Version)
}

func TestClient_Moods(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	m, err := c.RecordMood(ctx, civil.Date{}, 3, "steady")
	require.NoError(t, err)
	assert.Equal(t, "steady", m.Note)
	assert.True(t, m.Day.IsValid())

	_, err = c.RecordMood(ctx, m.Day.AddDays(-2), 5, "")
	require.NoError(t, err)

	stats, err := c.MoodStats(ctx, "week")
	require.NoError(t, err)
	assert.Equal(t, habit.MoodStats{Average: 4, Lowest: 3, Highest: 5, Count: 2}, stats.Stats)

	_, err = c.RecordMood(ctx, civil.Date{}, 7, "")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
}
