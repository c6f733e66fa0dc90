package cmd

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"

	"github.com/taharajati/habit-tracker/internal/config"
	"github.com/taharajati/habit-tracker/internal/server"
	"github.com/taharajati/habit-tracker/internal/storage/memory"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

// run executes the root command against a scratch working directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func newTestAPI(t *testing.T) string {
	t.Helper()
	gokeyring.MockInit()
	t.Chdir(t.TempDir())

	srv, err := server.New(&config.Config{Timezone: "UTC"}, memory.New())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestCommands_TrackLogToday(t *testing.T) {
	url := newTestAPI(t)

	out, err := run(t, "--server", url, "track", "read", "--start", "2024-01-01")
	require.NoError(t, err, out)
	assert.Contains(t, out, `Tracking "read" (every day) from 2024-01-01`)
	fields := strings.Fields(out)
	id := fields[len(fields)-1]

	out, err = run(t, "--server", url, "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "read")
	assert.Contains(t, out, id)

	out, err = run(t, "--server", url, "log", id, "--date", "2024-01-02")
	require.NoError(t, err, out)
	assert.Contains(t, out, "streak 1 (best 1)")

	out, err = run(t, "--server", url, "today", "--date", "2024-01-02")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2024-01-02")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "50% of 2")
	assert.Contains(t, out, "daily 1/1")

	_, err = run(t, "--server", url, "log", "missing", "--date", "2024-01-02")
	assert.Error(t, err)
}

func TestCommands_Mood(t *testing.T) {
	url := newTestAPI(t)
	t.Cleanup(func() { moodDate, moodRange = "", "" })

	out, err := run(t, "--server", url, "mood", "4", "long", "walk")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Mood 4/5 on "+habit.Today(time.UTC).String())

	out, err = run(t, "--server", url, "mood", "stats", "--range", "week")
	require.NoError(t, err, out)
	assert.Contains(t, out, "average 4.00  lowest 4  highest 4  (1 entries)")

	_, err = run(t, "--server", url, "mood", "happy")
	assert.Error(t, err)

	_, err = run(t, "--server", url, "mood", "6")
	assert.Error(t, err)

	out, err = run(t, "--server", url, "mood", "2", "--date", "2024-03-25")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Mood 2/5 on 2024-03-25")
}

func TestCommands_Version(t *testing.T) {
	url := newTestAPI(t)

	out, err := run(t, "--server", url, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Client Version: dev")
	assert.Contains(t, out, "Server Version: dev")
}

func TestCommands_LoginLogout(t *testing.T) {
	url := newTestAPI(t)

	out, err := run(t, "--server", url, "login", "--token", "hab_live_abc")
	require.NoError(t, err, out)
	tok, err := gokeyring.Get("habits", url)
	require.NoError(t, err)
	assert.Equal(t, "hab_live_abc", tok)

	out, err = run(t, "--server", url, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed token")
}

func TestCommands_Token(t *testing.T) {
	newTestAPI(t)
	t.Setenv("HABITS_JWT_SECRET", "s3cret")

	out, err := run(t, "token", "--user", "user-1")
	require.NoError(t, err, out)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]int{
		"0":        0,
		"6":        6,
		"sat":      6,
		"Saturday": 6,
		"tues":     2,
		" mon ":    1,
	}
	for in, want := range cases {
		got, err := parseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"7", "-1", "sa", "funday"} {
		_, err := parseWeekday(in)
		assert.Error(t, err, in)
	}
}

func TestBuildHabit(t *testing.T) {
	t.Cleanup(func() {
		trackFrequency, trackWeekDay, trackMonthDay, trackStart = string(habit.Daily), "", 0, ""
	})
	now := time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC)

	trackFrequency, trackWeekDay, trackMonthDay, trackStart = "weekly", "saturday", 0, ""
	h, err := buildHabit(" long run ", now)
	require.NoError(t, err)
	assert.Equal(t, "long run", h.Name)
	require.NotNil(t, h.WeekDay)
	assert.Equal(t, 6, *h.WeekDay)
	assert.Equal(t, "2024-03-02", h.StartDate.String())
	assert.Equal(t, "every Saturday", schedule(h))

	trackFrequency, trackWeekDay, trackMonthDay = "monthly", "", 31
	h, err = buildHabit("rent", now)
	require.NoError(t, err)
	assert.Equal(t, "monthly on day 31", schedule(h))

	trackFrequency, trackMonthDay = "weekly", 0
	_, err = buildHabit("no day", now)
	assert.Error(t, err)

	trackFrequency, trackStart = "daily", "2024-13-01"
	_, err = buildHabit("bad start", now)
	assert.Error(t, err)
}
