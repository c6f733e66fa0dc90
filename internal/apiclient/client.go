package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/taharajati/habit-tracker/internal/server"
	"github.com/taharajati/habit-tracker/internal/tracker"
	"github.com/taharajati/habit-tracker/pkg/habit"
	"github.com/taharajati/habit-tracker/pkg/versioninfo"
)

type Client struct {
	BaseURL string
	// Token is sent as a bearer token when set. It may be an API key, a
	// service token or a provider-prefixed ID token.
	Token string
	HTTP  *http.Client
}

func New(base, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		Token:   token,
		HTTP:    http.DefaultClient,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &StatusError{Op: op, Status: res.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) Version(ctx context.Context) (versioninfo.VersionInfo, error) {
	var out versioninfo.VersionInfo
	err := c.do(ctx, "version", http.MethodGet, "/version", nil, &out)
	return out, err
}

func (c *Client) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	var response server.HabitListResponse
	if err := c.do(ctx, "list habits", http.MethodGet, "/habits/", nil, &response); err != nil {
		return nil, err
	}
	return response.Habits, nil
}

func (c *Client) CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	var out habit.Habit
	err := c.do(ctx, "create habit", http.MethodPost, "/habits/", h, &out)
	return out, err
}

func (c *Client) DeleteHabit(ctx context.Context, habitID string) error {
	return c.do(ctx, "delete habit", http.MethodDelete, "/habits/"+url.PathEscape(habitID), nil, nil)
}

// GetSnapshots fetches the dashboard as of ref, or the server's today when
// ref is the zero date.
func (c *Client) GetSnapshots(ctx context.Context, ref civil.Date) (tracker.Dashboard, error) {
	path := "/snapshots"
	if ref.IsValid() {
		path += "?date=" + ref.String()
	}
	var out tracker.Dashboard
	err := c.do(ctx, "snapshots", http.MethodGet, path, nil, &out)
	return out, err
}

// ToggleCompletion records completed for the habit on day and returns the
// habit's snapshot as of that day.
func (c *Client) ToggleCompletion(ctx context.Context, habitID string, day civil.Date, completed bool) (habit.Snapshot, error) {
	path := "/habits/" + url.PathEscape(habitID) + "/progress/" + day.String()
	var out habit.Snapshot
	err := c.do(ctx, "toggle "+habitID, http.MethodPut, path, server.ProgressRequest{Completed: &completed}, &out)
	return out, err
}

// RecordMood stores level and note for day, or for the server's today when
// day is the zero date.
func (c *Client) RecordMood(ctx context.Context, day civil.Date, level int, note string) (habit.MoodEntry, error) {
	req := server.MoodRequest{Level: level, Note: note}
	if day.IsValid() {
		req.Date = day.String()
	}
	var out habit.MoodEntry
	err := c.do(ctx, "record mood", http.MethodPost, "/mood", req, &out)
	return out, err
}

// MoodStats summarises the mood entries over period ("", week, month or
// year) ending at the server's today.
func (c *Client) MoodStats(ctx context.Context, period string) (server.MoodStatsResponse, error) {
	path := "/mood/stats"
	if period != "" {
		path += "?range=" + url.QueryEscape(period)
	}
	var out server.MoodStatsResponse
	err := c.do(ctx, "mood stats", http.MethodGet, path, nil, &out)
	return out, err
}
