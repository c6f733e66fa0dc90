package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/taharajati/habit-tracker/internal/storage/memory"
	"github.com/taharajati/habit-tracker/pkg/habit"
)

func TestRecordMood_Upserts(t *testing.T) {
	h := newTestServer(t, memory.New())

	for _, req := range []MoodRequest{
		{Level: 2, Note: "rough", Date: "2024-03-25"},
		{Level: 4, Note: "better", Date: "2024-03-25"},
		{Level: 5, Date: "2024-03-30"},
	} {
		rr := mockRequest(h, http.MethodPost, "/mood", req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("got %d want 201, body: %s", rr.Code, rr.Body.String())
		}
	}

	rr := mockRequest(h, http.MethodGet, "/mood?range=week&date=2024-03-31", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	var list MoodListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(list.Entries) != 2 {
		t.Fatalf("got %d entries want 2", len(list.Entries))
	}
	if list.Entries[1].Level != 4 || list.Entries[1].Note != "better" {
		t.Fatalf("expected the later write for 2024-03-25, got %+v", list.Entries[1])
	}
	if list.From.String() != "2024-03-24" {
		t.Fatalf("got from %s want 2024-03-24", list.From)
	}

	rr = mockRequest(h, http.MethodGet, "/mood/stats?date=2024-03-31", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats: got %d want 200", rr.Code)
	}
	var stats MoodStatsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	want := habit.MoodStats{Average: 4.5, Lowest: 4, Highest: 5, Count: 2}
	if stats.Stats != want {
		t.Fatalf("got stats %+v want %+v", stats.Stats, want)
	}
}

func TestRecordMood_Invalid(t *testing.T) {
	h := newTestServer(t, memory.New())

	cases := map[string]any{
		"level zero":   MoodRequest{Level: 0},
		"level six":    MoodRequest{Level: 6},
		"bad date":     MoodRequest{Level: 3, Date: "someday"},
		"level string": map[string]any{"level": "happy"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := mockRequest(h, http.MethodPost, "/mood", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d want 400, body: %s", rr.Code, rr.Body.String())
			}
		})
	}

	rr := mockRequest(h, http.MethodGet, "/mood?range=decade", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("range=decade: got %d want 400", rr.Code)
	}
}
