package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/taharajati/habit-tracker/internal/logger"
	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/internal/tracker"
	"github.com/taharajati/habit-tracker/pkg/habit"
	"github.com/taharajati/habit-tracker/pkg/versioninfo"
)

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, code int, msg string) {
	_ = writeJSON(w, code, map[string]string{"error": msg})
}

// writeError maps engine errors to their HTTP status: unknown habits are 404
// and rejected operations 400. Anything else is logged and reported as msg.
func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, habit.ErrNotFound):
		writeErrorJSON(w, http.StatusNotFound, "habit not found")
	case errors.Is(err, habit.ErrInvalidOperation):
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(msg, "error", err)
		writeErrorJSON(w, http.StatusInternalServerError, msg)
	}
}

// today is the logical day in the configured timezone.
func (s *Server) today() civil.Date {
	return habit.Today(s.loc)
}

// dateParam parses the named query parameter, defaulting to today.
func (s *Server) dateParam(r *http.Request, name string) (civil.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return s.today(), nil
	}
	return civil.ParseDate(v)
}

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	info := versioninfo.VersionInfo{
		Version:   versioninfo.Version,
		BuildDate: versioninfo.BuildDate,
	}
	if err := writeJSON(w, http.StatusOK, info); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
		http.Error(w, `{"error":"failed to serialize version info"}`, http.StatusInternalServerError)
		return
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Debug("Listing habits", "user_id", userID)
	if userID == "" {
		logger.Warn("Missing user ID for list habits")
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	habits, err := s.store.ListHabits(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list habits", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	logger.Debug("Listed habits successfully", "user_id", userID, "count", len(habits))
	UpdateActiveHabitsForUser(userID, len(habits))
	if err := writeJSON(w, http.StatusOK, HabitListResponse{Habits: habits}); err != nil {
		logger.Error("Failed to serialize habit list response", "user_id", userID, "error", err)
	}
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Debug("Creating habit", "user_id", userID)
	if userID == "" {
		logger.Warn("Missing user ID for create habit")
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	var h habit.Habit
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		logger.Warn("Invalid JSON in create habit request", "error", err)
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if !h.StartDate.IsValid() {
		h.StartDate = s.today()
	}
	if err := h.Validate(); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateHabit(r.Context(), userID, h)
	if err != nil {
		logger.Error("Failed to store habit", "user_id", userID, "habit_name", h.Name, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	logger.Info("Habit created", "user_id", userID, "habit_id", created.ID, "frequency", created.Frequency)
	s.refreshActiveHabits(r, userID)

	if err := writeJSON(w, http.StatusCreated, created); err != nil {
		logger.Error("Failed to serialize create habit response", "user_id", userID, "error", err)
	}
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}

	h, err := s.store.GetHabit(r.Context(), userID, habitID)
	if err != nil {
		writeError(w, err, "storage error")
		return
	}
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize get habit response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	var h habit.Habit
	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	h.ID = habitID
	if err := h.Validate(); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.store.UpdateHabit(r.Context(), userID, h)
	if err != nil {
		writeError(w, err, "database write failed")
		return
	}
	logger.Info("Habit updated", "user_id", userID, "habit_id", habitID)
	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		logger.Error("Failed to serialize update habit response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Info("Deleting habit", "user_id", userID, "habit_id", habitID)
	if userID == "" || habitID == "" {
		logger.Warn("Missing required parameters for delete", "user_id", userID, "habit_id", habitID)
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteHabit(r.Context(), userID, habitID); err != nil {
		writeError(w, err, "storage error")
		return
	}
	logger.Info("Habit deleted successfully", "user_id", userID, "habit_id", habitID)
	s.refreshActiveHabits(r, userID)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getHabitSummary(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Debug("Getting habit summary", "habit_id", habitID, "user_id", userID)
	if userID == "" || habitID == "" {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	ref, err := s.dateParam(r, "date")
	if err != nil {
		http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
		return
	}

	snap, err := s.tracker.GetSnapshot(r.Context(), userID, habitID, ref)
	if err != nil {
		writeError(w, err, "error building summary")
		return
	}
	if err := writeJSON(w, http.StatusOK, snap); err != nil {
		logger.Error("Failed to serialize habit summary response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) listHabitProgress(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}

	f := storage.ProgressFilter{HabitID: habitID}
	for name, dst := range map[string]*civil.Date{"from": &f.From, "to": &f.To} {
		if v := r.URL.Query().Get(name); v != "" {
			d, err := civil.ParseDate(v)
			if err != nil {
				writeErrorJSON(w, http.StatusBadRequest, "invalid "+name+" date")
				return
			}
			*dst = d
		}
	}

	if _, err := s.store.GetHabit(r.Context(), userID, habitID); err != nil {
		writeError(w, err, "storage error")
		return
	}
	entries, err := s.store.ListProgress(r.Context(), userID, f)
	if err != nil {
		writeError(w, err, "storage error")
		return
	}
	if err := writeJSON(w, http.StatusOK, HabitProgressResponse{HabitID: habitID, Entries: entries}); err != nil {
		logger.Error("Failed to serialize progress response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) putHabitProgress(w http.ResponseWriter, r *http.Request) {
	day, err := civil.ParseDate(chi.URLParam(r, "day"))
	if err != nil {
		http.Error(w, `{"error":"invalid day"}`, http.StatusBadRequest)
		return
	}
	var req ProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Completed == nil {
		http.Error(w, `{"error":"completed is required"}`, http.StatusBadRequest)
		return
	}
	s.toggle(w, r, day, *req.Completed)
}

func (s *Server) completeHabit(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	day := s.today()
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
			return
		}
		day = d
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	s.toggle(w, r, day, completed)
}

// toggle records the outcome for the habit in the URL and replies with its
// snapshot as of that day.
func (s *Server) toggle(w http.ResponseWriter, r *http.Request, day civil.Date, completed bool) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}

	err := s.tracker.ToggleCompletion(r.Context(), userID, habitID, day, completed)
	RecordToggle(err)
	if err != nil {
		writeError(w, err, "database write failed")
		return
	}

	snap, err := s.tracker.GetSnapshot(r.Context(), userID, habitID, day)
	if err != nil {
		writeError(w, err, "error building summary")
		return
	}
	if err := writeJSON(w, http.StatusOK, snap); err != nil {
		logger.Error("Failed to serialize toggle response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) getHabitStats(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}
	ref, err := s.dateParam(r, "date")
	if err != nil {
		http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
		return
	}

	stats, err := s.tracker.PeriodStats(r.Context(), userID, habitID, r.URL.Query().Get("period"), ref)
	if err != nil {
		writeError(w, err, "error computing stats")
		return
	}
	if err := writeJSON(w, http.StatusOK, stats); err != nil {
		logger.Error("Failed to serialize stats response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) getSnapshots(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	ref, err := s.dateParam(r, "date")
	if err != nil {
		http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
		return
	}

	svc := s.tracker
	if v := r.URL.Query().Get("lookback"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"lookback must be a positive number of days"}`, http.StatusBadRequest)
			return
		}
		svc = tracker.New(s.store, n)
	}

	start := time.Now()
	dash, err := svc.GetSnapshots(r.Context(), userID, ref)
	if err != nil {
		writeError(w, err, "error building snapshots")
		return
	}
	snapshotBuildDuration.Observe(time.Since(start).Seconds())
	UpdateActiveHabitsForUser(userID, len(dash.Snapshots))

	if err := writeJSON(w, http.StatusOK, dash); err != nil {
		logger.Error("Failed to serialize snapshots response", "user_id", userID, "error", err)
	}
}

func (s *Server) getDailyProgress(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	to, err := s.dateParam(r, "date")
	if err != nil {
		http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
		return
	}

	rng := r.URL.Query().Get("range")
	var from civil.Date
	switch rng {
	case "", "week":
		rng, from = "week", to.AddDays(-6)
	case "month":
		from = to.AddDays(-29)
	default:
		http.Error(w, `{"error":"range must be week or month"}`, http.StatusBadRequest)
		return
	}

	days, err := s.tracker.DailyProgress(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, err, "error computing progress")
		return
	}
	if err := writeJSON(w, http.StatusOK, DailyProgressResponse{Range: rng, Days: days}); err != nil {
		logger.Error("Failed to serialize daily progress response", "user_id", userID, "error", err)
	}
}

func (s *Server) recordMood(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	var req MoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	m := habit.MoodEntry{Day: s.today(), Level: req.Level, Note: req.Note}
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
			return
		}
		m.Day = d
	}

	stored, err := s.tracker.RecordMood(r.Context(), userID, m)
	if err != nil {
		writeError(w, err, "database write failed")
		return
	}
	if err := writeJSON(w, http.StatusCreated, stored); err != nil {
		logger.Error("Failed to serialize mood response", "user_id", userID, "error", err)
	}
}

// moodReport serves the shared part of the mood list and stats handlers.
func (s *Server) moodReport(w http.ResponseWriter, r *http.Request) (tracker.MoodReport, bool) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return tracker.MoodReport{}, false
	}
	ref, err := s.dateParam(r, "date")
	if err != nil {
		http.Error(w, `{"error":"invalid date"}`, http.StatusBadRequest)
		return tracker.MoodReport{}, false
	}
	report, err := s.tracker.Moods(r.Context(), userID, r.URL.Query().Get("range"), ref)
	if err != nil {
		writeError(w, err, "error listing moods")
		return tracker.MoodReport{}, false
	}
	return report, true
}

func (s *Server) listMoods(w http.ResponseWriter, r *http.Request) {
	report, ok := s.moodReport(w, r)
	if !ok {
		return
	}
	resp := MoodListResponse{Period: report.Period, From: report.From, To: report.To, Entries: report.Entries}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize mood list response", "error", err)
	}
}

func (s *Server) getMoodStats(w http.ResponseWriter, r *http.Request) {
	report, ok := s.moodReport(w, r)
	if !ok {
		return
	}
	resp := MoodStatsResponse{Period: report.Period, From: report.From, To: report.To, Stats: report.Stats}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize mood stats response", "error", err)
	}
}

func (s *Server) refreshActiveHabits(r *http.Request, userID string) {
	habits, err := s.store.ListHabits(r.Context(), userID)
	if err != nil {
		logger.Warn("Failed to update active habits metric", "user_id", userID, "error", err)
		return
	}
	UpdateActiveHabitsForUser(userID, len(habits))
}
