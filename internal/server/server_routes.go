package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arjn/leetrack/internal/leetcode"
	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/internal/refresh"
	"github.com/arjn/leetrack/internal/streak"
	"github.com/arjn/leetrack/pkg/tracker"
	"github.com/arjn/leetrack/pkg/versioninfo"
)

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.ListStudents()
	if err != nil {
		logger.Error("Failed to list students for leaderboard", "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}

	entries := make([]tracker.LeaderboardEntry, 0, len(students))
	for _, st := range students {
		entry := tracker.LeaderboardEntry{Username: st.Username, Name: st.Name}

		stat, err := s.store.LatestDailyStat(st.Username)
		if err != nil {
			logger.Error("Failed to load stats for leaderboard", "username", st.Username, "error", err)
			http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
			return
		}
		if stat != nil {
			entry.TotalSolved = stat.TotalSolved
			entry.EasySolved = stat.EasySolved
			entry.MediumSolved = stat.MediumSolved
			entry.HardSolved = stat.HardSolved
			entry.Ranking = stat.Ranking
		}

		rec, err := s.store.GetActivityRecord(st.Username)
		if err != nil {
			logger.Error("Failed to load activity for leaderboard", "username", st.Username, "error", err)
			http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
			return
		}
		if rec != nil {
			entry.CurrentStreak = rec.CurrentStreak
			entry.LongestStreak = rec.LongestStreak
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalSolved != entries[j].TotalSolved {
			return entries[i].TotalSolved > entries[j].TotalSolved
		}
		if entries[i].CurrentStreak != entries[j].CurrentStreak {
			return entries[i].CurrentStreak > entries[j].CurrentStreak
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	if limit := queryInt(r, "limit", 0); limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	resp := LeaderboardResponse{
		GeneratedAt:   time.Now().UTC(),
		TotalStudents: len(students),
		Entries:       entries,
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize leaderboard response", "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) listStudents(w http.ResponseWriter, _ *http.Request) {
	students, err := s.store.ListStudents()
	if err != nil {
		logger.Error("Failed to list students", "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	trackedStudents.Set(float64(len(students)))
	if students == nil {
		students = []tracker.Student{}
	}
	if err := writeJSON(w, http.StatusOK, StudentListResponse{Students: students}); err != nil {
		logger.Error("Failed to serialize student list response", "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) addStudent(w http.ResponseWriter, r *http.Request) {
	var st tracker.Student
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		logger.Warn("Invalid JSON in add student request", "error", err)
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := validateStudent(st); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusBadRequest)
		return
	}

	existing, err := s.store.GetStudent(st.Username)
	if err != nil {
		logger.Error("Failed to check existing student", "username", st.Username, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, `{"error":"student already tracked"}`, http.StatusConflict)
		return
	}

	st.CreatedAt = time.Now().UTC()
	logger.Info("Adding student", "username", st.Username, "batch_year", st.BatchYear)
	if err := s.store.PutStudent(st); err != nil {
		logger.Error("Failed to store student", "username", st.Username, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}

	if err := writeJSON(w, http.StatusCreated, st); err != nil {
		logger.Error("Failed to serialize add student response", "username", st.Username, "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		http.Error(w, `{"error":"username is required"}`, http.StatusBadRequest)
		return
	}

	st, err := s.store.GetStudent(username)
	if err != nil {
		logger.Error("Failed to get student", "username", username, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.Error(w, `{"error":"student not found"}`, http.StatusNotFound)
		return
	}

	resp := StudentDetailResponse{Student: *st, DaysInactive: streak.NeverActive}

	if resp.Stats, err = s.store.LatestDailyStat(username); err != nil {
		logger.Error("Failed to get student stats", "username", username, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if resp.Activity, err = s.store.GetActivityRecord(username); err != nil {
		logger.Error("Failed to get activity record", "username", username, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if resp.Activity != nil {
		now := time.Now().UTC()
		resp.DaysInactive = streak.RecordDaysInactive(*resp.Activity, now)
		resp.Inactive = streak.ClassifyInactive(*resp.Activity, now)
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize student detail response", "username", username, "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) removeStudent(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	logger.Info("Removing student", "username", username)
	if username == "" {
		http.Error(w, `{"error":"username is required"}`, http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteStudent(username); err != nil {
		logger.Error("Failed to delete student", "username", username, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getInactive(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.store.ListInactive()
	if err != nil {
		logger.Error("Failed to list inactive students", "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []tracker.InactiveStudent{}
	}
	if err := writeJSON(w, http.StatusOK, InactiveResponse{Inactive: entries}); err != nil {
		logger.Error("Failed to serialize inactive response", "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) triggerRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}
	}

	if body.Username != "" {
		logger.Info("Manual refresh requested", "username", body.Username)
		if err := s.refresher.RefreshUser(r.Context(), body.Username); err != nil {
			if errors.Is(err, leetcode.ErrUserNotFound) {
				http.Error(w, `{"error":"user not found upstream"}`, http.StatusNotFound)
				return
			}
			logger.Error("Manual refresh failed", "username", body.Username, "error", err)
			http.Error(w, `{"error":"refresh failed"}`, http.StatusBadGateway)
			return
		}
		_ = writeJSON(w, http.StatusOK, RefreshResponse{Summary: refreshSummaryFor(body.Username)})
		return
	}

	logger.Info("Manual cohort refresh requested")
	summary, err := s.refresher.RefreshAll(r.Context())
	if err != nil {
		logger.Error("Manual cohort refresh failed", "error", err)
		http.Error(w, `{"error":"refresh failed"}`, http.StatusInternalServerError)
		return
	}
	if err := writeJSON(w, http.StatusOK, RefreshResponse{Summary: summary}); err != nil {
		logger.Error("Failed to serialize refresh response", "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) triggerDetect(w http.ResponseWriter, r *http.Request) {
	logger.Info("Manual inactivity detection requested")
	detected, err := s.detector.Run(r.Context())
	if err != nil {
		logger.Error("Inactivity detection failed", "error", err)
		http.Error(w, `{"error":"detection failed"}`, http.StatusInternalServerError)
		return
	}
	if detected == nil {
		detected = []tracker.InactiveStudent{}
	}
	if err := writeJSON(w, http.StatusOK, InactiveResponse{Inactive: detected}); err != nil {
		logger.Error("Failed to serialize detection response", "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) getAnalyticsHistory(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	students, err := s.store.ListStudents()
	if err != nil {
		logger.Error("Failed to list students for analytics", "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}

	type bucket struct {
		total int
		count int
	}
	byDate := map[string]*bucket{}
	for _, st := range students {
		stats, err := s.store.DailyStatsSince(st.Username, since)
		if err != nil {
			logger.Error("Failed to load stat history", "username", st.Username, "error", err)
			http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
			return
		}
		for _, stat := range stats {
			key := stat.Date.UTC().Format("2006-01-02")
			b, ok := byDate[key]
			if !ok {
				b = &bucket{}
				byDate[key] = b
			}
			b.total += stat.TotalSolved
			b.count++
		}
	}

	points := make([]HistoryPoint, 0, len(byDate))
	for date, b := range byDate {
		points = append(points, HistoryPoint{Date: date, TotalSolved: b.total, StudentsReporting: b.count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	resp := AnalyticsHistoryResponse{Days: days, Points: points}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize analytics response", "error", err)
		http.Error(w, `{"error":"failed to serialize response"}`, http.StatusInternalServerError)
	}
}

func (s *Server) getVisitorSummary(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().UTC()
	lastDay, err := s.store.CountVisitsSince(now.Add(-24 * time.Hour))
	if err != nil {
		logger.Error("Failed to count daily visits", "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	lastWeek, err := s.store.CountVisitsSince(now.AddDate(0, 0, -7))
	if err != nil {
		logger.Error("Failed to count weekly visits", "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	_ = writeJSON(w, http.StatusOK, VisitorSummaryResponse{LastDay: lastDay, LastWeek: lastWeek})
}

func refreshSummaryFor(username string) refresh.Summary {
	return refresh.Summary{
		Success: 1,
		Results: []refresh.Result{{Username: username, Status: "ok"}},
	}
}

func validateStudent(st tracker.Student) error {
	const maxNameLength = 100
	const maxUsernameLength = 64

	if len(st.Username) == 0 || len(st.Username) > maxUsernameLength {
		return fmt.Errorf("bad username: must be 1-%d characters", maxUsernameLength)
	}
	if strings.ContainsAny(st.Username, " /") {
		return fmt.Errorf("bad username: must not contain spaces or slashes")
	}
	if len(st.Name) > maxNameLength {
		return fmt.Errorf("bad name: must be 0-%d characters", maxNameLength)
	}
	if st.Email != "" && !strings.Contains(st.Email, "@") {
		return fmt.Errorf("bad email address")
	}
	if st.BatchYear != 0 && (st.BatchYear < 2000 || st.BatchYear > 2100) {
		return fmt.Errorf("bad batch year")
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
