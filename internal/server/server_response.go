package server

import (
	"time"

	"github.com/arjn/leetrack/internal/refresh"
	"github.com/arjn/leetrack/pkg/tracker"
)

type LeaderboardResponse struct {
	GeneratedAt   time.Time                  `json:"generated_at"`
	TotalStudents int                        `json:"total_students"`
	Entries       []tracker.LeaderboardEntry `json:"entries"`
}

type StudentListResponse struct {
	Students []tracker.Student `json:"students"`
}

type StudentDetailResponse struct {
	Student      tracker.Student         `json:"student"`
	Stats        *tracker.DailyStat      `json:"stats,omitempty"`
	Activity     *tracker.ActivityRecord `json:"activity,omitempty"`
	DaysInactive int                     `json:"days_inactive"`
	Inactive     bool                    `json:"inactive"`
}

type InactiveResponse struct {
	Inactive []tracker.InactiveStudent `json:"inactive"`
}

type RefreshResponse struct {
	refresh.Summary
}

type HistoryPoint struct {
	Date              string `json:"date"`
	TotalSolved       int    `json:"total_solved"`
	StudentsReporting int    `json:"students_reporting"`
}

type AnalyticsHistoryResponse struct {
	Days   int            `json:"days"`
	Points []HistoryPoint `json:"points"`
}

type VisitorSummaryResponse struct {
	LastDay  int `json:"last_day"`
	LastWeek int `json:"last_week"`
}
