package tracker

import "time"

// Calendar is the sparse per-day activity record reported by the upstream
// judge: UTC day-boundary unix seconds mapped to submission count for that day.
type Calendar map[int64]int

// Student is one roster entry in the tracked cohort.
type Student struct {
	Username  string    `json:"username"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	RollNo    string    `json:"roll_no,omitempty"`
	BatchYear int       `json:"batch_year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the per-user state fetched from the upstream judge on each
// refresh cycle.
type Profile struct {
	Username        string   `json:"username"`
	RealName        string   `json:"real_name,omitempty"`
	Avatar          string   `json:"avatar,omitempty"`
	Ranking         int      `json:"ranking"`
	TotalSolved     int      `json:"total_solved"`
	EasySolved      int      `json:"easy_solved"`
	MediumSolved    int      `json:"medium_solved"`
	HardSolved      int      `json:"hard_solved"`
	ReportedStreak  int      `json:"reported_streak"`
	TotalActiveDays int      `json:"total_active_days"`
	Calendar        Calendar `json:"-"`
}

// StreakSnapshot is the result of analyzing one submission calendar. It is
// recomputed on every refresh and never persisted directly.
type StreakSnapshot struct {
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastActiveDay *time.Time `json:"last_active_day,omitempty"`
	DaysInactive  int        `json:"days_inactive"`
}

// ActivityRecord is the persisted per-user streak state, one row per user.
// LongestStreak is a high-water mark: it never decreases across writes.
type ActivityRecord struct {
	Username         string    `json:"username"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	LastActivityDate time.Time `json:"last_activity_date"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DailyStat is one per-user per-day snapshot of cumulative solve counts.
type DailyStat struct {
	Username           string     `json:"username"`
	Date               time.Time  `json:"date"`
	TotalSolved        int        `json:"total_solved"`
	EasySolved         int        `json:"easy_solved"`
	MediumSolved       int        `json:"medium_solved"`
	HardSolved         int        `json:"hard_solved"`
	Ranking            int        `json:"ranking"`
	LastSubmissionDate *time.Time `json:"last_submission_date,omitempty"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	Username      string `json:"username"`
	Name          string `json:"name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	TotalSolved   int    `json:"total_solved"`
	EasySolved    int    `json:"easy_solved"`
	MediumSolved  int    `json:"medium_solved"`
	HardSolved    int    `json:"hard_solved"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	Ranking       int    `json:"ranking"`
}

// InactiveStudent is one entry in the persisted inactive set.
type InactiveStudent struct {
	Username         string     `json:"username"`
	DaysInactive     int        `json:"days_inactive"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	DetectedAt       time.Time  `json:"detected_at"`
}

// Visit is one logged request against the dashboard.
type Visit struct {
	Time      time.Time `json:"time"`
	IP        string    `json:"ip"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referer   string    `json:"referer,omitempty"`
}
