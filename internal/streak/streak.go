// Package streak is the single home for streak and inactivity math. Every
// consumer (refresh pipeline, inactivity detection, API handlers) goes through
// the functions here rather than re-deriving them from raw calendars.
package streak

import (
	"sort"
	"time"

	"github.com/arjn/leetrack/pkg/tracker"
)

const daySeconds int64 = 24 * 60 * 60

// NeverActive is the days-inactive value for a user with no usable activity
// on record. It is deliberately far above any real day count.
const NeverActive = 999

// InactiveThreshold is the number of full days without a submission after
// which a user counts as inactive.
const InactiveThreshold = 3

// Activity before this date is treated as a data error: malformed or zero
// upstream timestamps decode to 1970-01-01.
var sanityFloor = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// AnalyzeCalendar derives a StreakSnapshot from a submission calendar and the
// upstream-reported current streak. It is total: noisy or partial input
// produces a best-effort snapshot, never an error.
func AnalyzeCalendar(cal tracker.Calendar, reportedStreak int, now time.Time) tracker.StreakSnapshot {
	last := LastActiveDay(cal, now)
	return tracker.StreakSnapshot{
		CurrentStreak: max(0, reportedStreak),
		LongestStreak: LongestStreak(cal, reportedStreak),
		LastActiveDay: last,
		DaysInactive:  daysSince(last, now),
	}
}

// LongestStreak computes the longest run of consecutive active days in the
// calendar. The upstream-reported streak acts as a floor: the calendar
// snapshot may be truncated while the reported value reflects server-side
// state, so it must never be discarded.
func LongestStreak(cal tracker.Calendar, reportedStreak int) int {
	reported := max(0, reportedStreak)

	days := activeDays(cal)
	if len(days) == 0 {
		return reported
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		switch gap := dayGap(days[i-1], days[i]); {
		case gap == 1:
			run++
			longest = max(longest, run)
		case gap == 0:
			// Duplicate day bucket: continuation, not an increment.
		default:
			run = 1
		}
	}

	return max(longest, reported)
}

// LastActiveDay returns the UTC midnight of the most recent day with at least
// one submission, or nil when the calendar holds no credible activity.
// Timestamps before the 2020 sanity floor or after now are rejected rather
// than surfaced as nonsense dates.
func LastActiveDay(cal tracker.Calendar, now time.Time) *time.Time {
	days := activeDays(cal)
	if len(days) == 0 {
		return nil
	}
	last := utcMidnight(time.Unix(days[len(days)-1], 0))
	if last.Before(sanityFloor) || last.After(now) {
		return nil
	}
	return &last
}

// DaysInactive returns full days elapsed since the last active day in the
// calendar, clamped non-negative, or NeverActive when there is none.
func DaysInactive(cal tracker.Calendar, now time.Time) int {
	return daysSince(LastActiveDay(cal, now), now)
}

// Reconcile merges a freshly computed snapshot into the previously persisted
// record for the same user. prev is nil on the first ever refresh. The merge
// is the only write path for activity records and enforces the high-water
// mark on LongestStreak: a truncated calendar or transient fetch gap must
// never lower a recorded best.
func Reconcile(prev *tracker.ActivityRecord, username string, fresh tracker.StreakSnapshot, now time.Time) tracker.ActivityRecord {
	rec := tracker.ActivityRecord{
		Username:      username,
		CurrentStreak: fresh.CurrentStreak,
		LongestStreak: fresh.LongestStreak,
		UpdatedAt:     now,
	}
	if prev != nil {
		rec.LongestStreak = max(rec.LongestStreak, prev.LongestStreak)
	}

	switch {
	case fresh.LastActiveDay != nil:
		rec.LastActivityDate = *fresh.LastActiveDay
	case prev != nil && !prev.LastActivityDate.IsZero():
		rec.LastActivityDate = prev.LastActivityDate
	default:
		// First record for a user with no visible history: fall back to
		// today so the store never holds a zero date.
		rec.LastActivityDate = utcMidnight(now)
	}

	return rec
}

// RecordDaysInactive derives days-inactive from a persisted record, for
// callers that classify without refetching the raw calendar.
func RecordDaysInactive(rec tracker.ActivityRecord, now time.Time) int {
	if rec.LastActivityDate.IsZero() {
		return NeverActive
	}
	return daysSince(&rec.LastActivityDate, now)
}

// ClassifyInactive reports whether a user should be treated as inactive for
// alerting purposes: InactiveThreshold or more full days without activity, or
// no recorded activity at all.
func ClassifyInactive(rec tracker.ActivityRecord, now time.Time) bool {
	return RecordDaysInactive(rec, now) >= InactiveThreshold
}

// activeDays returns the sorted timestamps of days with a positive
// submission count. Zero and negative counts are not activity, even when the
// key is present.
func activeDays(cal tracker.Calendar) []int64 {
	days := make([]int64, 0, len(cal))
	for ts, count := range cal {
		if count > 0 {
			days = append(days, ts)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// dayGap is the distance between two day-bucketed timestamps in whole days,
// rounded to absorb buckets that are not exactly day-aligned.
func dayGap(prev, next int64) int64 {
	return (next - prev + daySeconds/2) / daySeconds
}

func daysSince(last *time.Time, now time.Time) int {
	if last == nil {
		return NeverActive
	}
	days := int(utcMidnight(now).Sub(utcMidnight(*last)) / (24 * time.Hour))
	return max(0, days)
}

func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
