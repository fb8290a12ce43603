// Package notify detects inactive students and sends at most one warning per
// student per day.
package notify

import (
	"context"
	"time"

	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/internal/streak"
	"github.com/arjn/leetrack/pkg/tracker"
)

// Alert carries everything the email template needs.
type Alert struct {
	Email         string
	Username      string
	Name          string
	DaysInactive  int
	TotalSolved   int
	LongestStreak int
}

// Notifier delivers one inactivity alert. Implementations own the transport.
type Notifier interface {
	SendAlert(ctx context.Context, alert Alert) error
}

// Querier is the slice of the store the detector needs.
type Querier interface {
	ListStudents() ([]tracker.Student, error)
	GetActivityRecord(username string) (*tracker.ActivityRecord, error)
	LatestDailyStat(username string) (*tracker.DailyStat, error)
	PutInactive(entry tracker.InactiveStudent) error
	ClearInactive(username string) error
	LastNotified(username string) (time.Time, error)
	SetLastNotified(username string, day time.Time) error
}

type Service struct {
	store    Querier
	notifier Notifier
	now      func() time.Time
}

func NewService(store Querier, notifier Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// Run classifies every student against their persisted activity record,
// maintains the inactive set, and alerts newly detected inactive students.
// Detection runs repeatedly within a day; the last-notified date keeps that
// from producing duplicate emails. Students whose records are missing (never
// refreshed) are skipped, not alerted.
func (s *Service) Run(ctx context.Context) ([]tracker.InactiveStudent, error) {
	students, err := s.store.ListStudents()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var detected []tracker.InactiveStudent

	for _, st := range students {
		rec, err := s.store.GetActivityRecord(st.Username)
		if err != nil {
			logger.Error("Inactivity check failed", "username", st.Username, "error", err)
			continue
		}
		if rec == nil {
			continue
		}

		if !streak.ClassifyInactive(*rec, now) {
			if err := s.store.ClearInactive(st.Username); err != nil {
				logger.Error("Failed to clear inactive entry", "username", st.Username, "error", err)
			}
			continue
		}

		entry := tracker.InactiveStudent{
			Username:     st.Username,
			DaysInactive: streak.RecordDaysInactive(*rec, now),
			DetectedAt:   now,
		}
		if !rec.LastActivityDate.IsZero() {
			d := rec.LastActivityDate
			entry.LastActivityDate = &d
		}
		if err := s.store.PutInactive(entry); err != nil {
			logger.Error("Failed to persist inactive entry", "username", st.Username, "error", err)
			continue
		}
		detected = append(detected, entry)

		s.maybeAlert(ctx, st, *rec, entry, now)
	}

	logger.Info("Inactivity check finished", "students", len(students), "inactive", len(detected))
	return detected, nil
}

// LogNotifier logs alerts instead of delivering them. Used when no email
// transport is configured.
type LogNotifier struct{}

func (LogNotifier) SendAlert(_ context.Context, alert Alert) error {
	logger.Info("Inactivity alert (not delivered)",
		"username", alert.Username, "days_inactive", alert.DaysInactive)
	return nil
}

var _ Notifier = LogNotifier{}

func (s *Service) maybeAlert(ctx context.Context, st tracker.Student, rec tracker.ActivityRecord, entry tracker.InactiveStudent, now time.Time) {
	if st.Email == "" {
		return
	}

	last, err := s.store.LastNotified(st.Username)
	if err != nil {
		logger.Error("Failed to read notification state", "username", st.Username, "error", err)
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if last.Equal(today) {
		return
	}

	alert := Alert{
		Email:         st.Email,
		Username:      st.Username,
		Name:          st.Name,
		DaysInactive:  entry.DaysInactive,
		LongestStreak: rec.LongestStreak,
	}
	if stat, err := s.store.LatestDailyStat(st.Username); err == nil && stat != nil {
		alert.TotalSolved = stat.TotalSolved
	}

	if err := s.notifier.SendAlert(ctx, alert); err != nil {
		logger.Error("Failed to send inactivity alert", "username", st.Username, "error", err)
		return
	}
	if err := s.store.SetLastNotified(st.Username, today); err != nil {
		logger.Error("Failed to record notification", "username", st.Username, "error", err)
	}
	logger.Info("Sent inactivity alert", "username", st.Username, "days_inactive", entry.DaysInactive)
}
