package server

import (
	"context"
	"sync"
	"time"

	"github.com/arjn/leetrack/internal/refresh"
	"github.com/arjn/leetrack/internal/storage"
	"github.com/arjn/leetrack/pkg/tracker"
)

type memStore struct {
	mu       sync.RWMutex
	students map[string]tracker.Student
	activity map[string]tracker.ActivityRecord
	stats    map[string][]tracker.DailyStat
	inactive map[string]tracker.InactiveStudent
	notified map[string]time.Time
	visits   []tracker.Visit
}

func newMemStore() *memStore {
	return &memStore{
		students: map[string]tracker.Student{},
		activity: map[string]tracker.ActivityRecord{},
		stats:    map[string][]tracker.DailyStat{},
		inactive: map[string]tracker.InactiveStudent{},
		notified: map[string]time.Time{},
	}
}

func (m *memStore) PutStudent(s tracker.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.Username] = s
	return nil
}

func (m *memStore) GetStudent(username string) (*tracker.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[username]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) ListStudents() ([]tracker.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []tracker.Student{}
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) DeleteStudent(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.students, username)
	delete(m.activity, username)
	delete(m.stats, username)
	delete(m.inactive, username)
	delete(m.notified, username)
	return nil
}

func (m *memStore) GetActivityRecord(username string) (*tracker.ActivityRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.activity[username]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) PutActivityRecord(rec tracker.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[rec.Username] = rec
	return nil
}

func (m *memStore) PutDailyStat(stat tracker.DailyStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[stat.Username] = append(m.stats[stat.Username], stat)
	return nil
}

func (m *memStore) LatestDailyStat(username string) (*tracker.DailyStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := m.stats[username]
	if len(stats) == 0 {
		return nil, nil
	}
	latest := stats[0]
	for _, s := range stats[1:] {
		if s.Date.After(latest.Date) {
			latest = s
		}
	}
	return &latest, nil
}

func (m *memStore) DailyStatsSince(username string, since time.Time) ([]tracker.DailyStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []tracker.DailyStat
	for _, s := range m.stats[username] {
		if !s.Date.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) PutInactive(entry tracker.InactiveStudent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inactive[entry.Username] = entry
	return nil
}

func (m *memStore) ListInactive() ([]tracker.InactiveStudent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []tracker.InactiveStudent{}
	for _, e := range m.inactive {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) ClearInactive(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inactive, username)
	return nil
}

func (m *memStore) LastNotified(username string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notified[username], nil
}

func (m *memStore) SetLastNotified(username string, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified[username] = day
	return nil
}

func (m *memStore) LogVisit(v tracker.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits = append(m.visits, v)
	return nil
}

func (m *memStore) CountVisitsSince(since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, v := range m.visits {
		if !v.Time.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memStore) Close() error { return nil }

var _ storage.Store = (*memStore)(nil)

type stubRefresher struct {
	summary   refresh.Summary
	userErr   error
	refreshed []string
}

func (s *stubRefresher) RefreshAll(context.Context) (refresh.Summary, error) {
	return s.summary, nil
}

func (s *stubRefresher) RefreshUser(_ context.Context, username string) error {
	if s.userErr != nil {
		return s.userErr
	}
	s.refreshed = append(s.refreshed, username)
	return nil
}

type stubDetector struct {
	detected []tracker.InactiveStudent
}

func (s *stubDetector) Run(context.Context) ([]tracker.InactiveStudent, error) {
	return s.detected, nil
}
