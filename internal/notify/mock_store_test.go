package notify

import (
	"time"

	"github.com/arjn/leetrack/pkg/tracker"
)

type mockStore struct {
	students []tracker.Student
	activity map[string]*tracker.ActivityRecord
	stats    map[string]*tracker.DailyStat
	inactive map[string]tracker.InactiveStudent
	notified map[string]time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		activity: map[string]*tracker.ActivityRecord{},
		stats:    map[string]*tracker.DailyStat{},
		inactive: map[string]tracker.InactiveStudent{},
		notified: map[string]time.Time{},
	}
}

func (m *mockStore) ListStudents() ([]tracker.Student, error) {
	return m.students, nil
}

func (m *mockStore) GetActivityRecord(username string) (*tracker.ActivityRecord, error) {
	return m.activity[username], nil
}

func (m *mockStore) LatestDailyStat(username string) (*tracker.DailyStat, error) {
	return m.stats[username], nil
}

func (m *mockStore) PutInactive(entry tracker.InactiveStudent) error {
	m.inactive[entry.Username] = entry
	return nil
}

func (m *mockStore) ClearInactive(username string) error {
	delete(m.inactive, username)
	return nil
}

func (m *mockStore) LastNotified(username string) (time.Time, error) {
	return m.notified[username], nil
}

func (m *mockStore) SetLastNotified(username string, day time.Time) error {
	m.notified[username] = day
	return nil
}

var _ Querier = (*mockStore)(nil)
