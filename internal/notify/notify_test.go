package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjn/leetrack/pkg/tracker"
)

var testNow = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(store *mockStore, notifier Notifier) *Service {
	s := NewService(store, notifier)
	s.now = func() time.Time { return testNow }
	return s
}

func addStudent(store *mockStore, username, email string, lastActive time.Time) {
	store.students = append(store.students, tracker.Student{Username: username, Email: email})
	store.activity[username] = &tracker.ActivityRecord{
		Username:         username,
		LongestStreak:    7,
		LastActivityDate: lastActive,
	}
}

func TestRun_DetectsAndAlertsInactive(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	addStudent(store, "alice", "alice@example.com", day(2024, 3, 10)) // 5 days away
	store.stats["alice"] = &tracker.DailyStat{Username: "alice", TotalSolved: 42}

	detected, err := newTestService(store, notifier).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, detected, 1)
	assert.Equal(t, "alice", detected[0].Username)
	assert.Equal(t, 5, detected[0].DaysInactive)
	assert.Contains(t, store.inactive, "alice")

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "alice@example.com", notifier.sent[0].Email)
	assert.Equal(t, 42, notifier.sent[0].TotalSolved)
	assert.Equal(t, 7, notifier.sent[0].LongestStreak)
}

func TestRun_ActiveStudentNotAlerted(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	addStudent(store, "bob", "bob@example.com", day(2024, 3, 14)) // 1 day away
	store.inactive["bob"] = tracker.InactiveStudent{Username: "bob"}

	detected, err := newTestService(store, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, detected)
	assert.Empty(t, notifier.sent)
	assert.NotContains(t, store.inactive, "bob", "recovered student leaves the inactive set")
}

func TestRun_AtMostOneAlertPerDay(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	addStudent(store, "alice", "alice@example.com", day(2024, 3, 10))

	svc := newTestService(store, notifier)
	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	_, err = svc.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, notifier.sent, 1, "second detection run the same day must not email again")
}

func TestRun_FailedSendRetriesNextRun(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{err: errors.New("transport down")}
	addStudent(store, "alice", "alice@example.com", day(2024, 3, 10))

	svc := newTestService(store, notifier)
	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.notified, "failed send must not consume the daily budget")

	notifier.err = nil
	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.sent, 1)
}

func TestRun_NoEmailAddress(t *testing.T) {
	store := newMockStore()
	notifier := &mockNotifier{}
	addStudent(store, "alice", "", day(2024, 3, 1))

	detected, err := newTestService(store, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, detected, 1, "still lands in the inactive set")
	assert.Empty(t, notifier.sent)
}

func TestRun_SkipsNeverRefreshedStudents(t *testing.T) {
	store := newMockStore()
	store.students = append(store.students, tracker.Student{Username: "newbie", Email: "n@example.com"})
	notifier := &mockNotifier{}

	detected, err := newTestService(store, notifier).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, detected)
	assert.Empty(t, notifier.sent)
}
