package storage

import (
	"time"

	"github.com/arjn/leetrack/pkg/tracker"
)

// Store is the persistence boundary for the tracker. Lookups for a missing
// row return (nil, nil) rather than an error.
type Store interface {
	PutStudent(s tracker.Student) error
	GetStudent(username string) (*tracker.Student, error)
	ListStudents() ([]tracker.Student, error)
	DeleteStudent(username string) error

	GetActivityRecord(username string) (*tracker.ActivityRecord, error)
	PutActivityRecord(rec tracker.ActivityRecord) error

	PutDailyStat(stat tracker.DailyStat) error
	LatestDailyStat(username string) (*tracker.DailyStat, error)
	DailyStatsSince(username string, since time.Time) ([]tracker.DailyStat, error)

	PutInactive(entry tracker.InactiveStudent) error
	ListInactive() ([]tracker.InactiveStudent, error)
	ClearInactive(username string) error

	LastNotified(username string) (time.Time, error)
	SetLastNotified(username string, day time.Time) error

	LogVisit(v tracker.Visit) error
	CountVisitsSince(since time.Time) (int, error)

	Close() error
}
