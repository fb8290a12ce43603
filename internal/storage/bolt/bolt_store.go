package bolt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/arjn/leetrack/internal/storage"
	"github.com/arjn/leetrack/pkg/tracker"
)

const (
	studentsBucket      = "students"
	activityBucket      = "activity"
	dailyStatsBucket    = "daily_stats"
	inactiveBucket      = "inactive"
	notificationsBucket = "notifications"
	visitsBucket        = "visits"
)

const dateLayout = "2006-01-02"

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{
			studentsBucket, activityBucket, dailyStatsBucket,
			inactiveBucket, notificationsBucket, visitsBucket,
		} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutStudent(st tracker.Student) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		val, err := json.Marshal(st)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(studentsBucket)).Put([]byte(st.Username), val)
	})
}

func (s *Store) GetStudent(username string) (*tracker.Student, error) {
	var out *tracker.Student
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(studentsBucket)).Get([]byte(username))
		if v == nil {
			return nil
		}
		var st tracker.Student
		if err := json.Unmarshal(v, &st); err != nil {
			return err
		}
		out = &st
		return nil
	})
	return out, err
}

func (s *Store) ListStudents() ([]tracker.Student, error) {
	var out []tracker.Student
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(studentsBucket)).ForEach(func(_, v []byte) error {
			var st tracker.Student
			if err := json.Unmarshal(v, &st); err != nil {
				return err
			}
			out = append(out, st)
			return nil
		})
	})
	return out, err
}

// DeleteStudent removes the roster entry along with every per-user row that
// hangs off it.
func (s *Store) DeleteStudent(username string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(username)
		for _, name := range []string{studentsBucket, activityBucket, inactiveBucket, notificationsBucket} {
			if err := tx.Bucket([]byte(name)).Delete(key); err != nil {
				return err
			}
		}

		c := tx.Bucket([]byte(dailyStatsBucket)).Cursor()
		prefix := statPrefix(username)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetActivityRecord(username string) (*tracker.ActivityRecord, error) {
	var out *tracker.ActivityRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(activityBucket)).Get([]byte(username))
		if v == nil {
			return nil
		}
		var rec tracker.ActivityRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		out = &rec
		return nil
	})
	return out, err
}

func (s *Store) PutActivityRecord(rec tracker.ActivityRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(activityBucket)).Put([]byte(rec.Username), val)
	})
}

func statPrefix(username string) []byte {
	return []byte(username + "/")
}

func statKey(username string, day time.Time) []byte {
	return fmt.Appendf(nil, "%s/%s", username, day.UTC().Format(dateLayout))
}

// PutDailyStat upserts the snapshot for (username, date): one refresh per day
// wins, later refreshes the same day overwrite it.
func (s *Store) PutDailyStat(stat tracker.DailyStat) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		val, err := json.Marshal(stat)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(dailyStatsBucket)).Put(statKey(stat.Username, stat.Date), val)
	})
}

func (s *Store) LatestDailyStat(username string) (*tracker.DailyStat, error) {
	var out *tracker.DailyStat
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(dailyStatsBucket)).Cursor()
		prefix := statPrefix(username)

		// Date keys sort lexicographically, so the last key under the
		// prefix is the most recent snapshot.
		var last []byte
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			last = v
		}
		if last == nil {
			return nil
		}
		var stat tracker.DailyStat
		if err := json.Unmarshal(last, &stat); err != nil {
			return err
		}
		out = &stat
		return nil
	})
	return out, err
}

func (s *Store) DailyStatsSince(username string, since time.Time) ([]tracker.DailyStat, error) {
	var out []tracker.DailyStat
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(dailyStatsBucket)).Cursor()
		prefix := statPrefix(username)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var stat tracker.DailyStat
			if err := json.Unmarshal(v, &stat); err != nil {
				return err
			}
			if stat.Date.Before(since) {
				continue
			}
			out = append(out, stat)
		}
		return nil
	})
	return out, err
}

func (s *Store) PutInactive(entry tracker.InactiveStudent) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		val, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(inactiveBucket)).Put([]byte(entry.Username), val)
	})
}

func (s *Store) ListInactive() ([]tracker.InactiveStudent, error) {
	var out []tracker.InactiveStudent
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(inactiveBucket)).ForEach(func(_, v []byte) error {
			var entry tracker.InactiveStudent
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			out = append(out, entry)
			return nil
		})
	})
	return out, err
}

func (s *Store) ClearInactive(username string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(inactiveBucket)).Delete([]byte(username))
	})
}

func (s *Store) LastNotified(username string) (time.Time, error) {
	var out time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(notificationsBucket)).Get([]byte(username))
		if v == nil {
			return nil
		}
		t, err := time.ParseInLocation(dateLayout, string(v), time.UTC)
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func (s *Store) SetLastNotified(username string, day time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		val := []byte(day.UTC().Format(dateLayout))
		return tx.Bucket([]byte(notificationsBucket)).Put([]byte(username), val)
	})
}

func (s *Store) LogVisit(v tracker.Visit) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(visitsBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		val, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return bucket.Put(key, val)
	})
}

func (s *Store) CountVisitsSince(since time.Time) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(visitsBucket)).ForEach(func(_, v []byte) error {
			var visit tracker.Visit
			if err := json.Unmarshal(v, &visit); err != nil {
				return err
			}
			if !visit.Time.Before(since) {
				count++
			}
			return nil
		})
	})
	return count, err
}

var _ storage.Store = (*Store)(nil)
