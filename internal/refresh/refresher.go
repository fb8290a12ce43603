// Package refresh drives the per-user fetch→analyze→reconcile→persist cycle.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arjn/leetrack/internal/leetcode"
	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/internal/streak"
	"github.com/arjn/leetrack/pkg/tracker"
)

var (
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leetrack_refresh_total",
			Help: "Per-user refresh outcomes by result",
		},
		[]string{"result"},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leetrack_refresh_batch_duration_seconds",
			Help:    "Duration of full cohort refresh runs",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Fetcher is the slice of the upstream client the pipeline needs.
type Fetcher interface {
	FetchProfile(ctx context.Context, username string) (*tracker.Profile, error)
}

// Store is the slice of the activity store the pipeline needs.
type Store interface {
	ListStudents() ([]tracker.Student, error)
	GetActivityRecord(username string) (*tracker.ActivityRecord, error)
	PutActivityRecord(rec tracker.ActivityRecord) error
	PutDailyStat(stat tracker.DailyStat) error
}

// Result is the outcome of one user's refresh within a batch.
type Result struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Summary is the batch report for one refresh run.
type Summary struct {
	Success int      `json:"success"`
	Errors  int      `json:"errors"`
	Results []Result `json:"results"`
}

type Refresher struct {
	store       Store
	fetcher     Fetcher
	concurrency int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func NewRefresher(store Store, fetcher Fetcher, concurrency int) *Refresher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Refresher{
		store:       store,
		fetcher:     fetcher,
		concurrency: concurrency,
		locks:       map[string]*sync.Mutex{},
		now:         time.Now,
	}
}

// RefreshAll refreshes every registered student with bounded concurrency.
// One user's failure never blocks or fails the rest; the summary carries the
// per-user outcomes.
func (r *Refresher) RefreshAll(ctx context.Context) (Summary, error) {
	started := r.now()
	students, err := r.store.ListStudents()
	if err != nil {
		return Summary{}, err
	}

	sem := make(chan struct{}, r.concurrency)
	results := make([]Result, len(students))
	var wg sync.WaitGroup

	for i, st := range students {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := r.RefreshUser(ctx, st.Username); err != nil {
				results[i] = Result{Username: st.Username, Status: "error", Error: err.Error()}
				return
			}
			results[i] = Result{Username: st.Username, Status: "ok"}
		}()
	}
	wg.Wait()

	summary := Summary{Results: results}
	for _, res := range results {
		if res.Status == "ok" {
			summary.Success++
		} else {
			summary.Errors++
		}
	}

	refreshDuration.Observe(time.Since(started).Seconds())
	logger.Info("Cohort refresh finished", "students", len(students),
		"success", summary.Success, "errors", summary.Errors)
	return summary, nil
}

// RefreshUser runs one user's cycle under that user's lock: the reconcile
// step is a read-modify-write against the activity record and must not
// interleave with another refresh of the same username.
func (r *Refresher) RefreshUser(ctx context.Context, username string) error {
	lock := r.userLock(username)
	lock.Lock()
	defer lock.Unlock()

	profile, err := r.fetcher.FetchProfile(ctx, username)
	if err != nil {
		if errors.Is(err, leetcode.ErrUserNotFound) {
			refreshTotal.WithLabelValues("not_found").Inc()
			logger.Warn("Skipping unknown user", "username", username)
		} else {
			refreshTotal.WithLabelValues("fetch_error").Inc()
			logger.Error("Refresh failed", "username", username, "error", err)
		}
		// Previous record stays untouched on any fetch failure.
		return err
	}

	now := r.now().UTC()
	snap := streak.AnalyzeCalendar(profile.Calendar, profile.ReportedStreak, now)

	prev, err := r.store.GetActivityRecord(username)
	if err != nil {
		refreshTotal.WithLabelValues("store_error").Inc()
		return err
	}

	rec := streak.Reconcile(prev, username, snap, now)
	if err := r.store.PutActivityRecord(rec); err != nil {
		refreshTotal.WithLabelValues("store_error").Inc()
		return err
	}

	stat := tracker.DailyStat{
		Username:           username,
		Date:               utcMidnight(now),
		TotalSolved:        profile.TotalSolved,
		EasySolved:         profile.EasySolved,
		MediumSolved:       profile.MediumSolved,
		HardSolved:         profile.HardSolved,
		Ranking:            profile.Ranking,
		LastSubmissionDate: snap.LastActiveDay,
	}
	if err := r.store.PutDailyStat(stat); err != nil {
		refreshTotal.WithLabelValues("store_error").Inc()
		return err
	}

	refreshTotal.WithLabelValues("ok").Inc()
	logger.Debug("Refreshed user", "username", username,
		"total_solved", profile.TotalSolved,
		"current_streak", rec.CurrentStreak, "longest_streak", rec.LongestStreak)
	return nil
}

func (r *Refresher) userLock(username string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[username]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[username] = lock
	}
	return lock
}

func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
