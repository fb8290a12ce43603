package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"github.com/arjn/leetrack/internal/logger"
)

// Scheduler runs the recurring jobs: the full cohort refresh once a day and
// the inactivity detection pass every hour. The mutex keeps a slow refresh
// from overlapping the next tick.
type Scheduler struct {
	refresher *Refresher
	detect    func(ctx context.Context)
	dailyAt   string

	cron  *gron.Cron
	opsMu sync.Mutex
}

func NewScheduler(refresher *Refresher, detect func(ctx context.Context), dailyAt string) *Scheduler {
	if dailyAt == "" {
		dailyAt = "00:00"
	}
	return &Scheduler{
		refresher: refresher,
		detect:    detect,
		dailyAt:   dailyAt,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(24*time.Hour).At(s.dailyAt), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		logger.Info("Running scheduled cohort refresh")
		if _, err := s.refresher.RefreshAll(ctx); err != nil {
			logger.Error("Scheduled refresh failed", "error", err)
		}
	})

	s.cron.AddFunc(gron.Every(1*time.Hour), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		logger.Info("Running scheduled inactivity check")
		s.detect(ctx)
	})

	s.cron.Start()
	logger.Info("Scheduler started", "daily_refresh_at", s.dailyAt)
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
