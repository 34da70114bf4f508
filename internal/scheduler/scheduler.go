// Package scheduler runs the cron job that redelivers failed notifications.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/exchango/backend/internal/model"
)

// Config holds the scheduler configuration
type Config struct {
	// Schedule is a 5-field cron expression (e.g., "*/10 * * * *" for every ten minutes)
	Schedule string
	// Timeout is the maximum duration of one sweep
	Timeout time.Duration
	// MaxAttempts stops redelivery once a notification has been tried this often
	MaxAttempts int
	// BatchSize caps the notifications picked up per sweep
	BatchSize int
	// Enabled determines if the scheduler should run
	Enabled bool
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Schedule:    "*/10 * * * *",
		Timeout:     2 * time.Minute,
		MaxAttempts: 5,
		BatchSize:   100,
		Enabled:     false,
	}
}

// FailedNotifications lists notifications eligible for another attempt.
type FailedNotifications interface {
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]model.NotificationLog, error)
}

// Redeliverer makes one more delivery attempt.
type Redeliverer interface {
	Redeliver(ctx context.Context, n model.NotificationLog) error
}

// SweepStats describes the most recent sweep.
type SweepStats struct {
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Picked      int           `json:"picked"`
	Delivered   int           `json:"delivered"`
	Failed      int           `json:"failed"`
	Error       string        `json:"error,omitempty"`
	TotalSweeps int           `json:"totalSweeps"`
}

// Scheduler manages the retry sweep job
type Scheduler struct {
	cron       *cron.Cron
	failed     FailedNotifications
	dispatcher Redeliverer
	config     Config
	logger     *slog.Logger
	entryID    cron.EntryID

	mu      sync.RWMutex
	running sync.Mutex
	last    SweepStats
}

// New creates a new Scheduler instance
func New(cfg Config, failed FailedNotifications, dispatcher Redeliverer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		failed:     failed,
		dispatcher: dispatcher,
		config:     cfg,
		logger:     logger,
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		s.logger.Info("retry sweeper is disabled, skipping start")
		return nil
	}

	// Convert standard cron (5 fields) to cron with seconds (6 fields)
	schedule := "0 " + s.config.Schedule

	entryID, err := s.cron.AddFunc(schedule, s.runSweep)
	if err != nil {
		return err
	}

	s.entryID = entryID
	s.cron.Start()

	s.logger.Info("retry sweeper started",
		slog.String("schedule", s.config.Schedule),
		slog.Duration("timeout", s.config.Timeout),
		slog.Int("max_attempts", s.config.MaxAttempts),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping retry sweeper")
	return s.cron.Stop()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()
	s.Sweep(ctx)
}

// Sweep redelivers one batch of failed notifications. Concurrent calls are
// skipped while a sweep is in progress.
func (s *Scheduler) Sweep(ctx context.Context) (stats SweepStats) {
	if !s.running.TryLock() {
		s.logger.Debug("retry sweep already running, skipping")
		return s.LastSweep()
	}
	defer s.running.Unlock()

	stats = SweepStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		s.mu.Lock()
		stats.TotalSweeps = s.last.TotalSweeps + 1
		s.last = stats
		s.mu.Unlock()
	}()

	pending, err := s.failed.ListRetryable(ctx, s.config.MaxAttempts, s.config.BatchSize)
	if err != nil {
		stats.Error = err.Error()
		s.logger.Error("retry sweep failed", slog.String("error", err.Error()))
		return stats
	}
	stats.Picked = len(pending)

	for _, n := range pending {
		if ctx.Err() != nil {
			stats.Error = ctx.Err().Error()
			break
		}
		if err := s.dispatcher.Redeliver(ctx, n); err != nil {
			stats.Failed++
			s.logger.Warn("redelivery failed",
				slog.Int64("notification_id", n.ID),
				slog.Int("attempts", n.Attempts+1),
				slog.String("error", err.Error()),
			)
			continue
		}
		stats.Delivered++
	}

	if stats.Picked > 0 {
		s.logger.Info("retry sweep completed",
			slog.Int("picked", stats.Picked),
			slog.Int("delivered", stats.Delivered),
			slog.Int("failed", stats.Failed),
		)
	}
	return stats
}

// LastSweep returns the stats of the most recent sweep.
func (s *Scheduler) LastSweep() SweepStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// GetNextRunTime returns the next scheduled run time
func (s *Scheduler) GetNextRunTime() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
