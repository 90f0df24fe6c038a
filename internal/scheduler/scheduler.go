// Package scheduler runs the periodic maintenance jobs: due-card reminders,
// pruning of stored sync batches and sweeping idle rate limiters.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/calendar"
	"github.com/example/studyquest/internal/database"
)

// Default reminder window, inclusive, in the configured time zone
const (
	DefaultReminderStartHour = 8
	DefaultReminderEndHour   = 20
)

// Notifier delivers a due-card reminder
type Notifier interface {
	SendReminder(ctx context.Context, r database.DueReminder) error
}

// Sweeper drops idle entries, returning how many were removed
type Sweeper interface {
	Sweep() int
}

// Config holds the job settings
type Config struct {
	ReminderStartHour  int
	ReminderEndHour    int
	SyncBatchRetention time.Duration
	Location           *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	db        *database.Database
	notifier  Notifier
	limiter   Sweeper
	cfg       Config
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithNotifier enables due-card reminders
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithSweeper enables the limiter sweep job
func WithSweeper(limiter Sweeper) Option {
	return func(s *Scheduler) { s.limiter = limiter }
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New creates a new scheduler instance
func New(db *database.Database, cfg Config, opts ...Option) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		db:        db,
		cfg:       cfg,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// first runs happen on the schedule, not at start-up
	s.scheduler.WaitForScheduleAll()
	return s
}

// Start registers every enabled job and runs the scheduler in the background
func (s *Scheduler) Start(ctx context.Context) error {
	if s.notifier != nil {
		if _, err := s.scheduler.Every(1).Hour().Do(func() {
			if _, err := s.SendReminders(ctx); err != nil {
				s.logger.Warn("reminder job failed", "error", err)
			}
		}); err != nil {
			return errors.Wrap(err, "failed to schedule reminders")
		}
	}

	if s.cfg.SyncBatchRetention > 0 {
		if _, err := s.scheduler.Every(1).Day().At("03:00").Do(func() {
			if _, err := s.PruneSyncBatches(ctx); err != nil {
				s.logger.Warn("sync batch pruning failed", "error", err)
			}
		}); err != nil {
			return errors.Wrap(err, "failed to schedule sync batch pruning")
		}
	}

	if s.limiter != nil {
		if _, err := s.scheduler.Every(10).Minutes().Do(func() {
			if n := s.limiter.Sweep(); n > 0 {
				s.logger.Debug("swept idle rate limiters", "count", n)
			}
		}); err != nil {
			return errors.Wrap(err, "failed to schedule limiter sweep")
		}
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "jobs", len(s.scheduler.Jobs()))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InReminderWindow reports whether reminders may be sent at t
func (s *Scheduler) InReminderWindow(t time.Time) bool {
	hour := t.In(s.cfg.Location).Hour()
	return hour >= s.cfg.ReminderStartHour && hour <= s.cfg.ReminderEndHour
}

// SendReminders notifies every linked profile with due cards and returns how many were sent.
// Each profile gets at most one reminder per calendar day. One failed delivery does not stop
// the others, and a failed profile is retried on the next run.
func (s *Scheduler) SendReminders(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}
	now := s.now()
	if !s.InReminderWindow(now) {
		s.logger.Debug("outside reminder hours, skipping",
			"hour", now.In(s.cfg.Location).Hour(),
			"start", s.cfg.ReminderStartHour,
			"end", s.cfg.ReminderEndHour)
		return 0, nil
	}

	today := calendar.New(s.cfg.Location).DayKey(now)
	reminders, err := s.db.CardStates.DueReminders(ctx, now, today)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range reminders {
		if err := s.notifier.SendReminder(ctx, r); err != nil {
			s.logger.Warn("failed to send reminder", "profile_id", r.ProfileID, "error", err)
			continue
		}
		sent++
		if err := s.db.Profiles.MarkReminded(ctx, r.ProfileID, today); err != nil {
			s.logger.Warn("failed to record reminder", "profile_id", r.ProfileID, "error", err)
		}
	}
	return sent, nil
}

// PruneSyncBatches deletes stored sync responses older than the retention window
func (s *Scheduler) PruneSyncBatches(ctx context.Context) (int64, error) {
	if s.cfg.SyncBatchRetention <= 0 {
		return 0, nil
	}
	start := time.Now()
	n, err := s.db.SyncBatches.DeleteOlderThan(ctx, s.now().Add(-s.cfg.SyncBatchRetention))
	if err != nil {
		return 0, err
	}
	s.logger.Info("pruned sync batches", "count", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}
