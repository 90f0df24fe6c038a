// Package progress is the event orchestrator: it applies one card review or test
// completion to every progress ledger of a profile inside a single transaction.
package progress

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/internal/calendar"
	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/leveling"
	"github.com/example/studyquest/internal/quests"
	"github.com/example/studyquest/internal/spaced_repetition"
)

// Service runs the progress operations against the database
type Service struct {
	db     *database.Database
	sm2    *spaced_repetition.SM2
	levels *leveling.Engine
	quests *quests.Engine
	cal    calendar.Calendar
	now    func() time.Time
	logger *slog.Logger
	rnd    *rand.Rand
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCalendar sets the time zone used for day and week keys
func WithCalendar(cal calendar.Calendar) Option {
	return func(s *Service) { s.cal = cal }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRand sets the source used to sample quests
func WithRand(rnd *rand.Rand) Option {
	return func(s *Service) { s.rnd = rnd }
}

// WithLeveling replaces the leveling engine
func WithLeveling(engine *leveling.Engine) Option {
	return func(s *Service) { s.levels = engine }
}

// New returns a Service backed by db
func New(db *database.Database, opts ...Option) *Service {
	s := &Service{
		db:     db,
		sm2:    spaced_repetition.NewSM2(),
		levels: leveling.New(),
		cal:    calendar.New(time.UTC),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.quests = quests.NewEngine(s.cal, s.rnd)
	return s
}

// Calendar returns the calendar the service keys periods on
func (s *Service) Calendar() calendar.Calendar {
	return s.cal
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// translate maps storage errors onto the application taxonomy
func translate(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, database.ErrNotFound) {
		return &apperr.Error{Code: apperr.CodeNotFound, Message: err.Error(), Cause: err}
	}
	return err
}

// bestEffort runs a non-critical step inside a savepoint. A failure undoes only the
// step's own writes, is logged and is swallowed.
func (s *Service) bestEffort(ctx context.Context, tx *database.Tx, step string, profileID int64, fn func() error) bool {
	err := tx.Savepoint(ctx, fn)
	if err != nil {
		s.logger.WarnContext(ctx, "non-critical step failed",
			slog.String("event", step),
			slog.Int64("profile_id", profileID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}
