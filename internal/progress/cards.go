package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/leveling"
	"github.com/example/studyquest/internal/streaks"
	"github.com/example/studyquest/pkg/models"
)

// Due card listing bounds
const (
	DefaultDueLimit = 20
	MaxDueLimit     = 200
)

// RecordOutcome applies one card review: scheduler, streak tracker, subject XP, then quests
// and achievements. Quest and achievement failures never undo the first three.
func (s *Service) RecordOutcome(ctx context.Context, profileID, cardID int64, outcome models.Outcome) (models.OutcomeResult, error) {
	if !outcome.Valid() {
		return models.OutcomeResult{}, apperr.InvalidArgument("unknown outcome %q", outcome)
	}
	start := time.Now()
	now := s.clock()

	var result models.OutcomeResult
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		if err := tx.LockProfile(ctx, profileID); err != nil {
			return err
		}
		profile, err := tx.Profiles.GetByID(ctx, profileID)
		if err != nil {
			return err
		}
		card, err := tx.Cards.GetByID(ctx, cardID)
		if err != nil {
			return err
		}

		// Scheduler
		prev, err := tx.CardStates.Get(ctx, profileID, cardID)
		if err != nil {
			return err
		}
		state := s.sm2.NewCardState(profileID, cardID)
		if prev != nil {
			state = *prev
		}
		state = s.sm2.Process(state, outcome, now)
		if err := tx.CardStates.Upsert(ctx, state); err != nil {
			return err
		}

		// Streak tracker, with the new-session check made before any update
		today := s.cal.DayKey(now)
		stats, err := tx.Statistics.Get(ctx, profileID)
		if err != nil {
			return err
		}
		stats = streaks.Update(stats, streaks.IsNewSession(stats, today), today)
		if err := tx.Statistics.Save(ctx, stats); err != nil {
			return err
		}

		// Subject XP; profile XP arrives through the client's sync
		if outcome == models.OutcomeCorrect {
			if err := tx.XP.AddSubjectXP(ctx, profileID, card.SubjectID, leveling.SubjectXPPerCorrect); err != nil {
				return err
			}
		}

		result = models.OutcomeResult{CardState: state, Stats: stats}

		amounts := map[models.QuestMetric]int{models.MetricCardsReviewed: 1}
		if outcome == models.OutcomeCorrect {
			amounts[models.MetricCorrectAnswers] = 1
		}
		s.bestEffort(ctx, tx, "quests", profileID, func() error {
			views, events, err := s.advanceQuests(ctx, tx, profile, amounts, now)
			if err != nil {
				return err
			}
			result.CompletedQuests = views
			result.Events = append(result.Events, events...)
			return nil
		})
		s.bestEffort(ctx, tx, "achievements", profileID, func() error {
			_, events, err := s.checkAchievements(ctx, tx, profile, now)
			if err != nil {
				return err
			}
			result.Events = append(result.Events, events...)
			return nil
		})
		return nil
	})
	if err != nil {
		return models.OutcomeResult{}, translate(err)
	}

	s.logger.DebugContext(ctx, "review recorded",
		slog.Int64("profile_id", profileID),
		slog.Int64("card_id", cardID),
		slog.String("event", string(outcome)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return result, nil
}

// GetDueCards lists cards due for review, most overdue first, and cards never reviewed.
// An empty theme matches all cards; a zero limit uses DefaultDueLimit.
func (s *Service) GetDueCards(ctx context.Context, profileID int64, theme string, limit int) (models.DueCards, error) {
	switch {
	case limit < 0:
		return models.DueCards{}, apperr.InvalidArgument("limit must not be negative")
	case limit == 0:
		limit = DefaultDueLimit
	case limit > MaxDueLimit:
		limit = MaxDueLimit
	}
	if _, err := s.db.Profiles.GetByID(ctx, profileID); err != nil {
		return models.DueCards{}, translate(err)
	}
	now := s.clock()

	due, err := s.db.CardStates.Due(ctx, profileID, theme, now, limit)
	if err != nil {
		return models.DueCards{}, err
	}
	totalDue, err := s.db.CardStates.CountDue(ctx, profileID, theme, now)
	if err != nil {
		return models.DueCards{}, err
	}
	unseen, err := s.db.Cards.Unseen(ctx, profileID, theme, limit)
	if err != nil {
		return models.DueCards{}, err
	}
	totalUnseen, err := s.db.Cards.CountUnseen(ctx, profileID, theme)
	if err != nil {
		return models.DueCards{}, err
	}

	return models.DueCards{
		DueCardIDs:    due,
		UnseenCardIDs: unseen,
		TotalDue:      totalDue,
		TotalUnseen:   totalUnseen,
	}, nil
}
