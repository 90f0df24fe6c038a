package progress

import (
	"context"
	"log/slog"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/tokens"
	"github.com/example/studyquest/pkg/models"
)

const maxTestIDLength = 128

// CompleteTest runs the token economy for a finished test and advances test quests.
// A zero-token result is a normal outcome carrying the reason of the gate that decided it.
func (s *Service) CompleteTest(ctx context.Context, profileID int64, testID string, score int, difficulty models.Difficulty) (models.TestCompletion, error) {
	switch {
	case testID == "" || len(testID) > maxTestIDLength:
		return models.TestCompletion{}, apperr.InvalidArgument("testId must be 1 to %d characters", maxTestIDLength)
	case score < 0 || score > tokens.PerfectScore:
		return models.TestCompletion{}, apperr.InvalidArgument("score %d outside [0, %d]", score, tokens.PerfectScore)
	case !difficulty.Valid():
		return models.TestCompletion{}, apperr.InvalidArgument("unknown difficulty %q", difficulty)
	}
	now := s.clock()
	today := s.cal.DayKey(now)

	var completion models.TestCompletion
	var result tokens.Result
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		if err := tx.LockProfile(ctx, profileID); err != nil {
			return err
		}
		profile, err := tx.Profiles.GetByID(ctx, profileID)
		if err != nil {
			return err
		}

		ledger, err := tx.Tokens.Get(ctx, profileID, tokens.DefaultConversionRate)
		if err != nil {
			return err
		}
		history, err := tx.Tokens.GetHistory(ctx, profileID, testID)
		if err != nil {
			return err
		}
		result = tokens.Calculate(tokens.Input{
			Score:       score,
			Difficulty:  difficulty,
			History:     history,
			DailyEarned: tokens.EarnedToday(ledger, today),
		})
		if result.Tokens > 0 {
			ledger, history = tokens.Credit(ledger, history, score, result.Tokens, today)
			if err := tx.Tokens.Save(ctx, ledger); err != nil {
				return err
			}
			if err := tx.Tokens.SaveHistory(ctx, history); err != nil {
				return err
			}
			if err := tx.Tokens.AddTransaction(ctx, &models.TokenTransaction{
				ProfileID: profileID,
				Amount:    result.Tokens,
				Reason:    result.Reason,
				TestID:    testID,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		stats, err := tx.Statistics.Get(ctx, profileID)
		if err != nil {
			return err
		}
		stats.TestsCompleted++
		if err := tx.Statistics.Save(ctx, stats); err != nil {
			return err
		}

		completion = models.TestCompletion{TokensAwarded: result.Tokens, Reason: result.Reason}

		amounts := map[models.QuestMetric]int{models.MetricTestsCompleted: 1}
		if score == tokens.PerfectScore {
			amounts[models.MetricPerfectScores] = 1
		}
		s.bestEffort(ctx, tx, "quests", profileID, func() error {
			_, events, err := s.advanceQuests(ctx, tx, profile, amounts, now)
			if err != nil {
				return err
			}
			completion.Events = append(completion.Events, events...)
			return nil
		})
		s.bestEffort(ctx, tx, "achievements", profileID, func() error {
			_, events, err := s.checkAchievements(ctx, tx, profile, now)
			if err != nil {
				return err
			}
			completion.Events = append(completion.Events, events...)
			return nil
		})
		return nil
	})
	if err != nil {
		return models.TestCompletion{}, translate(err)
	}

	s.logger.InfoContext(ctx, "test completed",
		slog.Int64("profile_id", profileID),
		slog.String("test_id", testID),
		slog.Int("score", score),
		slog.Int("tokens", result.Tokens),
		slog.String("gate", string(result.Gate)),
	)
	return completion, nil
}
