package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/achievements"
	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/quests"
	"github.com/example/studyquest/pkg/models"
)

// advanceQuests makes sure the current period has assignments, advances every metric
// by its amount and pays out quests completed by this call
func (s *Service) advanceQuests(ctx context.Context, tx *database.Tx, profile *models.Profile, amounts map[models.QuestMetric]int, now time.Time) ([]models.QuestView, []models.RewardEvent, error) {
	if err := s.quests.EnsureAssigned(ctx, tx.Quests, profile.ID, now); err != nil {
		return nil, nil, err
	}

	var completed []models.QuestAssignment
	for _, metric := range []models.QuestMetric{
		models.MetricCardsReviewed,
		models.MetricCorrectAnswers,
		models.MetricTestsCompleted,
		models.MetricPerfectScores,
		models.MetricXPEarned,
	} {
		amount := amounts[metric]
		if amount <= 0 {
			continue
		}
		done, err := s.quests.Increment(ctx, tx.Quests, profile.ID, metric, amount, now)
		if err != nil {
			return nil, nil, err
		}
		completed = append(completed, done...)
	}
	if len(completed) == 0 {
		return nil, nil, nil
	}

	xp, err := tx.XP.GetProfileXP(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	var (
		views  []models.QuestView
		events []models.RewardEvent
	)
	for _, a := range completed {
		award, err := s.levels.Award(xp, a.XPReward, profile.AgeGroup)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reward quest %d", a.QuestID)
		}
		xp = award.XP
		if _, err := tx.Coins.Credit(ctx, profile.ID, a.CoinReward, fmt.Sprintf("Quest completed: %s", a.Title), now); err != nil {
			return nil, nil, err
		}
		views = append(views, quests.View(a))
		events = append(events, models.RewardEvent{
			Kind:  models.EventQuestCompleted,
			Title: a.Title,
			XP:    a.XPReward,
			Coins: a.CoinReward,
		})
		events = append(events, award.Events...)
		s.logger.InfoContext(ctx, "quest completed",
			"profile_id", profile.ID,
			"quest_id", a.QuestID,
			"event", models.EventQuestCompleted,
		)
	}
	if err := tx.XP.SaveProfileXP(ctx, xp); err != nil {
		return nil, nil, err
	}
	return views, events, nil
}

// checkAchievements unlocks every achievement the profile's current figures reach
// and credits their XP rewards
func (s *Service) checkAchievements(ctx context.Context, tx *database.Tx, profile *models.Profile, now time.Time) ([]models.AchievementUnlock, []models.RewardEvent, error) {
	stats, err := tx.Statistics.Get(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	xp, err := tx.XP.GetProfileXP(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	coins, err := tx.Coins.Get(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}

	fresh, err := achievements.Check(ctx, tx.Achievements, profile.ID, achievements.Figures{
		models.AchievementTotalCards:     int64(stats.TotalCardsStudied),
		models.AchievementLongestStreak:  int64(stats.LongestStreak),
		models.AchievementLevel:          int64(xp.Level),
		models.AchievementTestsCompleted: int64(stats.TestsCompleted),
		models.AchievementCoinsEarned:    coins.TotalEarned,
	}, now)
	if err != nil {
		return nil, nil, err
	}
	if len(fresh) == 0 {
		return nil, nil, nil
	}

	var (
		unlocks []models.AchievementUnlock
		events  []models.RewardEvent
	)
	for _, a := range fresh {
		award, err := s.levels.Award(xp, a.XPReward, profile.AgeGroup)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reward achievement %s", a.Code)
		}
		xp = award.XP
		unlocks = append(unlocks, achievements.Unlock(a))
		events = append(events, models.RewardEvent{Kind: models.EventAchievement, Title: a.Title, XP: a.XPReward})
		events = append(events, award.Events...)
	}
	if err := tx.XP.SaveProfileXP(ctx, xp); err != nil {
		return nil, nil, err
	}
	return unlocks, events, nil
}
