// Package achievements evaluates one-way achievement unlocks against profile figures.
package achievements

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// Definitions is the seeded achievement table
var Definitions = []models.Achievement{
	{Code: "first_steps", Title: "First Steps", Description: "Review your first card", Metric: models.AchievementTotalCards, Threshold: 1, XPReward: 10},
	{Code: "card_collector", Title: "Card Collector", Description: "Review 100 cards", Metric: models.AchievementTotalCards, Threshold: 100, XPReward: 50},
	{Code: "card_master", Title: "Card Master", Description: "Review 1000 cards", Metric: models.AchievementTotalCards, Threshold: 1000, XPReward: 200},
	{Code: "streak_3", Title: "On a Roll", Description: "Study 3 days in a row", Metric: models.AchievementLongestStreak, Threshold: 3, XPReward: 30},
	{Code: "streak_7", Title: "Week Warrior", Description: "Study 7 days in a row", Metric: models.AchievementLongestStreak, Threshold: 7, XPReward: 75},
	{Code: "streak_30", Title: "Unstoppable", Description: "Study 30 days in a row", Metric: models.AchievementLongestStreak, Threshold: 30, XPReward: 300},
	{Code: "level_5", Title: "Rising Star", Description: "Reach level 5", Metric: models.AchievementLevel, Threshold: 5, XPReward: 50},
	{Code: "level_10", Title: "Scholar", Description: "Reach level 10", Metric: models.AchievementLevel, Threshold: 10, XPReward: 150},
	{Code: "first_test", Title: "Test Taker", Description: "Complete your first test", Metric: models.AchievementTestsCompleted, Threshold: 1, XPReward: 15},
	{Code: "tests_25", Title: "Exam Veteran", Description: "Complete 25 tests", Metric: models.AchievementTestsCompleted, Threshold: 25, XPReward: 100},
	{Code: "coins_100", Title: "Saver", Description: "Earn 100 coins", Metric: models.AchievementCoinsEarned, Threshold: 100, XPReward: 40},
}

// Figures are the profile values achievements are measured on
type Figures map[models.AchievementMetric]int64

// Store is the persistence achievements are evaluated against
type Store interface {
	// Achievements returns every achievement definition
	Achievements(ctx context.Context) ([]models.Achievement, error)
	// UnlockedAchievementIDs returns the ids already unlocked by the profile
	UnlockedAchievementIDs(ctx context.Context, profileID int64) ([]int64, error)
	// UnlockAchievement records an unlock, reporting false when it already existed
	UnlockAchievement(ctx context.Context, profileID, achievementID int64, at time.Time) (bool, error)
}

// Qualifying returns the definitions reached by figures that are not yet unlocked
func Qualifying(defs []models.Achievement, unlocked map[int64]bool, figures Figures) []models.Achievement {
	var out []models.Achievement
	for _, def := range defs {
		if unlocked[def.ID] {
			continue
		}
		if value, ok := figures[def.Metric]; ok && value >= def.Threshold {
			out = append(out, def)
		}
	}
	return out
}

// Check unlocks every achievement the profile now qualifies for and returns the new unlocks.
// Unlocks are never revoked and a repeated check never returns the same achievement twice.
func Check(ctx context.Context, store Store, profileID int64, figures Figures, now time.Time) ([]models.Achievement, error) {
	defs, err := store.Achievements(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list achievements")
	}
	ids, err := store.UnlockedAchievementIDs(ctx, profileID)
	if err != nil {
		return nil, errors.Wrap(err, "list unlocked achievements")
	}
	unlocked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		unlocked[id] = true
	}

	var fresh []models.Achievement
	for _, def := range Qualifying(defs, unlocked, figures) {
		inserted, err := store.UnlockAchievement(ctx, profileID, def.ID, now)
		if err != nil {
			return nil, errors.Wrapf(err, "unlock achievement %s", def.Code)
		}
		if inserted {
			fresh = append(fresh, def)
		}
	}
	return fresh, nil
}

// Unlock converts an achievement to its client representation
func Unlock(a models.Achievement) models.AchievementUnlock {
	return models.AchievementUnlock{Code: a.Code, Title: a.Title, XPReward: a.XPReward}
}
