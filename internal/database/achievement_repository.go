package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// AchievementRepository handles achievement definitions and unlock records
type AchievementRepository struct {
	q sqlx.ExtContext
}

// Seed inserts definitions whose code is not stored yet
func (r *AchievementRepository) Seed(ctx context.Context, defs []models.Achievement) error {
	query := r.q.Rebind(`
		INSERT INTO achievements (code, title, description, metric, threshold, xp_reward)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`)
	for _, d := range defs {
		if _, err := r.q.ExecContext(ctx, query, d.Code, d.Title, d.Description, d.Metric, d.Threshold, d.XPReward); err != nil {
			return errors.Wrapf(err, "failed to seed achievement %s", d.Code)
		}
	}
	return nil
}

// Achievements returns every achievement definition
func (r *AchievementRepository) Achievements(ctx context.Context) ([]models.Achievement, error) {
	var out []models.Achievement
	err := sqlx.SelectContext(ctx, r.q, &out, `
		SELECT id, code, title, description, metric, threshold, xp_reward
		FROM achievements
		ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list achievements")
	}
	return out, nil
}

// UnlockedAchievementIDs returns the achievements the profile has unlocked
func (r *AchievementRepository) UnlockedAchievementIDs(ctx context.Context, profileID int64) ([]int64, error) {
	var ids []int64
	query := r.q.Rebind(`SELECT achievement_id FROM profile_achievements WHERE profile_id = ? ORDER BY achievement_id`)
	if err := sqlx.SelectContext(ctx, r.q, &ids, query, profileID); err != nil {
		return nil, errors.Wrap(err, "failed to list unlocked achievements")
	}
	return ids, nil
}

// UnlockAchievement records an unlock and reports whether it is new
func (r *AchievementRepository) UnlockAchievement(ctx context.Context, profileID, achievementID int64, at time.Time) (bool, error) {
	query := r.q.Rebind(`
		INSERT INTO profile_achievements (profile_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (profile_id, achievement_id) DO NOTHING`)
	res, err := r.q.ExecContext(ctx, query, profileID, achievementID, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "failed to unlock achievement")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return n > 0, nil
}
