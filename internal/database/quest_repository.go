package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// QuestRepository handles quest definitions and per-period assignments
type QuestRepository struct {
	q sqlx.ExtContext
}

// Seed inserts definitions whose code is not stored yet
func (r *QuestRepository) Seed(ctx context.Context, defs []models.Quest) error {
	query := r.q.Rebind(`
		INSERT INTO quests (code, title, quest_type, metric, target, xp_reward, coin_reward)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`)
	for _, d := range defs {
		if _, err := r.q.ExecContext(ctx, query, d.Code, d.Title, d.Type, d.Metric, d.Target, d.XPReward, d.CoinReward); err != nil {
			return errors.Wrapf(err, "failed to seed quest %s", d.Code)
		}
	}
	return nil
}

// Definitions returns every quest definition of questType
func (r *QuestRepository) Definitions(ctx context.Context, questType models.QuestType) ([]models.Quest, error) {
	query := r.q.Rebind(`
		SELECT id, code, title, quest_type, metric, target, xp_reward, coin_reward
		FROM quests
		WHERE quest_type = ?
		ORDER BY id`)
	var out []models.Quest
	if err := sqlx.SelectContext(ctx, r.q, &out, query, questType); err != nil {
		return nil, errors.Wrap(err, "failed to list quests")
	}
	return out, nil
}

// Assignments returns the profile's assignments of questType for one period
func (r *QuestRepository) Assignments(ctx context.Context, profileID int64, periodKey string, questType models.QuestType) ([]models.QuestAssignment, error) {
	query := r.q.Rebind(`
		SELECT a.id, a.profile_id, a.quest_id, a.period_key, a.progress, a.completed, a.completed_at, a.assigned_at,
		       q.title, q.quest_type, q.metric, q.target, q.xp_reward, q.coin_reward
		FROM quest_assignments a
		JOIN quests q ON q.id = a.quest_id
		WHERE a.profile_id = ? AND a.period_key = ? AND q.quest_type = ?
		ORDER BY a.id`)
	var out []models.QuestAssignment
	if err := sqlx.SelectContext(ctx, r.q, &out, query, profileID, periodKey, questType); err != nil {
		return nil, errors.Wrap(err, "failed to list quest assignments")
	}
	return out, nil
}

// Assign inserts an assignment; an existing row for the same quest and period is left untouched
func (r *QuestRepository) Assign(ctx context.Context, profileID, questID int64, periodKey string, at time.Time) error {
	query := r.q.Rebind(`
		INSERT INTO quest_assignments (profile_id, quest_id, period_key, progress, completed, assigned_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT (profile_id, quest_id, period_key) DO NOTHING`)
	if _, err := r.q.ExecContext(ctx, query, profileID, questID, periodKey, false, at.UTC()); err != nil {
		return errors.Wrap(err, "failed to assign quest")
	}
	return nil
}

// SaveProgress stores the progress of an assignment
func (r *QuestRepository) SaveProgress(ctx context.Context, a models.QuestAssignment) error {
	query := r.q.Rebind(`
		UPDATE quest_assignments SET progress = ?, completed = ?, completed_at = ?
		WHERE id = ? AND profile_id = ?`)
	if _, err := r.q.ExecContext(ctx, query, a.Progress, a.Completed, utcPtr(a.CompletedAt), a.ID, a.ProfileID); err != nil {
		return errors.Wrap(err, "failed to save quest progress")
	}
	return nil
}
