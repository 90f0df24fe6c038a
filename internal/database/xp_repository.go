package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// XPRepository handles the profile XP ledger and per-subject XP
type XPRepository struct {
	q sqlx.ExtContext
}

// GetProfileXP returns the profile's ledger; a profile that never earned XP is at level 1
func (r *XPRepository) GetProfileXP(ctx context.Context, profileID int64) (models.ProfileXP, error) {
	query := r.q.Rebind(`SELECT profile_id, total_xp, level, daily_bonus_date FROM profile_xp WHERE profile_id = ?`)
	var xp models.ProfileXP
	err := sqlx.GetContext(ctx, r.q, &xp, query, profileID)
	if err == sql.ErrNoRows {
		return models.ProfileXP{ProfileID: profileID, Level: 1}, nil
	}
	if err != nil {
		return models.ProfileXP{}, errors.Wrap(err, "failed to get profile xp")
	}
	return xp, nil
}

// SaveProfileXP upserts the profile's ledger
func (r *XPRepository) SaveProfileXP(ctx context.Context, xp models.ProfileXP) error {
	query := r.q.Rebind(`
		INSERT INTO profile_xp (profile_id, total_xp, level, daily_bonus_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (profile_id) DO UPDATE SET
			total_xp = excluded.total_xp,
			level = excluded.level,
			daily_bonus_date = excluded.daily_bonus_date`)
	if _, err := r.q.ExecContext(ctx, query, xp.ProfileID, xp.TotalXP, xp.Level, xp.DailyBonusDate); err != nil {
		return errors.Wrap(err, "failed to save profile xp")
	}
	return nil
}

// AddSubjectXP adds amount to the profile's XP in one subject
func (r *XPRepository) AddSubjectXP(ctx context.Context, profileID, subjectID int64, amount int) error {
	if amount <= 0 {
		return nil
	}
	query := r.q.Rebind(`
		INSERT INTO subject_xp (profile_id, subject_id, xp)
		VALUES (?, ?, ?)
		ON CONFLICT (profile_id, subject_id) DO UPDATE SET xp = subject_xp.xp + excluded.xp`)
	if _, err := r.q.ExecContext(ctx, query, profileID, subjectID, amount); err != nil {
		return errors.Wrap(err, "failed to add subject xp")
	}
	return nil
}

// ListSubjectXP returns the profile's per-subject ledgers
func (r *XPRepository) ListSubjectXP(ctx context.Context, profileID int64) ([]models.SubjectXP, error) {
	query := r.q.Rebind(`SELECT profile_id, subject_id, xp FROM subject_xp WHERE profile_id = ? ORDER BY subject_id`)
	var out []models.SubjectXP
	if err := sqlx.SelectContext(ctx, r.q, &out, query, profileID); err != nil {
		return nil, errors.Wrap(err, "failed to list subject xp")
	}
	return out, nil
}
