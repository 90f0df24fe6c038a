package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	q sqlx.ExtContext
}

// Create inserts a new profile and sets its ID
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.AgeGroup == "" {
		p.AgeGroup = models.AgeGroupAdult
	}
	if p.Role == "" {
		p.Role = models.RoleStudent
	}
	id, err := insertReturningID(ctx, r.q, `
		INSERT INTO profiles (name, age_group, role, telegram_chat_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.AgeGroup, p.Role, p.TelegramChatID, p.CreatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create profile")
	}
	p.ID = id
	return nil
}

// GetByID returns a profile or ErrNotFound
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*models.Profile, error) {
	query := r.q.Rebind(`
		SELECT id, name, age_group, role, telegram_chat_id, created_at
		FROM profiles
		WHERE id = ?`)
	var p models.Profile
	err := sqlx.GetContext(ctx, r.q, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "profile %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}
	return &p, nil
}

// SetTelegramChat links a Telegram chat for reminders; nil unlinks it
func (r *ProfileRepository) SetTelegramChat(ctx context.Context, id int64, chatID *int64) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE profiles SET telegram_chat_id = ? WHERE id = ?`), chatID, id)
	if err != nil {
		return errors.Wrap(err, "failed to update telegram chat")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNotFound, "profile %d", id)
	}
	return nil
}

// MarkReminded records the day a due-card reminder went out
func (r *ProfileRepository) MarkReminded(ctx context.Context, id int64, day string) error {
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE profiles SET last_reminded_on = ? WHERE id = ?`), day, id)
	if err != nil {
		return errors.Wrap(err, "failed to mark profile reminded")
	}
	return nil
}
