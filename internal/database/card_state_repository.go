package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// CardStateRepository handles spaced repetition state per profile and card
type CardStateRepository struct {
	q sqlx.ExtContext
}

const cardStateColumns = `profile_id, card_id, last_seen, next_due, interval_days, ease_factor, repetitions, history`

// Get returns the state of a card, or nil when the profile never reviewed it
func (r *CardStateRepository) Get(ctx context.Context, profileID, cardID int64) (*models.CardState, error) {
	query := r.q.Rebind(`SELECT ` + cardStateColumns + ` FROM card_states WHERE profile_id = ? AND card_id = ?`)
	var s models.CardState
	err := sqlx.GetContext(ctx, r.q, &s, query, profileID, cardID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get card state")
	}
	return &s, nil
}

// Upsert stores the state of a card
func (r *CardStateRepository) Upsert(ctx context.Context, s models.CardState) error {
	query := r.q.Rebind(`
		INSERT INTO card_states (` + cardStateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, card_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			next_due = excluded.next_due,
			interval_days = excluded.interval_days,
			ease_factor = excluded.ease_factor,
			repetitions = excluded.repetitions,
			history = excluded.history`)
	_, err := r.q.ExecContext(ctx, query,
		s.ProfileID,
		s.CardID,
		utcPtr(s.LastSeen),
		utcPtr(s.NextDue),
		s.Interval,
		s.EaseFactor,
		s.Repetitions,
		s.History,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save card state")
	}
	return nil
}

// Due returns up to limit reviewed cards whose next_due is at or before now, most overdue first.
// An empty theme matches every card; a non-positive limit returns all.
func (r *CardStateRepository) Due(ctx context.Context, profileID int64, theme string, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT s.card_id
		FROM card_states s
		JOIN cards c ON c.id = s.card_id
		WHERE s.profile_id = ? AND s.next_due <= ? AND (? = '' OR c.theme = ?)
		ORDER BY s.next_due ASC, s.card_id ASC`
	args := []interface{}{profileID, now.UTC(), theme, theme}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	ids := []int64{}
	if err := sqlx.SelectContext(ctx, r.q, &ids, r.q.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list due cards")
	}
	return ids, nil
}

// CountDue returns the number of reviewed cards due at now
func (r *CardStateRepository) CountDue(ctx context.Context, profileID int64, theme string, now time.Time) (int, error) {
	query := r.q.Rebind(`
		SELECT COUNT(*)
		FROM card_states s
		JOIN cards c ON c.id = s.card_id
		WHERE s.profile_id = ? AND s.next_due <= ? AND (? = '' OR c.theme = ?)`)
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, query, profileID, now.UTC(), theme, theme); err != nil {
		return 0, errors.Wrap(err, "failed to count due cards")
	}
	return n, nil
}

// DueReminder is a profile with a linked chat and cards waiting for review
type DueReminder struct {
	ProfileID int64  `db:"profile_id"`
	Name      string `db:"name"`
	ChatID    int64  `db:"telegram_chat_id"`
	DueCount  int    `db:"due_count"`
}

// DueReminders lists profiles with a linked Telegram chat that have cards due at now
// and were not yet reminded on day
func (r *CardStateRepository) DueReminders(ctx context.Context, now time.Time, day string) ([]DueReminder, error) {
	query := r.q.Rebind(`
		SELECT p.id AS profile_id, p.name, p.telegram_chat_id, COUNT(*) AS due_count
		FROM card_states s
		JOIN profiles p ON p.id = s.profile_id
		WHERE p.telegram_chat_id IS NOT NULL
			AND (p.last_reminded_on IS NULL OR p.last_reminded_on <> ?)
			AND s.next_due <= ?
		GROUP BY p.id, p.name, p.telegram_chat_id
		ORDER BY p.id`)
	var out []DueReminder
	if err := sqlx.SelectContext(ctx, r.q, &out, query, day, now.UTC()); err != nil {
		return nil, errors.Wrap(err, "failed to list due reminders")
	}
	return out, nil
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
