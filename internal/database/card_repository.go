package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// CardRepository reads the scheduling mirror of the question bank
type CardRepository struct {
	q sqlx.ExtContext
}

// Create inserts a card and sets its ID
func (r *CardRepository) Create(ctx context.Context, c *models.Card) error {
	id, err := insertReturningID(ctx, r.q, `INSERT INTO cards (subject_id, theme) VALUES (?, ?)`, c.SubjectID, c.Theme)
	if err != nil {
		return errors.Wrap(err, "failed to create card")
	}
	c.ID = id
	return nil
}

// GetByID returns a card or ErrNotFound
func (r *CardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	var c models.Card
	err := sqlx.GetContext(ctx, r.q, &c, r.q.Rebind(`SELECT id, subject_id, theme FROM cards WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "card %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get card")
	}
	return &c, nil
}

// Unseen returns up to limit cards the profile has never reviewed, oldest card first.
// An empty theme matches every card; a non-positive limit returns all.
func (r *CardRepository) Unseen(ctx context.Context, profileID int64, theme string, limit int) ([]int64, error) {
	query := `
		SELECT c.id
		FROM cards c
		LEFT JOIN card_states s ON s.card_id = c.id AND s.profile_id = ?
		WHERE s.card_id IS NULL AND (? = '' OR c.theme = ?)
		ORDER BY c.id`
	args := []interface{}{profileID, theme, theme}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	ids := []int64{}
	if err := sqlx.SelectContext(ctx, r.q, &ids, r.q.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed to list unseen cards")
	}
	return ids, nil
}

// CountUnseen returns the number of cards the profile has never reviewed
func (r *CardRepository) CountUnseen(ctx context.Context, profileID int64, theme string) (int, error) {
	query := r.q.Rebind(`
		SELECT COUNT(*)
		FROM cards c
		LEFT JOIN card_states s ON s.card_id = c.id AND s.profile_id = ?
		WHERE s.card_id IS NULL AND (? = '' OR c.theme = ?)`)
	var n int
	if err := sqlx.GetContext(ctx, r.q, &n, query, profileID, theme, theme); err != nil {
		return 0, errors.Wrap(err, "failed to count unseen cards")
	}
	return n, nil
}
