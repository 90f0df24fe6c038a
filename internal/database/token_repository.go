package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// TokenRepository handles token balances, test history and the token ledger
type TokenRepository struct {
	q sqlx.ExtContext
}

// Get returns the profile's token ledger; a missing ledger has the given default rate
func (r *TokenRepository) Get(ctx context.Context, profileID int64, defaultRate float64) (models.ProfileTokens, error) {
	query := r.q.Rebind(`
		SELECT profile_id, balance, daily_earned, daily_earned_date, conversion_rate
		FROM profile_tokens
		WHERE profile_id = ?`)
	var t models.ProfileTokens
	err := sqlx.GetContext(ctx, r.q, &t, query, profileID)
	if err == sql.ErrNoRows {
		return models.ProfileTokens{ProfileID: profileID, ConversionRate: defaultRate}, nil
	}
	if err != nil {
		return models.ProfileTokens{}, errors.Wrap(err, "failed to get tokens")
	}
	return t, nil
}

// Save upserts the profile's token ledger
func (r *TokenRepository) Save(ctx context.Context, t models.ProfileTokens) error {
	query := r.q.Rebind(`
		INSERT INTO profile_tokens (profile_id, balance, daily_earned, daily_earned_date, conversion_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (profile_id) DO UPDATE SET
			balance = excluded.balance,
			daily_earned = excluded.daily_earned,
			daily_earned_date = excluded.daily_earned_date,
			conversion_rate = excluded.conversion_rate`)
	if _, err := r.q.ExecContext(ctx, query, t.ProfileID, t.Balance, t.DailyEarned, t.DailyEarnedDate, t.ConversionRate); err != nil {
		return errors.Wrap(err, "failed to save tokens")
	}
	return nil
}

// GetHistory returns the profile's history for one test; an unseen test has zero history
func (r *TokenRepository) GetHistory(ctx context.Context, profileID int64, testID string) (models.TokenTestHistory, error) {
	query := r.q.Rebind(`
		SELECT profile_id, test_id, times_completed, best_score
		FROM token_test_history
		WHERE profile_id = ? AND test_id = ?`)
	var h models.TokenTestHistory
	err := sqlx.GetContext(ctx, r.q, &h, query, profileID, testID)
	if err == sql.ErrNoRows {
		return models.TokenTestHistory{ProfileID: profileID, TestID: testID}, nil
	}
	if err != nil {
		return models.TokenTestHistory{}, errors.Wrap(err, "failed to get test history")
	}
	return h, nil
}

// SaveHistory upserts the profile's history for one test
func (r *TokenRepository) SaveHistory(ctx context.Context, h models.TokenTestHistory) error {
	query := r.q.Rebind(`
		INSERT INTO token_test_history (profile_id, test_id, times_completed, best_score)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (profile_id, test_id) DO UPDATE SET
			times_completed = excluded.times_completed,
			best_score = excluded.best_score`)
	if _, err := r.q.ExecContext(ctx, query, h.ProfileID, h.TestID, h.TimesCompleted, h.BestScore); err != nil {
		return errors.Wrap(err, "failed to save test history")
	}
	return nil
}

// AddTransaction appends a ledger entry and sets its ID
func (r *TokenRepository) AddTransaction(ctx context.Context, tx *models.TokenTransaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	id, err := insertReturningID(ctx, r.q, `
		INSERT INTO token_transactions (profile_id, amount, reason, test_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		tx.ProfileID, tx.Amount, tx.Reason, tx.TestID, tx.CreatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "failed to add token transaction")
	}
	tx.ID = id
	return nil
}

// ListTransactions returns the profile's token ledger, oldest first
func (r *TokenRepository) ListTransactions(ctx context.Context, profileID int64) ([]models.TokenTransaction, error) {
	query := r.q.Rebind(`
		SELECT id, profile_id, amount, reason, test_id, created_at
		FROM token_transactions
		WHERE profile_id = ?
		ORDER BY id`)
	var out []models.TokenTransaction
	if err := sqlx.SelectContext(ctx, r.q, &out, query, profileID); err != nil {
		return nil, errors.Wrap(err, "failed to list token transactions")
	}
	return out, nil
}
