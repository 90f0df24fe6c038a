package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// CoinRepository handles coin balances and the coin ledger
type CoinRepository struct {
	q sqlx.ExtContext
}

// Get returns the profile's coin balance
func (r *CoinRepository) Get(ctx context.Context, profileID int64) (models.ProfileCoins, error) {
	query := r.q.Rebind(`SELECT profile_id, balance, total_earned FROM profile_coins WHERE profile_id = ?`)
	var c models.ProfileCoins
	err := sqlx.GetContext(ctx, r.q, &c, query, profileID)
	if err == sql.ErrNoRows {
		return models.ProfileCoins{ProfileID: profileID}, nil
	}
	if err != nil {
		return models.ProfileCoins{}, errors.Wrap(err, "failed to get coins")
	}
	return c, nil
}

// Credit adds amount coins and appends the matching ledger entry.
// Balance and ledger always change together.
func (r *CoinRepository) Credit(ctx context.Context, profileID int64, amount int, reason string, at time.Time) (models.ProfileCoins, error) {
	if amount <= 0 {
		return r.Get(ctx, profileID)
	}
	query := r.q.Rebind(`
		INSERT INTO profile_coins (profile_id, balance, total_earned)
		VALUES (?, ?, ?)
		ON CONFLICT (profile_id) DO UPDATE SET
			balance = profile_coins.balance + excluded.balance,
			total_earned = profile_coins.total_earned + excluded.total_earned`)
	if _, err := r.q.ExecContext(ctx, query, profileID, amount, amount); err != nil {
		return models.ProfileCoins{}, errors.Wrap(err, "failed to credit coins")
	}
	if _, err := insertReturningID(ctx, r.q, `
		INSERT INTO coin_transactions (profile_id, amount, reason, created_at)
		VALUES (?, ?, ?, ?)`,
		profileID, amount, reason, at.UTC()); err != nil {
		return models.ProfileCoins{}, errors.Wrap(err, "failed to add coin transaction")
	}
	return r.Get(ctx, profileID)
}

// ListTransactions returns the profile's coin ledger, oldest first
func (r *CoinRepository) ListTransactions(ctx context.Context, profileID int64) ([]models.CoinTransaction, error) {
	query := r.q.Rebind(`
		SELECT id, profile_id, amount, reason, created_at
		FROM coin_transactions
		WHERE profile_id = ?
		ORDER BY id`)
	var out []models.CoinTransaction
	if err := sqlx.SelectContext(ctx, r.q, &out, query, profileID); err != nil {
		return nil, errors.Wrap(err, "failed to list coin transactions")
	}
	return out, nil
}
