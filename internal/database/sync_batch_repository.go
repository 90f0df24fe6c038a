package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// SyncBatchRepository stores the responses of applied sync batches by idempotency key
type SyncBatchRepository struct {
	q sqlx.ExtContext
}

// Get returns the stored response of a batch, or nil when the key is unknown
func (r *SyncBatchRepository) Get(ctx context.Context, profileID int64, batchKey string) (*models.SyncResponse, error) {
	var raw string
	query := r.q.Rebind(`SELECT response FROM sync_batches WHERE profile_id = ? AND batch_key = ?`)
	err := sqlx.GetContext(ctx, r.q, &raw, query, profileID, batchKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sync batch")
	}
	var resp models.SyncResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode sync batch")
	}
	return &resp, nil
}

// Save records the response of an applied batch
func (r *SyncBatchRepository) Save(ctx context.Context, profileID int64, batchKey string, resp models.SyncResponse, at time.Time) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "failed to encode sync batch")
	}
	query := r.q.Rebind(`INSERT INTO sync_batches (profile_id, batch_key, response, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := r.q.ExecContext(ctx, query, profileID, batchKey, string(raw), at.UTC()); err != nil {
		return errors.Wrap(err, "failed to save sync batch")
	}
	return nil
}

// DeleteOlderThan prunes batches created before cutoff and returns how many were removed
func (r *SyncBatchRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`DELETE FROM sync_batches WHERE created_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune sync batches")
	}
	return res.RowsAffected()
}
