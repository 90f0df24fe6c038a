package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// StatisticsRepository handles session and streak counters
type StatisticsRepository struct {
	q sqlx.ExtContext
}

// Get returns the profile's stats; a profile with no reviews gets zero stats
func (r *StatisticsRepository) Get(ctx context.Context, profileID int64) (models.ProfileStats, error) {
	query := r.q.Rebind(`
		SELECT profile_id, total_sessions, total_cards_studied, current_streak, longest_streak, last_session_date, tests_completed
		FROM profile_stats
		WHERE profile_id = ?`)
	var stats models.ProfileStats
	err := sqlx.GetContext(ctx, r.q, &stats, query, profileID)
	if err == sql.ErrNoRows {
		return models.ProfileStats{ProfileID: profileID}, nil
	}
	if err != nil {
		return models.ProfileStats{}, errors.Wrap(err, "failed to get statistics")
	}
	return stats, nil
}

// Save upserts the profile's stats
func (r *StatisticsRepository) Save(ctx context.Context, s models.ProfileStats) error {
	query := r.q.Rebind(`
		INSERT INTO profile_stats (profile_id, total_sessions, total_cards_studied, current_streak, longest_streak, last_session_date, tests_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id) DO UPDATE SET
			total_sessions = excluded.total_sessions,
			total_cards_studied = excluded.total_cards_studied,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_session_date = excluded.last_session_date,
			tests_completed = excluded.tests_completed`)
	_, err := r.q.ExecContext(ctx, query,
		s.ProfileID, s.TotalSessions, s.TotalCardsStudied, s.CurrentStreak, s.LongestStreak, s.LastSessionDate, s.TestsCompleted)
	if err != nil {
		return errors.Wrap(err, "failed to save statistics")
	}
	return nil
}
