package models

// ProfileStats holds session and streak counters for a profile
type ProfileStats struct {
	ProfileID         int64   `json:"profile_id" db:"profile_id"`
	TotalSessions     int     `json:"total_sessions" db:"total_sessions"`
	TotalCardsStudied int     `json:"total_cards_studied" db:"total_cards_studied"`
	CurrentStreak     int     `json:"current_streak" db:"current_streak"`
	LongestStreak     int     `json:"longest_streak" db:"longest_streak"`
	LastSessionDate   *string `json:"last_session_date" db:"last_session_date"` // YYYY-MM-DD
	TestsCompleted    int     `json:"tests_completed" db:"tests_completed"`
}
