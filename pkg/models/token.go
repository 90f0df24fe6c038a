package models

import "time"

// Difficulty of a completed test
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ProfileTokens is the token balance of a profile
type ProfileTokens struct {
	ProfileID       int64   `json:"profile_id" db:"profile_id"`
	Balance         int64   `json:"balance" db:"balance"`
	DailyEarned     int     `json:"daily_earned" db:"daily_earned"`
	DailyEarnedDate *string `json:"daily_earned_date" db:"daily_earned_date"`
	ConversionRate  float64 `json:"conversion_rate" db:"conversion_rate"`
}

// TokenTestHistory tracks repeat attempts of one test by one profile
type TokenTestHistory struct {
	ProfileID      int64  `json:"profile_id" db:"profile_id"`
	TestID         string `json:"test_id" db:"test_id"`
	TimesCompleted int    `json:"times_completed" db:"times_completed"`
	BestScore      int    `json:"best_score" db:"best_score"`
}

// TokenTransaction is a token ledger entry
type TokenTransaction struct {
	ID        int64     `json:"id" db:"id"`
	ProfileID int64     `json:"profile_id" db:"profile_id"`
	Amount    int       `json:"amount" db:"amount"`
	Reason    string    `json:"reason" db:"reason"`
	TestID    string    `json:"test_id" db:"test_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TokenBalance is the client-facing token summary
type TokenBalance struct {
	Balance        int64   `json:"balance"`
	DailyEarned    int     `json:"dailyEarned"`
	DailyRemaining int     `json:"dailyRemaining"`
	ConversionRate float64 `json:"conversionRate"`
	CurrencyValue  float64 `json:"currencyValue"`
}

// TestCompletion is the result of completeTest
type TestCompletion struct {
	TokensAwarded int           `json:"tokensAwarded"`
	Reason        string        `json:"reason"`
	Events        []RewardEvent `json:"events,omitempty"`
}
