package models

import "time"

// ProfileCoins is the coin balance of a profile
type ProfileCoins struct {
	ProfileID   int64 `json:"profile_id" db:"profile_id"`
	Balance     int64 `json:"balance" db:"balance"`
	TotalEarned int64 `json:"total_earned" db:"total_earned"`
}

// CoinTransaction is a coin ledger entry
type CoinTransaction struct {
	ID        int64     `json:"id" db:"id"`
	ProfileID int64     `json:"profile_id" db:"profile_id"`
	Amount    int       `json:"amount" db:"amount"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
