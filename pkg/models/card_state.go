package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Outcome is the result of a single flashcard review
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeSkipped   Outcome = "skipped"
)

// Valid reports whether o is one of the known outcomes
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCorrect, OutcomeIncorrect, OutcomeSkipped:
		return true
	}
	return false
}

// HistoryEntry records one review of a card
type HistoryEntry struct {
	Date    time.Time `json:"date"`
	Outcome Outcome   `json:"outcome"`
}

// ReviewHistory is stored as a JSON array, most recent first
type ReviewHistory []HistoryEntry

// Value implements driver.Valuer
func (h ReviewHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (h *ReviewHistory) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*h = ReviewHistory{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported history type %T", src)
	}
	if len(raw) == 0 {
		*h = ReviewHistory{}
		return nil
	}
	return json.Unmarshal(raw, h)
}

// CardState tracks a profile's spaced repetition progress on a single card
type CardState struct {
	ProfileID   int64         `json:"profile_id" db:"profile_id"`
	CardID      int64         `json:"card_id" db:"card_id"`
	LastSeen    *time.Time    `json:"last_seen" db:"last_seen"`
	NextDue     *time.Time    `json:"next_due" db:"next_due"`
	Interval    int           `json:"interval" db:"interval_days"` // Current interval in days
	EaseFactor  float64       `json:"ease_factor" db:"ease_factor"`
	Repetitions int           `json:"repetitions" db:"repetitions"`
	History     ReviewHistory `json:"history" db:"history"`
}
