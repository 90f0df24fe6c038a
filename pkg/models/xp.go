package models

// ProfileXP is the persisted XP ledger of a profile
type ProfileXP struct {
	ProfileID      int64   `json:"profile_id" db:"profile_id"`
	TotalXP        int64   `json:"total_xp" db:"total_xp"`
	Level          int     `json:"level" db:"level"`
	DailyBonusDate *string `json:"daily_bonus_date" db:"daily_bonus_date"` // day the bonus was last consumed
}

// SubjectXP is a per-subject XP ledger, independent from ProfileXP
type SubjectXP struct {
	ProfileID int64 `json:"profile_id" db:"profile_id"`
	SubjectID int64 `json:"subject_id" db:"subject_id"`
	XP        int64 `json:"xp" db:"xp"`
}

// XPSnapshot is the canonical XP view returned to clients
type XPSnapshot struct {
	TotalXP    int64 `json:"totalXp"`
	Level      int   `json:"level"`
	XPProgress int64 `json:"xpProgress"`
	XPRequired int64 `json:"xpRequired"`
}
