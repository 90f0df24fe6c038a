package models

import "time"

// AchievementMetric names the profile figure an achievement is measured on
type AchievementMetric string

const (
	AchievementTotalCards     AchievementMetric = "total_cards"
	AchievementLongestStreak  AchievementMetric = "longest_streak"
	AchievementLevel          AchievementMetric = "level"
	AchievementTestsCompleted AchievementMetric = "tests_completed"
	AchievementCoinsEarned    AchievementMetric = "coins_earned"
)

// Achievement is an achievement definition
type Achievement struct {
	ID          int64             `json:"id" db:"id"`
	Code        string            `json:"code" db:"code"`
	Title       string            `json:"title" db:"title"`
	Description string            `json:"description" db:"description"`
	Metric      AchievementMetric `json:"metric" db:"metric"`
	Threshold   int64             `json:"threshold" db:"threshold"`
	XPReward    int               `json:"xp_reward" db:"xp_reward"`
}

// ProfileAchievement records an unlock. Unlocks are never revoked.
type ProfileAchievement struct {
	ProfileID     int64     `json:"profile_id" db:"profile_id"`
	AchievementID int64     `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}
