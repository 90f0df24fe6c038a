package models

import "time"

// QuestType is the period a quest runs for
type QuestType string

const (
	QuestDaily  QuestType = "daily"
	QuestWeekly QuestType = "weekly"
)

// QuestMetric identifies which events advance a quest
type QuestMetric string

const (
	MetricCardsReviewed  QuestMetric = "cards_reviewed"
	MetricCorrectAnswers QuestMetric = "correct_answers"
	MetricTestsCompleted QuestMetric = "tests_completed"
	MetricPerfectScores  QuestMetric = "perfect_scores"
	MetricXPEarned       QuestMetric = "xp_earned"
)

// Quest is a quest definition
type Quest struct {
	ID         int64       `json:"id" db:"id"`
	Code       string      `json:"code" db:"code"`
	Title      string      `json:"title" db:"title"`
	Type       QuestType   `json:"type" db:"quest_type"`
	Metric     QuestMetric `json:"metric" db:"metric"`
	Target     int         `json:"target" db:"target"`
	XPReward   int         `json:"xp_reward" db:"xp_reward"`
	CoinReward int         `json:"coin_reward" db:"coin_reward"`
}

// QuestAssignment is a quest handed to a profile for one period
type QuestAssignment struct {
	ID          int64      `json:"id" db:"id"`
	ProfileID   int64      `json:"profile_id" db:"profile_id"`
	QuestID     int64      `json:"quest_id" db:"quest_id"`
	PeriodKey   string     `json:"period_key" db:"period_key"`
	Progress    int        `json:"progress" db:"progress"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	AssignedAt  time.Time  `json:"assigned_at" db:"assigned_at"`

	// Joined from the quest definition
	Title      string      `json:"title" db:"title"`
	Type       QuestType   `json:"type" db:"quest_type"`
	Metric     QuestMetric `json:"metric" db:"metric"`
	Target     int         `json:"target" db:"target"`
	XPReward   int         `json:"xp_reward" db:"xp_reward"`
	CoinReward int         `json:"coin_reward" db:"coin_reward"`
}

// QuestRewards describes what completing a quest pays out
type QuestRewards struct {
	XP    int `json:"xp"`
	Coins int `json:"coins"`
}

// QuestView is the client-facing representation of an active quest
type QuestView struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	Type      QuestType    `json:"type"`
	Progress  int          `json:"progress"`
	Target    int          `json:"target"`
	Completed bool         `json:"completed"`
	Rewards   QuestRewards `json:"rewards"`
}
