package models

// Reward event kinds surfaced to the client
const (
	EventLevelUp        = "level-up"
	EventUnlock         = "unlock"
	EventQuestCompleted = "quest-completed"
	EventAchievement    = "achievement"
)

// RewardEvent is a notification-worthy change produced while applying rewards
type RewardEvent struct {
	Kind    string `json:"kind"`
	Level   int    `json:"level,omitempty"`
	Feature string `json:"feature,omitempty"`
	Title   string `json:"title,omitempty"`
	XP      int    `json:"xp,omitempty"`
	Coins   int    `json:"coins,omitempty"`
}

// SyncRequest carries the client's pending reward deltas
type SyncRequest struct {
	PendingXP    int    `json:"pendingXp"`
	PendingCoins int    `json:"pendingCoins"`
	Reason       string `json:"reason"`
	BatchKey     string `json:"batchKey,omitempty"`
}

// AchievementUnlock describes a newly unlocked achievement
type AchievementUnlock struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	XPReward int    `json:"xpReward"`
}

// SyncResponse is the server's canonical reward state after a sync
type SyncResponse struct {
	XP              XPSnapshot          `json:"xp"`
	Coins           int64               `json:"coins"`
	NewAchievements []AchievementUnlock `json:"newAchievements"`
	Events          []RewardEvent       `json:"events"`
	Replayed        bool                `json:"replayed,omitempty"`
}

// OutcomeResult is returned by recordOutcome
type OutcomeResult struct {
	CardState       CardState     `json:"cardState"`
	Stats           ProfileStats  `json:"stats"`
	CompletedQuests []QuestView   `json:"completedQuests,omitempty"`
	Events          []RewardEvent `json:"events,omitempty"`
}

// DueCards is returned by getDueCards
type DueCards struct {
	DueCardIDs    []int64 `json:"dueCardIds"`
	UnseenCardIDs []int64 `json:"unseenCardIds"`
	TotalDue      int     `json:"totalDue"`
	TotalUnseen   int     `json:"totalUnseen"`
}
