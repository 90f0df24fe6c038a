package quests

import "github.com/example/studyquest/pkg/models"

// Definitions is the seeded quest table. Codes are stable identifiers used for seeding.
var Definitions = []models.Quest{
	{Code: "daily_review_10", Title: "Review 10 cards", Type: models.QuestDaily, Metric: models.MetricCardsReviewed, Target: 10, XPReward: 20, CoinReward: 2},
	{Code: "daily_review_25", Title: "Review 25 cards", Type: models.QuestDaily, Metric: models.MetricCardsReviewed, Target: 25, XPReward: 40, CoinReward: 4},
	{Code: "daily_correct_5", Title: "Answer 5 cards correctly", Type: models.QuestDaily, Metric: models.MetricCorrectAnswers, Target: 5, XPReward: 15, CoinReward: 1},
	{Code: "daily_correct_15", Title: "Answer 15 cards correctly", Type: models.QuestDaily, Metric: models.MetricCorrectAnswers, Target: 15, XPReward: 35, CoinReward: 3},
	{Code: "daily_test_1", Title: "Complete a test", Type: models.QuestDaily, Metric: models.MetricTestsCompleted, Target: 1, XPReward: 25, CoinReward: 2},
	{Code: "daily_xp_100", Title: "Earn 100 XP", Type: models.QuestDaily, Metric: models.MetricXPEarned, Target: 100, XPReward: 20, CoinReward: 2},
	{Code: "weekly_review_150", Title: "Review 150 cards this week", Type: models.QuestWeekly, Metric: models.MetricCardsReviewed, Target: 150, XPReward: 150, CoinReward: 15},
	{Code: "weekly_tests_5", Title: "Complete 5 tests this week", Type: models.QuestWeekly, Metric: models.MetricTestsCompleted, Target: 5, XPReward: 120, CoinReward: 12},
	{Code: "weekly_perfect_2", Title: "Score 100% on 2 tests", Type: models.QuestWeekly, Metric: models.MetricPerfectScores, Target: 2, XPReward: 150, CoinReward: 20},
	{Code: "weekly_xp_750", Title: "Earn 750 XP this week", Type: models.QuestWeekly, Metric: models.MetricXPEarned, Target: 750, XPReward: 100, CoinReward: 10},
}
