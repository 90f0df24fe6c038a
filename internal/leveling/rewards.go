package leveling

import "github.com/example/studyquest/pkg/models"

// XP and coin amounts granted for study activity
const (
	XPCorrectAnswer     = 10
	XPIncorrectAnswer   = 2
	XPTestCompleted     = 25
	XPPerfectTestBonus  = 25
	CoinsTestCompleted  = 5
	CoinsPerfectTest    = 5
	SubjectXPPerCorrect = 10
)

// AnswerXP returns the base XP for a card review before any multiplier
func AnswerXP(outcome models.Outcome) int {
	switch outcome {
	case models.OutcomeCorrect:
		return XPCorrectAnswer
	case models.OutcomeIncorrect:
		return XPIncorrectAnswer
	default:
		return 0
	}
}

// TestRewards returns the base XP and coins for a completed test
func TestRewards(score int) (xp int, coins int) {
	xp, coins = XPTestCompleted, CoinsTestCompleted
	if score >= 100 {
		xp += XPPerfectTestBonus
		coins += CoinsPerfectTest
	}
	return xp, coins
}
