// Package tokens computes test-completion token rewards with diminishing returns and anti-gaming gates.
package tokens

import (
	"fmt"
	"math"

	"github.com/example/studyquest/pkg/models"
)

const (
	// PassingScore is the lowest score that can earn tokens
	PassingScore = 50
	// PerfectScore marks a mastered test
	PerfectScore = 100
	// DailyCap is the number of tokens a profile may earn per calendar day
	DailyCap = 10
	// MaxRepeats is the number of rewarded completions allowed per test
	MaxRepeats = 3
)

var baseByDifficulty = map[models.Difficulty]int{
	models.DifficultyEasy:   2,
	models.DifficultyMedium: 3,
	models.DifficultyHard:   5,
}

// repeat multiplier by attempt index, attempt 1 first
var repeatMultipliers = [MaxRepeats]float64{1.0, 0.5, 0.25}

// Gate identifies which rule decided a reward
type Gate string

const (
	GateAwarded    Gate = "awarded"
	GateScore      Gate = "score"
	GateZeroRamp   Gate = "zero_ramp"
	GateMastered   Gate = "mastered"
	GateMaxRepeats Gate = "max_repeats"
	GateDailyCap   Gate = "daily_cap"
)

// Input is everything the calculator needs for one completed test
type Input struct {
	Score      int
	Difficulty models.Difficulty
	History    models.TokenTestHistory
	// DailyEarned is the number of tokens already earned today
	DailyEarned int
}

// Result is the outcome of the calculator. A zero-token result is a normal outcome, not an error.
type Result struct {
	Tokens int
	Reason string
	Gate   Gate
}

// Base returns the full-score token base for difficulty
func Base(d models.Difficulty) int {
	return baseByDifficulty[d]
}

// Calculate runs the gates in order: score, ramp, mastery, repeats, daily cap.
// Score and difficulty must already be validated.
func Calculate(in Input) Result {
	if in.Score < PassingScore {
		return Result{
			Gate:   GateScore,
			Reason: fmt.Sprintf("Score %d%% is below the %d%% needed to earn tokens", in.Score, PassingScore),
		}
	}

	base := Base(in.Difficulty)
	calculated := int(math.Ceil(float64(base*(in.Score-PassingScore)) / float64(PerfectScore-PassingScore)))
	if calculated <= 0 {
		return Result{
			Gate:   GateZeroRamp,
			Reason: fmt.Sprintf("A %d%% score earns no tokens, score higher to earn some", in.Score),
		}
	}

	if in.History.BestScore >= PerfectScore {
		return Result{Gate: GateMastered, Reason: "Test mastered: you already scored 100% on this test"}
	}

	if in.History.TimesCompleted >= MaxRepeats {
		return Result{
			Gate:   GateMaxRepeats,
			Reason: fmt.Sprintf("Max repeats reached: this test already earned tokens %d times", MaxRepeats),
		}
	}
	attempt := in.History.TimesCompleted + 1
	afterRepeat := int(math.Ceil(float64(calculated) * repeatMultipliers[in.History.TimesCompleted]))
	if afterRepeat < 1 {
		afterRepeat = 1
	}

	remaining := DailyRemaining(in.DailyEarned)
	if remaining == 0 {
		return Result{Gate: GateDailyCap, Reason: fmt.Sprintf("Daily limit of %d tokens reached, come back tomorrow", DailyCap)}
	}
	award := afterRepeat
	if award > remaining {
		award = remaining
	}

	reason := fmt.Sprintf("Earned %d tokens for %d%% score on %s test", award, in.Score, in.Difficulty)
	if attempt > 1 {
		reason += fmt.Sprintf(" (attempt %d)", attempt)
	}
	if award < afterRepeat {
		reason += " (daily limit reached)"
	}
	return Result{Tokens: award, Reason: reason, Gate: GateAwarded}
}

// DailyRemaining returns how many tokens can still be earned today
func DailyRemaining(dailyEarned int) int {
	remaining := DailyCap - dailyEarned
	if remaining < 0 {
		return 0
	}
	return remaining
}

// EarnedToday returns the ledger's daily counter, treating a counter from another day as zero
func EarnedToday(t models.ProfileTokens, today string) int {
	if t.DailyEarnedDate == nil || *t.DailyEarnedDate != today {
		return 0
	}
	return t.DailyEarned
}

// Credit applies a non-zero award to the ledger and the test history
func Credit(t models.ProfileTokens, h models.TokenTestHistory, score, amount int, today string) (models.ProfileTokens, models.TokenTestHistory) {
	earned := EarnedToday(t, today)
	day := today
	t.Balance += int64(amount)
	t.DailyEarned = earned + amount
	t.DailyEarnedDate = &day

	h.TimesCompleted++
	if score > h.BestScore {
		h.BestScore = score
	}
	return t, h
}
