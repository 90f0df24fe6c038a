package spaced_repetition

import (
	"math"
	"time"

	"github.com/example/studyquest/pkg/models"
)

// SM2 implements the SuperMemo-2 variant used to schedule flashcards
type SM2 struct {
	// Ease factor given to a card that has never been reviewed
	InitialEaseFactor float64
	// Lower bound of the ease factor
	MinEaseFactor float64
	// Ease factor change on a correct answer
	EaseBonus float64
	// Ease factor change on an incorrect answer
	EasePenalty float64
	// Intervals in days for the first correct repetitions
	InitialIntervals []int
	// Number of history entries kept per card
	HistoryLimit int
}

// NewSM2 returns an SM2 with the default parameters
func NewSM2() *SM2 {
	return &SM2{
		InitialEaseFactor: 2.5,
		MinEaseFactor:     1.3,
		EaseBonus:         0.1,
		EasePenalty:       0.2,
		InitialIntervals:  []int{1, 3},
		HistoryLimit:      20,
	}
}

// NewCardState returns the state of a card that has never been reviewed
func (sm *SM2) NewCardState(profileID, cardID int64) models.CardState {
	return models.CardState{
		ProfileID:   profileID,
		CardID:      cardID,
		Interval:    0,
		EaseFactor:  sm.InitialEaseFactor,
		Repetitions: 0,
		History:     models.ReviewHistory{},
	}
}

// Process returns the card state after a review with the given outcome.
// The input state is not modified. Outcome must already be validated.
func (sm *SM2) Process(prev models.CardState, outcome models.Outcome, now time.Time) models.CardState {
	next := prev

	switch outcome {
	case models.OutcomeCorrect:
		next.Repetitions++
		if next.Repetitions <= len(sm.InitialIntervals) {
			next.Interval = sm.InitialIntervals[next.Repetitions-1]
		} else {
			next.Interval = int(math.Round(float64(prev.Interval) * prev.EaseFactor))
		}
		next.EaseFactor = math.Max(sm.MinEaseFactor, prev.EaseFactor+sm.EaseBonus)
	case models.OutcomeIncorrect:
		next.Repetitions = 0
		next.Interval = 1
		next.EaseFactor = math.Max(sm.MinEaseFactor, prev.EaseFactor-sm.EasePenalty)
	case models.OutcomeSkipped:
		// A skip brings the card back tomorrow without touching its learning progress
		next.Interval = 1
	}

	if next.Interval < 1 {
		next.Interval = 1
	}

	seen := now
	due := seen.AddDate(0, 0, next.Interval)
	next.LastSeen = &seen
	next.NextDue = &due

	history := make(models.ReviewHistory, 0, sm.HistoryLimit)
	history = append(history, models.HistoryEntry{Date: seen, Outcome: outcome})
	for _, entry := range prev.History {
		if len(history) >= sm.HistoryLimit {
			break
		}
		history = append(history, entry)
	}
	next.History = history

	return next
}

// IsDue reports whether the card should be shown at the given time
func IsDue(state models.CardState, now time.Time) bool {
	return state.NextDue == nil || !state.NextDue.After(now)
}
