package leveling

import (
	"math"

	"github.com/example/studyquest/pkg/models"
)

// Combo counts consecutive correct answers within a study session.
// It lives only as long as the session and is never persisted.
type Combo struct {
	count int
}

// Record updates the combo with a review outcome
func (c *Combo) Record(outcome models.Outcome) {
	if outcome == models.OutcomeCorrect {
		c.count++
		return
	}
	c.count = 0
}

// Reset ends the combo
func (c *Combo) Reset() {
	c.count = 0
}

// Count returns the number of consecutive correct answers
func (c Combo) Count() int {
	return c.count
}

// Multiplier returns the XP multiplier earned by the current combo
func (c Combo) Multiplier() float64 {
	switch {
	case c.count >= 5:
		return 2.0
	case c.count >= 3:
		return 1.5
	default:
		return 1.0
	}
}

// Apply scales amount by the combo multiplier, rounding to the nearest XP
func (c Combo) Apply(amount int) int {
	return int(math.Round(float64(amount) * c.Multiplier()))
}
