// Package leveling implements the XP ledger: threshold curve, multi-level
// rollover, combo multiplier, daily bonus and level-gated feature unlocks.
package leveling

import (
	"math"

	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// MaxRolloverSteps bounds the number of thresholds a single award may cross
const MaxRolloverSteps = 1000

// ErrRolloverLimit means the threshold curve never stops being crossed,
// which only happens with a broken curve configuration.
var ErrRolloverLimit = errors.New("xp rollover exceeded iteration limit")

// Curve is the exponential per-level XP threshold: floor(Base * Growth^(level-1))
type Curve struct {
	Base   float64
	Growth float64
}

// DefaultCurve is 100 XP for level 1, growing by half each level
var DefaultCurve = Curve{Base: 100, Growth: 1.5}

// Required returns the XP needed to go from level to level+1
func (c Curve) Required(level int) int64 {
	if level < 1 {
		level = 1
	}
	v := math.Floor(c.Base * math.Pow(c.Growth, float64(level-1)))
	if v >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(v)
}

// XPRequired returns the default curve's threshold for level
func XPRequired(level int) int64 {
	return DefaultCurve.Required(level)
}

// Engine applies XP awards to a profile ledger
type Engine struct {
	curve    Curve
	maxSteps int
}

// New returns an Engine using the default curve
func New() *Engine {
	return NewWithCurve(DefaultCurve)
}

// NewWithCurve returns an Engine using curve
func NewWithCurve(curve Curve) *Engine {
	return &Engine{curve: curve, maxSteps: MaxRolloverSteps}
}

// NewProfileXP returns the ledger of a profile that has never earned XP
func NewProfileXP(profileID int64) models.ProfileXP {
	return models.ProfileXP{ProfileID: profileID, Level: 1}
}

// Progress returns the XP accumulated since reaching the ledger's level
func (e *Engine) Progress(xp models.ProfileXP) (int64, error) {
	level := xp.Level
	if level < 1 {
		level = 1
	}
	if level-1 > e.maxSteps {
		return 0, ErrRolloverLimit
	}
	progress := xp.TotalXP
	for l := 1; l < level; l++ {
		progress -= e.curve.Required(l)
	}
	if progress < 0 {
		progress = 0
	}
	return progress, nil
}

// Snapshot returns the canonical XP view of a ledger
func (e *Engine) Snapshot(xp models.ProfileXP) (models.XPSnapshot, error) {
	progress, err := e.Progress(xp)
	if err != nil {
		return models.XPSnapshot{}, err
	}
	level := xp.Level
	if level < 1 {
		level = 1
	}
	return models.XPSnapshot{
		TotalXP:    xp.TotalXP,
		Level:      level,
		XPProgress: progress,
		XPRequired: e.curve.Required(level),
	}, nil
}

// Award is the outcome of crediting XP
type Award struct {
	XP           models.ProfileXP
	Snapshot     models.XPSnapshot
	Amount       int
	LevelsGained int
	Events       []models.RewardEvent
}

// Award credits amount XP and walks the ledger across every threshold it crosses.
// Each crossed level emits a level-up event plus any unlocks the age group earns there.
// A non-positive amount leaves the ledger unchanged.
func (e *Engine) Award(xp models.ProfileXP, amount int, group models.AgeGroup) (Award, error) {
	if xp.Level < 1 {
		xp.Level = 1
	}
	progress, err := e.Progress(xp)
	if err != nil {
		return Award{}, err
	}
	if amount <= 0 {
		return Award{XP: xp, Snapshot: snapshotOf(xp, progress, e.curve)}, nil
	}

	next := xp
	next.TotalXP += int64(amount)
	progress += int64(amount)

	var events []models.RewardEvent
	for steps := 0; progress >= e.curve.Required(next.Level); steps++ {
		if steps >= e.maxSteps {
			return Award{}, ErrRolloverLimit
		}
		progress -= e.curve.Required(next.Level)
		next.Level++
		events = append(events, models.RewardEvent{Kind: models.EventLevelUp, Level: next.Level})
		for _, feature := range UnlocksAt(group, next.Level) {
			events = append(events, models.RewardEvent{Kind: models.EventUnlock, Level: next.Level, Feature: string(feature)})
		}
	}

	return Award{
		XP:           next,
		Snapshot:     snapshotOf(next, progress, e.curve),
		Amount:       amount,
		LevelsGained: next.Level - xp.Level,
		Events:       events,
	}, nil
}

func snapshotOf(xp models.ProfileXP, progress int64, curve Curve) models.XPSnapshot {
	return models.XPSnapshot{
		TotalXP:    xp.TotalXP,
		Level:      xp.Level,
		XPProgress: progress,
		XPRequired: curve.Required(xp.Level),
	}
}

// ApplyDailyBonus doubles the first award of a calendar day.
// It returns the updated ledger, the amount to credit and whether the bonus was consumed.
func ApplyDailyBonus(xp models.ProfileXP, amount int, today string) (models.ProfileXP, int, bool) {
	if amount <= 0 {
		return xp, amount, false
	}
	if xp.DailyBonusDate != nil && *xp.DailyBonusDate == today {
		return xp, amount, false
	}
	day := today
	xp.DailyBonusDate = &day
	return xp, amount * 2, true
}
