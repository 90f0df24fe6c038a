// Package quests assigns daily and weekly quests and advances their progress counters.
package quests

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/calendar"
	"github.com/example/studyquest/pkg/models"
)

// Number of quests a profile holds per period
const (
	DailyCount  = 3
	WeeklyCount = 1
)

// Store is the persistence the engine runs against, normally scoped to one transaction
type Store interface {
	// Definitions returns every quest definition of the given type
	Definitions(ctx context.Context, questType models.QuestType) ([]models.Quest, error)
	// Assignments returns the profile's assignments for one period, joined with their definitions
	Assignments(ctx context.Context, profileID int64, periodKey string, questType models.QuestType) ([]models.QuestAssignment, error)
	// Assign inserts an assignment; an existing (profile, quest, period) row is left untouched
	Assign(ctx context.Context, profileID, questID int64, periodKey string, at time.Time) error
	// SaveProgress persists progress, completed and completed_at of an assignment
	SaveProgress(ctx context.Context, a models.QuestAssignment) error
}

// Engine runs the quest state machine: not assigned, in progress, completed
type Engine struct {
	cal calendar.Calendar

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewEngine returns an Engine keyed on cal that samples quests with rnd
func NewEngine(cal calendar.Calendar, rnd *rand.Rand) *Engine {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{cal: cal, rnd: rnd}
}

// PeriodKey returns the period an assignment of questType made at now belongs to
func (e *Engine) PeriodKey(questType models.QuestType, now time.Time) string {
	if questType == models.QuestWeekly {
		return e.cal.WeekKey(now)
	}
	return e.cal.DayKey(now)
}

func expectedCount(questType models.QuestType) int {
	if questType == models.QuestWeekly {
		return WeeklyCount
	}
	return DailyCount
}

// EnsureAssigned tops up the profile's daily and weekly assignments for the current period.
// Calling it again within the same period is a no-op.
func (e *Engine) EnsureAssigned(ctx context.Context, store Store, profileID int64, now time.Time) error {
	for _, questType := range []models.QuestType{models.QuestDaily, models.QuestWeekly} {
		if err := e.ensure(ctx, store, profileID, questType, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) ensure(ctx context.Context, store Store, profileID int64, questType models.QuestType, now time.Time) error {
	periodKey := e.PeriodKey(questType, now)
	existing, err := store.Assignments(ctx, profileID, periodKey, questType)
	if err != nil {
		return errors.Wrapf(err, "list %s assignments", questType)
	}
	missing := expectedCount(questType) - len(existing)
	if missing <= 0 {
		return nil
	}

	defs, err := store.Definitions(ctx, questType)
	if err != nil {
		return errors.Wrapf(err, "list %s quests", questType)
	}
	taken := make(map[int64]bool, len(existing))
	for _, a := range existing {
		taken[a.QuestID] = true
	}
	var pool []models.Quest
	for _, d := range defs {
		if !taken[d.ID] {
			pool = append(pool, d)
		}
	}

	for _, q := range e.sample(pool, missing) {
		if err := store.Assign(ctx, profileID, q.ID, periodKey, now); err != nil {
			return errors.Wrapf(err, "assign quest %s", q.Code)
		}
	}
	return nil
}

// sample picks up to n quests from pool without replacement
func (e *Engine) sample(pool []models.Quest, n int) []models.Quest {
	if n > len(pool) {
		n = len(pool)
	}
	e.mu.Lock()
	perm := e.rnd.Perm(len(pool))
	e.mu.Unlock()

	picked := make([]models.Quest, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, pool[idx])
	}
	return picked
}

// Advance adds amount to an in-progress assignment, capped at its target.
// It reports whether this call moved the assignment to completed.
func Advance(a models.QuestAssignment, amount int, now time.Time) (models.QuestAssignment, bool) {
	if a.Completed || amount <= 0 {
		return a, false
	}
	a.Progress += amount
	if a.Progress >= a.Target {
		a.Progress = a.Target
		a.Completed = true
		at := now.UTC()
		a.CompletedAt = &at
		return a, true
	}
	return a, false
}

// Increment advances every current, incomplete assignment tracking metric.
// It returns the assignments that became completed with this call; each is returned at most once in its lifetime.
func (e *Engine) Increment(ctx context.Context, store Store, profileID int64, metric models.QuestMetric, amount int, now time.Time) ([]models.QuestAssignment, error) {
	if amount <= 0 {
		return nil, nil
	}
	var completed []models.QuestAssignment
	for _, questType := range []models.QuestType{models.QuestDaily, models.QuestWeekly} {
		assignments, err := store.Assignments(ctx, profileID, e.PeriodKey(questType, now), questType)
		if err != nil {
			return nil, errors.Wrapf(err, "list %s assignments", questType)
		}
		for _, a := range assignments {
			if a.Metric != metric || a.Completed {
				continue
			}
			next, done := Advance(a, amount, now)
			if err := store.SaveProgress(ctx, next); err != nil {
				return nil, errors.Wrapf(err, "save quest %d progress", a.QuestID)
			}
			if done {
				completed = append(completed, next)
			}
		}
	}
	return completed, nil
}

// Active assigns missing quests and returns the current period's quests, daily first
func (e *Engine) Active(ctx context.Context, store Store, profileID int64, now time.Time) ([]models.QuestView, error) {
	if err := e.EnsureAssigned(ctx, store, profileID, now); err != nil {
		return nil, err
	}
	views := []models.QuestView{}
	for _, questType := range []models.QuestType{models.QuestDaily, models.QuestWeekly} {
		assignments, err := store.Assignments(ctx, profileID, e.PeriodKey(questType, now), questType)
		if err != nil {
			return nil, errors.Wrapf(err, "list %s assignments", questType)
		}
		for _, a := range assignments {
			views = append(views, View(a))
		}
	}
	return views, nil
}

// View converts an assignment to its client representation
func View(a models.QuestAssignment) models.QuestView {
	return models.QuestView{
		ID:        a.ID,
		Title:     a.Title,
		Type:      a.Type,
		Progress:  a.Progress,
		Target:    a.Target,
		Completed: a.Completed,
		Rewards:   models.QuestRewards{XP: a.XPReward, Coins: a.CoinReward},
	}
}
