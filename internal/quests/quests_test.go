package quests

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studyquest/internal/calendar"
	"github.com/example/studyquest/pkg/models"
)

type memStore struct {
	defs        []models.Quest
	assignments []models.QuestAssignment
	nextID      int64
}

func newMemStore() *memStore {
	s := &memStore{}
	for i, d := range Definitions {
		d.ID = int64(i + 1)
		s.defs = append(s.defs, d)
	}
	return s
}

func (s *memStore) quest(id int64) models.Quest {
	for _, d := range s.defs {
		if d.ID == id {
			return d
		}
	}
	return models.Quest{}
}

func (s *memStore) Definitions(_ context.Context, questType models.QuestType) ([]models.Quest, error) {
	var out []models.Quest
	for _, d := range s.defs {
		if d.Type == questType {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) Assignments(_ context.Context, profileID int64, periodKey string, questType models.QuestType) ([]models.QuestAssignment, error) {
	var out []models.QuestAssignment
	for _, a := range s.assignments {
		if a.ProfileID == profileID && a.PeriodKey == periodKey && a.Type == questType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) Assign(_ context.Context, profileID, questID int64, periodKey string, at time.Time) error {
	for _, a := range s.assignments {
		if a.ProfileID == profileID && a.QuestID == questID && a.PeriodKey == periodKey {
			return nil
		}
	}
	q := s.quest(questID)
	s.nextID++
	s.assignments = append(s.assignments, models.QuestAssignment{
		ID: s.nextID, ProfileID: profileID, QuestID: questID, PeriodKey: periodKey, AssignedAt: at,
		Title: q.Title, Type: q.Type, Metric: q.Metric, Target: q.Target, XPReward: q.XPReward, CoinReward: q.CoinReward,
	})
	return nil
}

func (s *memStore) SaveProgress(_ context.Context, a models.QuestAssignment) error {
	for i := range s.assignments {
		if s.assignments[i].ID == a.ID {
			s.assignments[i] = a
		}
	}
	return nil
}

func newTestEngine() *Engine {
	return NewEngine(calendar.New(time.UTC), rand.New(rand.NewSource(42)))
}

var monday = time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

func TestActiveAssignsThreeDailyAndOneWeekly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	engine := newTestEngine()

	views, err := engine.Active(ctx, store, 1, monday)
	require.NoError(t, err)
	require.Len(t, views, DailyCount+WeeklyCount)

	seen := map[int64]bool{}
	for i, v := range views {
		if i < DailyCount {
			assert.Equal(t, models.QuestDaily, v.Type)
		} else {
			assert.Equal(t, models.QuestWeekly, v.Type)
		}
		assert.Zero(t, v.Progress)
		assert.False(t, v.Completed)
		assert.False(t, seen[v.ID])
		seen[v.ID] = true
	}

	questIDs := map[int64]bool{}
	for _, a := range store.assignments {
		assert.False(t, questIDs[a.QuestID], "quest sampled twice")
		questIDs[a.QuestID] = true
	}
}

func TestActiveIsIdempotentWithinPeriod(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	engine := newTestEngine()

	first, err := engine.Active(ctx, store, 1, monday)
	require.NoError(t, err)
	second, err := engine.Active(ctx, store, 1, monday.Add(10*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.assignments, DailyCount+WeeklyCount)
}

func TestNewDayAssignsNewDailiesOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	engine := newTestEngine()

	require.NoError(t, engine.EnsureAssigned(ctx, store, 1, monday))
	require.NoError(t, engine.EnsureAssigned(ctx, store, 1, monday.AddDate(0, 0, 1)))

	assert.Len(t, store.assignments, 2*DailyCount+WeeklyCount)
}

func TestEnsureAssignedTopsUpPartialPeriod(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	engine := newTestEngine()
	require.NoError(t, store.Assign(ctx, 1, 1, "2026-10-12", monday))

	require.NoError(t, engine.EnsureAssigned(ctx, store, 1, monday))

	daily, err := store.Assignments(ctx, 1, "2026-10-12", models.QuestDaily)
	require.NoError(t, err)
	assert.Len(t, daily, DailyCount)
	assert.Equal(t, int64(1), daily[0].QuestID)
}

func TestPeriodKeys(t *testing.T) {
	engine := newTestEngine()
	assert.Equal(t, "2026-10-12", engine.PeriodKey(models.QuestDaily, monday))
	assert.Equal(t, "2026-W42", engine.PeriodKey(models.QuestWeekly, monday))
}

func TestAdvanceCapsAtTargetAndCompletesOnce(t *testing.T) {
	a := models.QuestAssignment{Target: 5, Progress: 3}

	a, done := Advance(a, 4, monday)
	assert.True(t, done)
	assert.Equal(t, 5, a.Progress)
	require.NotNil(t, a.CompletedAt)

	a, done = Advance(a, 1, monday)
	assert.False(t, done)
	assert.Equal(t, 5, a.Progress)

	_, done = Advance(models.QuestAssignment{Target: 5}, 0, monday)
	assert.False(t, done)
}

func TestIncrementMatchesMetricAndReportsCompletionOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	engine := newTestEngine()
	// daily_correct_5 and weekly_review_150
	require.NoError(t, store.Assign(ctx, 1, 3, "2026-10-12", monday))
	require.NoError(t, store.Assign(ctx, 1, 7, "2026-W42", monday))

	var completed []models.QuestAssignment
	for i := 0; i < 7; i++ {
		done, err := engine.Increment(ctx, store, 1, models.MetricCorrectAnswers, 1, monday)
		require.NoError(t, err)
		completed = append(completed, done...)
	}
	require.Len(t, completed, 1)
	assert.Equal(t, int64(3), completed[0].QuestID)

	_, err := engine.Increment(ctx, store, 1, models.MetricCardsReviewed, 2, monday)
	require.NoError(t, err)

	daily, _ := store.Assignments(ctx, 1, "2026-10-12", models.QuestDaily)
	assert.Equal(t, 5, daily[0].Progress)
	assert.True(t, daily[0].Completed)
	weekly, _ := store.Assignments(ctx, 1, "2026-W42", models.QuestWeekly)
	assert.Equal(t, 2, weekly[0].Progress)
}

func TestIncrementIgnoresPastPeriods(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	engine := newTestEngine()
	require.NoError(t, store.Assign(ctx, 1, 1, "2026-10-11", monday.AddDate(0, 0, -1)))

	done, err := engine.Increment(ctx, store, 1, models.MetricCardsReviewed, 50, monday)
	require.NoError(t, err)
	assert.Empty(t, done)
	assert.Zero(t, store.assignments[0].Progress)
}
