package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studyquest/pkg/models"
)

type fakeSyncer struct {
	mu      sync.Mutex
	calls   []models.SyncRequest
	fail    []error
	total   int64
	coins   int64
	events  []models.RewardEvent
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *fakeSyncer) Sync(_ context.Context, req models.SyncRequest) (models.SyncResponse, error) {
	if s.release != nil {
		s.once.Do(func() {
			close(s.started)
			<-s.release
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if len(s.fail) > 0 {
		err := s.fail[0]
		s.fail = s.fail[1:]
		if err != nil {
			return models.SyncResponse{}, err
		}
	}
	s.total += int64(req.PendingXP)
	s.coins += int64(req.PendingCoins)
	resp := models.SyncResponse{
		XP:     models.XPSnapshot{TotalXP: s.total, Level: 1, XPProgress: s.total, XPRequired: 100},
		Coins:  s.coins,
		Events: s.events,
	}
	s.events = nil
	return resp, nil
}

func (s *fakeSyncer) requests() []models.SyncRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncRequest, len(s.calls))
	copy(out, s.calls)
	return out
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newPredictor(syncer Syncer) (*Predictor, *testClock) {
	clock := &testClock{t: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}
	initial := Canonical{XP: models.XPSnapshot{Level: 1, XPRequired: 100}}
	return NewPredictor(syncer, initial, WithClock(clock.Now)), clock
}

func TestRecordAnswerAppliesComboAndDailyBonus(t *testing.T) {
	p, _ := newPredictor(&fakeSyncer{})

	var gained []int
	for i := 0; i < 5; i++ {
		gained = append(gained, p.RecordAnswer(models.OutcomeCorrect))
	}
	assert.Equal(t, []int{10, 10, 15, 15, 20}, gained)

	view := p.Predicted()
	assert.Equal(t, 70, view.PendingXP)
	assert.Equal(t, 5, view.Combo)
	assert.Equal(t, models.XPSnapshot{TotalXP: 140, Level: 2, XPProgress: 40, XPRequired: 150}, view.XP)

	// canonical state never moves without a server response
	assert.Equal(t, int64(0), p.Canonical().XP.TotalXP)

	n, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, models.EventLevelUp, n.Event.Kind)
	assert.Equal(t, 2, n.Event.Level)
	assert.True(t, n.Predicted)
}

func TestSkippedAnswerBreaksCombo(t *testing.T) {
	p, _ := newPredictor(&fakeSyncer{})

	p.RecordAnswer(models.OutcomeCorrect)
	p.RecordAnswer(models.OutcomeCorrect)
	assert.Equal(t, 0, p.RecordAnswer(models.OutcomeSkipped))
	assert.Equal(t, 0, p.Predicted().Combo)
	assert.Equal(t, 2, p.RecordAnswer(models.OutcomeIncorrect))
	assert.Equal(t, 10, p.RecordAnswer(models.OutcomeCorrect))
	assert.Equal(t, 32, p.Predicted().PendingXP)
}

func TestRecordTest(t *testing.T) {
	p, _ := newPredictor(&fakeSyncer{})

	xp, coins := p.RecordTest(100)
	assert.Equal(t, 50, xp)
	assert.Equal(t, 10, coins)

	xp, coins = p.RecordTest(60)
	assert.Equal(t, 25, xp)
	assert.Equal(t, 5, coins)

	view := p.Predicted()
	assert.Equal(t, 75, view.PendingXP)
	assert.Equal(t, 15, view.PendingCoins)
	assert.Equal(t, int64(15), view.Coins)
}

func TestFlushReplacesCanonicalState(t *testing.T) {
	syncer := &fakeSyncer{}
	p, _ := newPredictor(syncer)

	p.RecordTest(80)
	p.RecordAnswer(models.OutcomeCorrect)

	resp, err := p.Flush(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp)

	calls := syncer.requests()
	require.Len(t, calls, 1)
	assert.Equal(t, 35, calls[0].PendingXP)
	assert.Equal(t, 5, calls[0].PendingCoins)
	assert.NotEmpty(t, calls[0].BatchKey)
	assert.Contains(t, calls[0].Reason, "test completed (80%)")

	assert.Equal(t, Canonical{XP: resp.XP, Coins: 5}, p.Canonical())
	view := p.Predicted()
	assert.Equal(t, 0, view.PendingXP)
	assert.False(t, view.Syncing)
	assert.Equal(t, int64(35), view.XP.TotalXP)
}

func TestFlushWithNothingPending(t *testing.T) {
	syncer := &fakeSyncer{}
	p, _ := newPredictor(syncer)

	resp, err := p.Flush(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, syncer.requests())
}

func TestFailedBatchIsRetriedWithSameKey(t *testing.T) {
	syncer := &fakeSyncer{fail: []error{errors.New("offline")}}
	p, _ := newPredictor(syncer)

	p.RecordTest(80)
	_, err := p.Flush(context.Background())
	require.Error(t, err)

	view := p.Predicted()
	assert.True(t, view.Syncing)
	assert.Equal(t, 25, view.PendingXP)
	assert.Equal(t, int64(5), view.Coins)

	// answers during the outage go to a separate buffer; only the first batch gets the bonus
	p.RecordAnswer(models.OutcomeIncorrect)
	assert.Equal(t, int64(52), p.Predicted().XP.TotalXP)

	_, err = p.Flush(context.Background())
	require.NoError(t, err)

	calls := syncer.requests()
	require.Len(t, calls, 3)
	assert.Equal(t, calls[0].BatchKey, calls[1].BatchKey)
	assert.Equal(t, 25, calls[1].PendingXP)
	assert.NotEqual(t, calls[1].BatchKey, calls[2].BatchKey)
	assert.Equal(t, 2, calls[2].PendingXP)

	assert.Equal(t, int64(27), p.Canonical().XP.TotalXP)
	assert.Equal(t, int64(5), p.Canonical().Coins)
	assert.False(t, p.Predicted().Syncing)
}

func TestDailyBonusPredictionResetsNextDay(t *testing.T) {
	p, clock := newPredictor(&fakeSyncer{})

	p.RecordAnswer(models.OutcomeIncorrect)
	assert.Equal(t, int64(4), p.Predicted().XP.TotalXP)
	_, err := p.Flush(context.Background())
	require.NoError(t, err)

	p.RecordAnswer(models.OutcomeIncorrect)
	assert.Equal(t, int64(4), p.Predicted().XP.TotalXP, "bonus already used today")

	clock.Advance(24 * time.Hour)
	assert.Equal(t, int64(6), p.Predicted().XP.TotalXP)
}

func TestServerEventsQueueInOrder(t *testing.T) {
	syncer := &fakeSyncer{events: []models.RewardEvent{
		{Kind: models.EventLevelUp, Level: 2},
		{Kind: models.EventQuestCompleted, Title: "Warm-up", XP: 15, Coins: 1},
		{Kind: models.EventAchievement, Title: "First Steps", XP: 10},
	}}
	p, _ := newPredictor(syncer)

	for i := 0; i < 5; i++ {
		p.RecordAnswer(models.OutcomeCorrect)
	}
	_, err := p.Flush(context.Background())
	require.NoError(t, err)

	var kinds []string
	for {
		n, ok := p.Dismiss()
		if !ok {
			break
		}
		kinds = append(kinds, n.Event.Kind)
	}
	// the predicted level-up is not repeated when the server confirms it
	assert.Equal(t, []string{models.EventLevelUp, models.EventQuestCompleted, models.EventAchievement}, kinds)
	assert.Empty(t, p.Notifications())
}

func TestReplayedResponseQueuesItsEvents(t *testing.T) {
	p, _ := newPredictor(replaySyncer{})

	p.RecordAnswer(models.OutcomeCorrect)
	_, err := p.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.Canonical().XP.TotalXP)

	notifications := p.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, models.EventAchievement, notifications[0].Event.Kind)
	assert.Equal(t, "Achievement unlocked: First Steps (+0 XP)", notifications[0].Message)
	assert.False(t, notifications[0].Predicted)
}

func TestRejectedBatchIsSetAside(t *testing.T) {
	syncer := &fakeSyncer{fail: []error{&StatusError{Status: 400, Code: "INVALID_ARGUMENT", Message: "bad batch"}}}
	p, _ := newPredictor(syncer)

	p.RecordTest(80)
	_, err := p.Flush(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 400, statusErr.Status)

	view := p.Predicted()
	assert.False(t, view.Syncing)
	assert.Equal(t, 0, view.PendingXP)
	rejected := p.Rejected()
	require.Len(t, rejected, 1)
	assert.Equal(t, 25, rejected[0].PendingXP)

	// later rewards go out in a fresh batch
	p.RecordAnswer(models.OutcomeIncorrect)
	_, err = p.Flush(context.Background())
	require.NoError(t, err)

	calls := syncer.requests()
	require.Len(t, calls, 2)
	assert.NotEqual(t, calls[0].BatchKey, calls[1].BatchKey)
	assert.Equal(t, 2, calls[1].PendingXP)
	assert.Equal(t, int64(2), p.Canonical().XP.TotalXP)
}

func TestRateLimitedBatchStaysInFlight(t *testing.T) {
	syncer := &fakeSyncer{fail: []error{&StatusError{Status: 429, Code: "RATE_LIMITED"}}}
	p, _ := newPredictor(syncer)

	p.RecordAnswer(models.OutcomeCorrect)
	_, err := p.Flush(context.Background())
	require.Error(t, err)
	assert.True(t, p.Predicted().Syncing)
	assert.Empty(t, p.Rejected())

	_, err = p.Flush(context.Background())
	require.NoError(t, err)
	calls := syncer.requests()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].BatchKey, calls[1].BatchKey)
}

type replaySyncer struct{}

func (replaySyncer) Sync(_ context.Context, req models.SyncRequest) (models.SyncResponse, error) {
	return models.SyncResponse{
		XP:       models.XPSnapshot{TotalXP: 20, Level: 1, XPProgress: 20, XPRequired: 100},
		Events:   []models.RewardEvent{{Kind: models.EventAchievement, Title: "First Steps"}},
		Replayed: true,
	}, nil
}

func TestRecordingDuringFlushDoesNotBlock(t *testing.T) {
	syncer := &fakeSyncer{started: make(chan struct{}), release: make(chan struct{})}
	p, _ := newPredictor(syncer)

	p.RecordAnswer(models.OutcomeCorrect)

	done := make(chan error, 1)
	go func() {
		_, err := p.Flush(context.Background())
		done <- err
	}()
	<-syncer.started

	p.RecordAnswer(models.OutcomeIncorrect)
	view := p.Predicted()
	assert.True(t, view.Syncing)
	assert.Equal(t, 12, view.PendingXP)

	close(syncer.release)
	require.NoError(t, <-done)

	calls := syncer.requests()
	require.Len(t, calls, 2)
	assert.Equal(t, 10, calls[0].PendingXP)
	assert.Equal(t, 2, calls[1].PendingXP)
	assert.Equal(t, 0, p.Predicted().PendingXP)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", summarize(nil))
	assert.Equal(t, "2x card review (correct), test completed (90%)",
		summarize([]string{"card review (correct)", "test completed (90%)", "card review (correct)"}))

	long := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		long = append(long, fmt.Sprintf("test completed (%d%%)", i))
	}
	assert.Len(t, summarize(long), maxReasonLength)

	wide := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		wide = append(wide, fmt.Sprintf("тест завершён (%d%%)", i))
	}
	out := summarize(wide)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), maxReasonLength)
	assert.True(t, strings.HasSuffix(out, "..."))
}
