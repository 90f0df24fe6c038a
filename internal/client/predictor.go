// Package client predicts reward state between syncs. The server response is
// the only source of truth: the predicted view is always derived from the last
// canonical response plus locally buffered deltas, never stored on its own.
package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/calendar"
	"github.com/example/studyquest/internal/leveling"
	"github.com/example/studyquest/pkg/models"
)

// Syncer sends a reward batch to the server
type Syncer interface {
	Sync(ctx context.Context, req models.SyncRequest) (models.SyncResponse, error)
}

// Canonical is the reward state last confirmed by the server
type Canonical struct {
	XP    models.XPSnapshot `json:"xp"`
	Coins int64             `json:"coins"`
}

// View is what the UI renders: canonical state with local deltas applied
type View struct {
	XP           models.XPSnapshot `json:"xp"`
	Coins        int64             `json:"coins"`
	PendingXP    int               `json:"pendingXp"`
	PendingCoins int               `json:"pendingCoins"`
	Combo        int               `json:"combo"`
	Syncing      bool              `json:"syncing"`
}

// Notification is one queued reward message
type Notification struct {
	ID        int64              `json:"id"`
	Event     models.RewardEvent `json:"event"`
	Message   string             `json:"message"`
	Predicted bool               `json:"predicted"`
	CreatedAt time.Time          `json:"createdAt"`
}

type buffer struct {
	xp      int
	coins   int
	reasons []string
}

func (b buffer) empty() bool {
	return b.xp == 0 && b.coins == 0
}

type batch struct {
	req models.SyncRequest
}

// Predictor tracks optimistic reward state for a single profile
type Predictor struct {
	mu      sync.Mutex
	flushMu sync.Mutex

	syncer Syncer
	levels *leveling.Engine
	cal    calendar.Calendar
	now    func() time.Time

	canonical Canonical
	pending   buffer
	inflight  *batch
	rejected  []models.SyncRequest
	combo     leveling.Combo

	// day of the last acknowledged batch that carried XP
	bonusDay string

	notifications []Notification
	nextID        int64
	notifiedLevel int
}

// Option configures a Predictor
type Option func(*Predictor)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(p *Predictor) { p.now = now }
}

// WithCalendar sets the time zone used to predict the daily bonus
func WithCalendar(cal calendar.Calendar) Option {
	return func(p *Predictor) { p.cal = cal }
}

// WithLeveling replaces the leveling engine
func WithLeveling(engine *leveling.Engine) Option {
	return func(p *Predictor) { p.levels = engine }
}

// NewPredictor returns a Predictor seeded with the last known server state
func NewPredictor(syncer Syncer, initial Canonical, opts ...Option) *Predictor {
	p := &Predictor{
		syncer:    syncer,
		levels:    leveling.New(),
		cal:       calendar.New(time.UTC),
		now:       time.Now,
		canonical: initial,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.canonical.XP.Level < 1 {
		p.canonical.XP.Level = 1
	}
	p.notifiedLevel = p.canonical.XP.Level
	return p
}

// RecordAnswer buffers the XP of one card review and returns the XP predicted for it
func (p *Predictor) RecordAnswer(outcome models.Outcome) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.combo.Record(outcome)
	xp := p.combo.Apply(leveling.AnswerXP(outcome))
	if xp > 0 {
		p.addLocked(xp, 0, fmt.Sprintf("card review (%s)", outcome))
	}
	return xp
}

// RecordTest buffers the rewards of a completed test
func (p *Predictor) RecordTest(score int) (xp int, coins int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	xp, coins = leveling.TestRewards(score)
	p.addLocked(xp, coins, fmt.Sprintf("test completed (%d%%)", score))
	return xp, coins
}

// EndSession resets the combo
func (p *Predictor) EndSession() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.combo.Reset()
}

func (p *Predictor) addLocked(xp, coins int, reason string) {
	before := p.viewLocked().XP.Level
	p.pending.xp += xp
	p.pending.coins += coins
	p.pending.reasons = append(p.pending.reasons, reason)
	after := p.viewLocked().XP.Level
	for level := before + 1; level <= after; level++ {
		if level <= p.notifiedLevel {
			continue
		}
		p.pushLocked(models.RewardEvent{Kind: models.EventLevelUp, Level: level}, true)
		p.notifiedLevel = level
	}
}

// Predicted returns canonical state with the in-flight and pending deltas applied
func (p *Predictor) Predicted() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Canonical returns the last server-confirmed state
func (p *Predictor) Canonical() Canonical {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canonical
}

func (p *Predictor) viewLocked() View {
	view := View{
		XP:           p.canonical.XP,
		Coins:        p.canonical.Coins,
		PendingXP:    p.pending.xp,
		PendingCoins: p.pending.coins,
		Combo:        p.combo.Count(),
		Syncing:      p.inflight != nil,
	}

	amounts := make([]int, 0, 2)
	coins := p.pending.coins
	if p.inflight != nil {
		amounts = append(amounts, p.inflight.req.PendingXP)
		coins += p.inflight.req.PendingCoins
		view.PendingXP += p.inflight.req.PendingXP
		view.PendingCoins += p.inflight.req.PendingCoins
	}
	amounts = append(amounts, p.pending.xp)

	// the server doubles the first XP-carrying batch of the day
	bonus := p.bonusDay != p.cal.DayKey(p.now())
	total := 0
	for _, amount := range amounts {
		if amount <= 0 {
			continue
		}
		if bonus {
			amount *= 2
			bonus = false
		}
		total += amount
	}

	view.Coins += int64(coins)
	if total == 0 {
		return view
	}
	xp := models.ProfileXP{TotalXP: p.canonical.XP.TotalXP, Level: p.canonical.XP.Level}
	award, err := p.levels.Award(xp, total, models.AgeGroupAdult)
	if err != nil {
		return view
	}
	view.XP = award.Snapshot
	return view
}

// Flush sends buffered rewards to the server. A batch that fails with a
// transient error stays in flight and is resent with the same key on the next
// call. A batch the server rejects outright is moved to Rejected so later
// rewards are not stuck behind it. It returns nil when there was nothing to send.
func (p *Predictor) Flush(ctx context.Context) (*models.SyncResponse, error) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	var last *models.SyncResponse
	for {
		req, ok := p.nextBatch()
		if !ok {
			return last, nil
		}
		resp, err := p.syncer.Sync(ctx, req)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				p.reject(req)
				return last, errors.Wrapf(err, "batch %s rejected", req.BatchKey)
			}
			return last, err
		}
		p.acknowledge(req, resp)
		last = &resp
	}
}

// Rejected returns the batches the server refused, oldest first
func (p *Predictor) Rejected() []models.SyncRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.SyncRequest, len(p.rejected))
	copy(out, p.rejected)
	return out
}

func (p *Predictor) reject(req models.SyncRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight = nil
	p.rejected = append(p.rejected, req)
}

func (p *Predictor) nextBatch() (models.SyncRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight != nil {
		return p.inflight.req, true
	}
	if p.pending.empty() {
		return models.SyncRequest{}, false
	}
	p.inflight = &batch{req: models.SyncRequest{
		PendingXP:    p.pending.xp,
		PendingCoins: p.pending.coins,
		Reason:       summarize(p.pending.reasons),
		BatchKey:     uuid.NewString(),
	}}
	p.pending = buffer{}
	return p.inflight.req, true
}

func (p *Predictor) acknowledge(req models.SyncRequest, resp models.SyncResponse) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inflight = nil
	p.canonical = Canonical{XP: resp.XP, Coins: resp.Coins}
	if req.PendingXP > 0 {
		p.bonusDay = p.cal.DayKey(p.now())
	}
	// a replay means the first response was lost, so its events were never shown
	for _, event := range resp.Events {
		if event.Kind == models.EventLevelUp {
			if event.Level <= p.notifiedLevel {
				continue
			}
			p.notifiedLevel = event.Level
		}
		p.pushLocked(event, false)
	}
}

// Notifications returns the queued notifications, oldest first
func (p *Predictor) Notifications() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Notification, len(p.notifications))
	copy(out, p.notifications)
	return out
}

// Next returns the oldest queued notification without removing it
func (p *Predictor) Next() (Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.notifications) == 0 {
		return Notification{}, false
	}
	return p.notifications[0], true
}

// Dismiss removes and returns the oldest queued notification
func (p *Predictor) Dismiss() (Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.notifications) == 0 {
		return Notification{}, false
	}
	n := p.notifications[0]
	p.notifications = p.notifications[1:]
	return n, true
}

func (p *Predictor) pushLocked(event models.RewardEvent, predicted bool) {
	p.nextID++
	p.notifications = append(p.notifications, Notification{
		ID:        p.nextID,
		Event:     event,
		Message:   Describe(event),
		Predicted: predicted,
		CreatedAt: p.now(),
	})
}

// Describe renders a reward event as a user-facing message
func Describe(event models.RewardEvent) string {
	switch event.Kind {
	case models.EventLevelUp:
		return fmt.Sprintf("Level up! You reached level %d", event.Level)
	case models.EventUnlock:
		return fmt.Sprintf("New feature unlocked: %s", event.Feature)
	case models.EventQuestCompleted:
		return fmt.Sprintf("Quest completed: %s (+%d XP, +%d coins)", event.Title, event.XP, event.Coins)
	case models.EventAchievement:
		return fmt.Sprintf("Achievement unlocked: %s (+%d XP)", event.Title, event.XP)
	default:
		return event.Kind
	}
}

const maxReasonLength = 200

func summarize(reasons []string) string {
	if len(reasons) == 0 {
		return ""
	}
	counts := make(map[string]int, len(reasons))
	var order []string
	for _, r := range reasons {
		if counts[r] == 0 {
			order = append(order, r)
		}
		counts[r]++
	}
	parts := make([]string, 0, len(order))
	for _, r := range order {
		if counts[r] > 1 {
			r = fmt.Sprintf("%dx %s", counts[r], r)
		}
		parts = append(parts, r)
	}
	s := strings.Join(parts, ", ")
	if len(s) > maxReasonLength {
		cut := maxReasonLength - 3
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
