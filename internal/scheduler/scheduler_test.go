package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/pkg/models"
)

type fakeNotifier struct {
	sent []database.DueReminder
	fail map[int64]bool
}

func (n *fakeNotifier) SendReminder(_ context.Context, r database.DueReminder) error {
	if n.fail[r.ProfileID] {
		return errors.New("chat not found")
	}
	n.sent = append(n.sent, r)
	return nil
}

type countingSweeper struct{ calls int }

func (s *countingSweeper) Sweep() int {
	s.calls++
	return 0
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func openDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "scheduler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedDue(t *testing.T, db *database.Database, name string, chatID *int64, due time.Time, cards int) *models.Profile {
	t.Helper()
	ctx := context.Background()
	p := &models.Profile{Name: name, AgeGroup: models.AgeGroupTeen, Role: models.RoleStudent}
	require.NoError(t, db.Profiles.Create(ctx, p))
	if chatID != nil {
		require.NoError(t, db.Profiles.SetTelegramChat(ctx, p.ID, chatID))
	}
	for i := 0; i < cards; i++ {
		card := models.Card{SubjectID: 1, Theme: "math"}
		require.NoError(t, db.Cards.Create(ctx, &card))
		seen := due.Add(-24 * time.Hour)
		require.NoError(t, db.CardStates.Upsert(ctx, models.CardState{
			ProfileID:  p.ID,
			CardID:     card.ID,
			LastSeen:   &seen,
			NextDue:    &due,
			Interval:   1,
			EaseFactor: 2.5,
		}))
	}
	return p
}

func chat(id int64) *int64 { return &id }

func TestSendReminders(t *testing.T) {
	db := openDB(t)
	now := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)

	linked := seedDue(t, db, "Mia", chat(100), now.Add(-time.Hour), 3)
	seedDue(t, db, "NoChat", nil, now.Add(-time.Hour), 2)
	seedDue(t, db, "NotYet", chat(300), now.Add(time.Hour), 1)

	notifier := &fakeNotifier{}
	s := New(db, Config{ReminderStartHour: 8, ReminderEndHour: 20},
		WithNotifier(notifier), WithClock(func() time.Time { return now }), WithLogger(quiet))

	sent, err := s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, database.DueReminder{ProfileID: linked.ID, Name: "Mia", ChatID: 100, DueCount: 3}, notifier.sent[0])
}

func TestSendRemindersOncePerDay(t *testing.T) {
	db := openDB(t)
	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	seedDue(t, db, "Mia", chat(100), now.Add(-time.Hour), 2)

	clock := now
	notifier := &fakeNotifier{}
	s := New(db, Config{ReminderStartHour: 8, ReminderEndHour: 20},
		WithNotifier(notifier), WithClock(func() time.Time { return clock }), WithLogger(quiet))

	sent, err := s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	clock = now.Add(5 * time.Hour)
	sent, err = s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, notifier.sent, 1)

	clock = now.Add(24 * time.Hour)
	sent, err = s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, notifier.sent, 2)
}

func TestSendRemindersContinuesAfterFailure(t *testing.T) {
	db := openDB(t)
	now := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)

	first := seedDue(t, db, "A", chat(1), now.Add(-time.Hour), 1)
	seedDue(t, db, "B", chat(2), now.Add(-time.Hour), 1)

	notifier := &fakeNotifier{fail: map[int64]bool{first.ID: true}}
	s := New(db, Config{ReminderStartHour: 0, ReminderEndHour: 23},
		WithNotifier(notifier), WithClock(func() time.Time { return now }), WithLogger(quiet))

	sent, err := s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "B", notifier.sent[0].Name)

	// the failed profile is tried again, the delivered one is not
	notifier.fail = nil
	sent, err = s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "A", notifier.sent[1].Name)
}

func TestRemindersRespectWindowInLocation(t *testing.T) {
	db := openDB(t)
	loc := time.FixedZone("UTC+5", 5*3600)
	// 04:00 UTC is 09:00 in loc
	now := time.Date(2026, 10, 12, 4, 0, 0, 0, time.UTC)
	seedDue(t, db, "Mia", chat(100), now.Add(-time.Hour), 1)

	notifier := &fakeNotifier{}
	s := New(db, Config{ReminderStartHour: 8, ReminderEndHour: 20, Location: loc},
		WithNotifier(notifier), WithClock(func() time.Time { return now }), WithLogger(quiet))

	assert.True(t, s.InReminderWindow(now))
	assert.False(t, s.InReminderWindow(now.Add(12*time.Hour)))

	sent, err := s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	late := New(db, Config{ReminderStartHour: 8, ReminderEndHour: 20, Location: loc},
		WithNotifier(notifier), WithClock(func() time.Time { return now.Add(-2 * time.Hour) }), WithLogger(quiet))
	sent, err = late.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSendRemindersWithoutNotifier(t *testing.T) {
	s := New(openDB(t), Config{ReminderStartHour: 0, ReminderEndHour: 23}, WithLogger(quiet))
	sent, err := s.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestPruneSyncBatches(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 12, 10, 0, 0, 0, time.UTC)
	p := seedDue(t, db, "Mia", nil, now, 0)

	require.NoError(t, db.SyncBatches.Save(ctx, p.ID, "old", models.SyncResponse{}, now.Add(-40*24*time.Hour)))
	require.NoError(t, db.SyncBatches.Save(ctx, p.ID, "fresh", models.SyncResponse{}, now.Add(-time.Hour)))

	s := New(db, Config{SyncBatchRetention: 30 * 24 * time.Hour},
		WithClock(func() time.Time { return now }), WithLogger(quiet))
	n, err := s.PruneSyncBatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := db.SyncBatches.Get(ctx, p.ID, "old")
	require.NoError(t, err)
	assert.Nil(t, old)
	fresh, err := db.SyncBatches.Get(ctx, p.ID, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}

func TestStartAndStop(t *testing.T) {
	sweeper := &countingSweeper{}
	s := New(openDB(t), Config{ReminderStartHour: 8, ReminderEndHour: 20, SyncBatchRetention: time.Hour},
		WithNotifier(&fakeNotifier{}), WithSweeper(sweeper), WithLogger(quiet))

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.scheduler.Jobs(), 3)
	s.Stop()
}
