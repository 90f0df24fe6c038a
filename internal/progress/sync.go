package progress

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/leveling"
	"github.com/example/studyquest/pkg/models"
)

const (
	defaultSyncReason = "Study rewards"
	maxReasonLength   = 200
	// per batch
	maxPendingXP    = 100000
	maxPendingCoins = 100000
)

// AwardAndSync applies the client's pending XP and coin deltas and returns the canonical state.
// The first XP award of a calendar day is doubled. A request carrying a batch key that was
// already applied applies nothing again: it returns the current balances together with the
// events recorded when the batch was first applied.
func (s *Service) AwardAndSync(ctx context.Context, profileID int64, req models.SyncRequest) (models.SyncResponse, error) {
	if req.PendingCoins < 0 {
		return models.SyncResponse{}, apperr.InvalidArgument("pendingCoins must not be negative")
	}
	if req.PendingXP > maxPendingXP {
		return models.SyncResponse{}, apperr.InvalidArgument("pendingXp must not exceed %d", maxPendingXP)
	}
	if req.PendingCoins > maxPendingCoins {
		return models.SyncResponse{}, apperr.InvalidArgument("pendingCoins must not exceed %d", maxPendingCoins)
	}
	if len(req.Reason) > maxReasonLength {
		return models.SyncResponse{}, apperr.InvalidArgument("reason longer than %d characters", maxReasonLength)
	}
	if req.BatchKey != "" {
		if _, err := uuid.Parse(req.BatchKey); err != nil {
			return models.SyncResponse{}, apperr.InvalidArgument("batchKey must be a UUID")
		}
	}
	reason := req.Reason
	if reason == "" {
		reason = defaultSyncReason
	}
	now := s.clock()

	var resp models.SyncResponse
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		if err := tx.LockProfile(ctx, profileID); err != nil {
			return err
		}
		if req.BatchKey != "" {
			stored, err := tx.SyncBatches.Get(ctx, profileID, req.BatchKey)
			if err != nil {
				return err
			}
			if stored != nil {
				snapshot, balance, err := s.currentBalances(ctx, tx, profileID)
				if err != nil {
					return err
				}
				resp = *stored
				resp.XP = snapshot
				resp.Coins = balance
				resp.Replayed = true
				return nil
			}
		}

		profile, err := tx.Profiles.GetByID(ctx, profileID)
		if err != nil {
			return err
		}

		events := []models.RewardEvent{}
		awarded := 0
		if req.PendingXP > 0 {
			xp, err := tx.XP.GetProfileXP(ctx, profileID)
			if err != nil {
				return err
			}
			xp, amount, _ := leveling.ApplyDailyBonus(xp, req.PendingXP, s.cal.DayKey(now))
			award, err := s.levels.Award(xp, amount, profile.AgeGroup)
			if err != nil {
				return err
			}
			if err := tx.XP.SaveProfileXP(ctx, award.XP); err != nil {
				return err
			}
			awarded = amount
			events = append(events, award.Events...)
		}
		if req.PendingCoins > 0 {
			if _, err := tx.Coins.Credit(ctx, profileID, req.PendingCoins, reason, now); err != nil {
				return err
			}
		}

		if awarded > 0 {
			s.bestEffort(ctx, tx, "quests", profileID, func() error {
				_, questEvents, err := s.advanceQuests(ctx, tx, profile, map[models.QuestMetric]int{models.MetricXPEarned: awarded}, now)
				if err != nil {
					return err
				}
				events = append(events, questEvents...)
				return nil
			})
		}
		unlocks := []models.AchievementUnlock{}
		s.bestEffort(ctx, tx, "achievements", profileID, func() error {
			fresh, achEvents, err := s.checkAchievements(ctx, tx, profile, now)
			if err != nil {
				return err
			}
			unlocks = append(unlocks, fresh...)
			events = append(events, achEvents...)
			return nil
		})

		snapshot, balance, err := s.currentBalances(ctx, tx, profileID)
		if err != nil {
			return err
		}
		resp = models.SyncResponse{
			XP:              snapshot,
			Coins:           balance,
			NewAchievements: unlocks,
			Events:          events,
		}

		if req.BatchKey != "" {
			return tx.SyncBatches.Save(ctx, profileID, req.BatchKey, resp, now)
		}
		return nil
	})
	if err != nil {
		return models.SyncResponse{}, translate(err)
	}

	s.logger.InfoContext(ctx, "rewards synced",
		slog.Int64("profile_id", profileID),
		slog.Int("pending_xp", req.PendingXP),
		slog.Int("pending_coins", req.PendingCoins),
		slog.Bool("replayed", resp.Replayed),
	)
	return resp, nil
}

func (s *Service) currentBalances(ctx context.Context, tx *database.Tx, profileID int64) (models.XPSnapshot, int64, error) {
	xp, err := tx.XP.GetProfileXP(ctx, profileID)
	if err != nil {
		return models.XPSnapshot{}, 0, err
	}
	snapshot, err := s.levels.Snapshot(xp)
	if err != nil {
		return models.XPSnapshot{}, 0, err
	}
	coins, err := tx.Coins.Get(ctx, profileID)
	if err != nil {
		return models.XPSnapshot{}, 0, err
	}
	return snapshot, coins.Balance, nil
}
