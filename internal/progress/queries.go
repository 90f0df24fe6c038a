package progress

import (
	"context"
	"log/slog"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/internal/database"
	"github.com/example/studyquest/internal/tokens"
	"github.com/example/studyquest/pkg/models"
)

// Actor is the authenticated caller of an operation
type Actor struct {
	ProfileID int64
	Role      models.Role
}

// GetActiveQuests returns the current period's quests, assigning missing ones first
func (s *Service) GetActiveQuests(ctx context.Context, profileID int64) ([]models.QuestView, error) {
	now := s.clock()
	var views []models.QuestView
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		if err := tx.LockProfile(ctx, profileID); err != nil {
			return err
		}
		var err error
		views, err = s.quests.Active(ctx, tx.Quests, profileID, now)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return views, nil
}

// GetTokenBalance returns the profile's token balance and today's allowance
func (s *Service) GetTokenBalance(ctx context.Context, profileID int64) (models.TokenBalance, error) {
	if _, err := s.db.Profiles.GetByID(ctx, profileID); err != nil {
		return models.TokenBalance{}, translate(err)
	}
	ledger, err := s.db.Tokens.Get(ctx, profileID, tokens.DefaultConversionRate)
	if err != nil {
		return models.TokenBalance{}, err
	}
	return tokens.Balance(ledger, s.cal.DayKey(s.clock())), nil
}

// SetConversionRate changes the profile's token to currency rate. Only parents and admins may do so.
func (s *Service) SetConversionRate(ctx context.Context, actor Actor, profileID int64, rate float64) (models.TokenBalance, error) {
	if !actor.Role.CanManage() {
		return models.TokenBalance{}, apperr.PermissionDenied("role %q cannot change the conversion rate", actor.Role)
	}
	if err := tokens.ValidateRate(rate); err != nil {
		return models.TokenBalance{}, err
	}
	now := s.clock()

	var balance models.TokenBalance
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		if err := tx.LockProfile(ctx, profileID); err != nil {
			return err
		}
		ledger, err := tx.Tokens.Get(ctx, profileID, tokens.DefaultConversionRate)
		if err != nil {
			return err
		}
		ledger.ConversionRate = rate
		if err := tx.Tokens.Save(ctx, ledger); err != nil {
			return err
		}
		balance = tokens.Balance(ledger, s.cal.DayKey(now))
		return nil
	})
	if err != nil {
		return models.TokenBalance{}, translate(err)
	}

	s.logger.InfoContext(ctx, "conversion rate changed",
		slog.Int64("profile_id", profileID),
		slog.Int64("actor_id", actor.ProfileID),
		slog.Float64("rate", rate),
	)
	return balance, nil
}
