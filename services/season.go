package services

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skill-wager-system/achievements"
	"skill-wager-system/apperr"
	"skill-wager-system/models"
	"skill-wager-system/rating"
)

type SeasonService struct {
	DB     *gorm.DB
	Params rating.Params
	Clock  clockwork.Clock
	Log    *zap.Logger
}

func NewSeasonService(db *gorm.DB, params rating.Params, clock clockwork.Clock, log *zap.Logger) *SeasonService {
	return &SeasonService{DB: db, Params: params, Clock: clock, Log: log}
}

// ResetSeason starts the next season and applies the soft reset to every
// profile in the same transaction. It is the only operation that lowers xp
// or rank and the only one that clears achievement bits.
func (s *SeasonService) ResetSeason(ctx context.Context, actor Actor) (*models.PlatformState, error) {
	if !actor.HasRole(RoleAdmin) {
		return nil, apperr.ErrUnauthorized.With("admin role required")
	}
	now := s.Clock.Now()
	var ps *models.PlatformState
	var profiles int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if ps, err = lockPlatform(tx, now); err != nil {
			return err
		}
		if ps.CurrentSeason == ^uint32(0) {
			return apperr.ErrOverflow.With("season number")
		}
		ps.CurrentSeason++
		ps.SeasonStartedAt = now
		if err := tx.Save(ps).Error; err != nil {
			return err
		}

		var batch []models.ParticipantProfile
		return tx.Model(&models.ParticipantProfile{}).FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				s.Params.SeasonReset(&batch[i])
				achievements.ResetSeasonal(&batch[i])
				if err := tx.Save(&batch[i]).Error; err != nil {
					return err
				}
			}
			profiles += len(batch)
			return nil
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("season_reset",
		zap.Uint32("season", ps.CurrentSeason),
		zap.Int("profiles", profiles),
		zap.String("by", actor.ID))
	return ps, nil
}
