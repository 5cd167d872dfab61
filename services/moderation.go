package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

type ModerationService struct {
	DB          *gorm.DB
	Progression *ProgressionService
	Clock       clockwork.Clock
	Log         *zap.Logger
}

func NewModerationService(db *gorm.DB, progression *ProgressionService, clock clockwork.Clock, log *zap.Logger) *ModerationService {
	return &ModerationService{DB: db, Progression: progression, Clock: clock, Log: log}
}

// Ban bans a participant for duration. A zero duration lifts the ban.
func (s *ModerationService) Ban(ctx context.Context, actor Actor, participantID string, duration time.Duration) (*models.ParticipantProfile, error) {
	if !actor.HasRole(RoleModerator) && !actor.HasRole(RoleAdmin) {
		return nil, apperr.ErrUnauthorized.With("moderator role required")
	}
	if duration < 0 {
		return nil, apperr.ErrInvalidInput.With("ban duration must not be negative")
	}
	now := s.Clock.Now()
	var prof *models.ParticipantProfile
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if prof, _, err = s.Progression.ensureProfile(tx, participantID, now); err != nil {
			return err
		}
		applyBan(prof, now, duration)
		return tx.Save(prof).Error
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("player_banned",
		zap.String("participant_id", participantID),
		zap.String("by", actor.ID),
		zap.Bool("is_banned", prof.IsBanned),
		zap.Duration("duration", duration))
	return prof, nil
}

func applyBan(p *models.ParticipantProfile, now time.Time, duration time.Duration) {
	if duration == 0 {
		p.IsBanned = false
		p.BanExpiresAt = nil
		return
	}
	until := now.Add(duration)
	p.IsBanned = true
	p.BanExpiresAt = &until
}
