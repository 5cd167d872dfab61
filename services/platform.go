package services

import (
	"errors"
	"fmt"
	"time"

	safemath "github.com/luxfi/math"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

// lockPlatform loads the platform record for update, creating it on first use.
func lockPlatform(tx *gorm.DB, now time.Time) (*models.PlatformState, error) {
	var ps models.PlatformState
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ps, models.PlatformStateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ps = models.PlatformState{ID: models.PlatformStateID, CurrentSeason: 1, SeasonStartedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ps).Error; err != nil {
			return nil, fmt.Errorf("create platform state: %w", err)
		}
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ps, models.PlatformStateID).Error
	}
	if err != nil {
		return nil, fmt.Errorf("load platform state: %w", err)
	}
	return &ps, nil
}

func bumpCounter(name string, v *uint64, by uint64) error {
	n, err := safemath.Add64(*v, by)
	if err != nil {
		return apperr.Wrap(apperr.CodeOverflow, name, err)
	}
	if n > models.MaxAmount {
		return apperr.ErrOverflow.With(name)
	}
	*v = n
	return nil
}

// PlatformState returns the current platform record.
func PlatformState(db *gorm.DB, now time.Time) (*models.PlatformState, error) {
	var ps *models.PlatformState
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		ps, err = lockPlatform(tx, now)
		return err
	})
	return ps, err
}
