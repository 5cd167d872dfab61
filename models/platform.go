package models

import "time"

// PlatformStateID is the primary key of the single platform record.
const PlatformStateID = 1

// PlatformState is the single-owner record of season and platform-wide counters.
// Operations that read or bump it load it explicitly inside their transaction.
type PlatformState struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CurrentSeason    uint32    `gorm:"not null;default:1" json:"current_season"`
	SeasonStartedAt  time.Time `json:"season_started_at"`
	TotalPlayers     uint64    `gorm:"default:0" json:"total_players"`
	TotalSettlements uint64    `gorm:"default:0" json:"total_settlements"`
	TotalVolume      uint64    `gorm:"default:0" json:"total_volume"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&ParticipantProfile{},
		&Settlement{},
		&AchievementRecord{},
		&MintRequest{},
		&MatchResult{},
		&LedgerAccount{},
		&LedgerEntry{},
		&PlatformState{},
	}
}
