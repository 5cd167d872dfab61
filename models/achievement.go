package models

import "time"

// AchievementRecord is created once per (participant, kind) and never updated.
// Seasonal kinds may be claimed again in a later season.
type AchievementRecord struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ParticipantID string    `gorm:"not null;uniqueIndex:idx_achievement_owner,priority:1" json:"participant_id"`
	Kind          string    `gorm:"not null;uniqueIndex:idx_achievement_owner,priority:2" json:"kind"`
	Season        uint32    `gorm:"uniqueIndex:idx_achievement_owner,priority:3" json:"season"`
	Bit           uint8     `json:"bit"`
	Snapshot      string    `gorm:"type:text" json:"snapshot"` // profile counters that satisfied eligibility
	ClaimedAt     time.Time `json:"claimed_at" gorm:"not null"`
}

type MintStatus string

const (
	MintPending MintStatus = "pending"
	MintMinted  MintStatus = "minted"
	MintFailed  MintStatus = "failed"
)

// MintRequest tracks the external mint for an achievement record. It is the only
// mutable part of the claim flow; the profile bit is never cleared by a mint failure.
type MintRequest struct {
	ID                  string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AchievementRecordID string     `gorm:"uniqueIndex;not null" json:"achievement_record_id"`
	ParticipantID       string     `gorm:"index;not null" json:"participant_id"`
	Kind                string     `gorm:"not null" json:"kind"`
	Status              MintStatus `gorm:"type:varchar(16);index;default:'pending'" json:"status"`
	Attempts            uint32     `json:"attempts" gorm:"default:0"`
	LastError           string     `json:"last_error,omitempty"`
	MetadataURL         string     `json:"metadata_url,omitempty"`
	MintedAt            *time.Time `json:"minted_at,omitempty"`

	Timestamps
}
