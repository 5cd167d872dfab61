package models

import (
	"math"
	"time"
)

// MaxAmount is the largest amount or counter a uint64 column can hold. Both
// drivers store it as a signed 64-bit integer.
const MaxAmount uint64 = math.MaxInt64

// LedgerAccount holds the spendable balance of one participant.
type LedgerAccount struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ParticipantID string `gorm:"uniqueIndex;not null" json:"participant_id"`
	Balance       uint64 `gorm:"not null;default:0" json:"balance"`

	Timestamps
}

type LedgerEntryKind string

const (
	EntryDeposit  LedgerEntryKind = "deposit"
	EntryEscrow   LedgerEntryKind = "escrow"
	EntryPayout   LedgerEntryKind = "payout"
	EntryRefund   LedgerEntryKind = "refund"
	EntryTransfer LedgerEntryKind = "transfer"
)

// LedgerEntry is an append-only movement. Reference is the settlement id for
// escrow/payout/refund; ExternalRef deduplicates deposits from custody.
type LedgerEntry struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Reference     string          `gorm:"index;not null" json:"reference"`
	ParticipantID string          `gorm:"index;not null" json:"participant_id"`
	Kind          LedgerEntryKind `gorm:"type:varchar(16);not null" json:"kind"`
	Amount        uint64          `gorm:"not null" json:"amount"`
	ExternalRef   *string         `gorm:"uniqueIndex" json:"external_ref,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
