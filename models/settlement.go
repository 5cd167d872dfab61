package models

import "time"

// SettlementStatus is the persisted form of the settlement state.
type SettlementStatus string

const (
	SettlementCreated     SettlementStatus = "created"
	SettlementJoined      SettlementStatus = "joined"
	SettlementVoting      SettlementStatus = "voting"
	SettlementRetractable SettlementStatus = "retractable"
	SettlementDisputed    SettlementStatus = "disputed"
	SettlementResolved    SettlementStatus = "resolved"
	SettlementVoided      SettlementStatus = "voided"
)

// Settlement governs one two-party wager from first stake to payout.
type Settlement struct {
	ID      string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PlayerA string `gorm:"not null;uniqueIndex:idx_settlement_match,priority:1" json:"player_a"`
	PlayerB string `gorm:"index" json:"player_b,omitempty"` // empty until joined
	MatchID uint64 `gorm:"not null;uniqueIndex:idx_settlement_match,priority:2" json:"match_id"`
	GameID  string `gorm:"type:varchar(20)" json:"game_id"`
	Stake   uint64 `gorm:"not null" json:"stake"`

	RequiresArbitration bool             `json:"requires_arbitration" gorm:"default:false"`
	Status              SettlementStatus `json:"status" gorm:"type:varchar(16);index;not null"`

	VoteA           *string    `json:"vote_a,omitempty"`
	VoteB           *string    `json:"vote_b,omitempty"`
	VoteTimestamp   *time.Time `json:"vote_timestamp,omitempty"`
	RetractDeadline *time.Time `json:"retract_deadline,omitempty" gorm:"index"`

	Winner     *string `json:"winner,omitempty"`
	ResolvedBy *string `json:"resolved_by,omitempty"`

	OpenedAt   time.Time  `json:"opened_at" gorm:"not null"`
	JoinedAt   *time.Time `json:"joined_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	Timestamps
}

// HasParticipant reports whether id is one of the staked sides.
func (s *Settlement) HasParticipant(id string) bool {
	return id != "" && (id == s.PlayerA || id == s.PlayerB)
}

// Opponent returns the other side of id, or "" when id is not a participant.
func (s *Settlement) Opponent(id string) string {
	switch id {
	case s.PlayerA:
		return s.PlayerB
	case s.PlayerB:
		return s.PlayerA
	}
	return ""
}
