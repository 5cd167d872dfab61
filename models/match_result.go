package models

// MatchResult records one participant's side of a resolved settlement.
type MatchResult struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SettlementID  string `gorm:"not null;uniqueIndex:idx_match_result_side,priority:1" json:"settlement_id"`
	ParticipantID string `gorm:"not null;uniqueIndex:idx_match_result_side,priority:2;index" json:"participant_id"`
	OpponentID    string `gorm:"not null" json:"opponent_id"`
	GameID        string `json:"game_id"`

	Result      string `json:"result" gorm:"type:varchar(8)"` // win/loss
	Stake       uint64 `json:"stake"`
	DurationSec uint64 `json:"duration_sec" gorm:"default:0"`

	MuBefore    float64 `json:"mu_before"`
	MuAfter     float64 `json:"mu_after"`
	SigmaBefore float64 `json:"sigma_before"`
	SigmaAfter  float64 `json:"sigma_after"`

	XPEarned uint64 `json:"xp_earned" gorm:"default:0"`

	Timestamps
}

const (
	ResultWin  = "win"
	ResultLoss = "loss"
)
