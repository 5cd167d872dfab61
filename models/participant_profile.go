package models

import (
	"time"

	"gorm.io/gorm"
)

// Rank is the ordered progression tier derived from total experience.
type Rank int

const (
	RankBronze Rank = iota + 1
	RankSilver
	RankGold
	RankPlatinum
	RankDiamond
	RankMaster
	RankGrandmaster
)

// ParticipantProfile is the long-lived rating and progression state of one identity.
type ParticipantProfile struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ParticipantID string `gorm:"uniqueIndex;not null" json:"participant_id"` // external identity

	// Skill estimate
	Mu    float64 `json:"mu" gorm:"not null"`
	Sigma float64 `json:"sigma" gorm:"not null"`

	// Core progression
	XP           uint64     `json:"xp" gorm:"default:0"`
	Rank         Rank       `json:"rank" gorm:"default:1"`
	LastRankUpAt *time.Time `json:"last_rank_up_at,omitempty"`

	// Match counters
	Wins          uint64 `json:"wins" gorm:"default:0"`
	Losses        uint64 `json:"losses" gorm:"default:0"`
	MatchesPlayed uint64 `json:"matches_played" gorm:"default:0"`
	CurrentStreak uint32 `json:"current_streak" gorm:"default:0"`
	MaxStreak     uint32 `json:"max_streak" gorm:"default:0"`
	TotalWagered  uint64 `json:"total_wagered" gorm:"default:0"`
	TotalTipped   uint64 `json:"total_tipped" gorm:"default:0"`
	TotalPlayTime uint64 `json:"total_play_time" gorm:"default:0"` // seconds

	// Moderation
	IsBanned     bool       `json:"is_banned" gorm:"default:false"`
	BanExpiresAt *time.Time `json:"ban_expires_at,omitempty"`

	// Activity windows
	DailyMatches  uint32     `json:"daily_matches" gorm:"default:0"`
	DailyResetAt  *time.Time `json:"daily_reset_at,omitempty"`
	WeeklyMatches uint32     `json:"weekly_matches" gorm:"default:0"`
	WeeklyResetAt *time.Time `json:"weekly_reset_at,omitempty"`
	LoginStreak   uint32     `json:"login_streak" gorm:"default:0"`
	LastActiveAt  *time.Time `json:"last_active_at,omitempty"`
	// Set only when a match pays the first-activity bonus.
	LastDailyBonusAt *time.Time `json:"last_daily_bonus_at,omitempty"`

	// Season counters, zeroed on season reset
	SeasonMatches uint32 `json:"season_matches" gorm:"default:0"`
	SeasonWins    uint32 `json:"season_wins" gorm:"default:0"`

	// Achievements
	AchievementBits        uint64     `json:"achievement_bits" gorm:"default:0"`
	AchievementsEarned     uint32     `json:"achievements_earned" gorm:"default:0"`
	LastAchievementClaimAt *time.Time `json:"last_achievement_claim_at,omitempty"`

	Timestamps
}

// BannedAt reports whether the ban is still in force at now. A ban without an
// expiry is indefinite.
func (p *ParticipantProfile) BannedAt(now time.Time) bool {
	return p.IsBanned && (p.BanExpiresAt == nil || p.BanExpiresAt.After(now))
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
