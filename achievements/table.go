// Package achievements decides which one-time milestones a participant may
// claim and records claims on the profile's bitmask.
package achievements

import "skill-wager-system/models"

// Kind names an achievement. Kinds are stable API values.
type Kind string

const (
	FirstWin        Kind = "first_win"
	TenWins         Kind = "ten_wins"
	CenturyClub     Kind = "century_club"
	HotStreak       Kind = "hot_streak"
	Unstoppable     Kind = "unstoppable"
	HighRoller      Kind = "high_roller"
	GenerousTipper  Kind = "generous_tipper"
	GoldRank        Kind = "gold_rank"
	DiamondRank     Kind = "diamond_rank"
	Dedicated       Kind = "dedicated"
	SeasonContender Kind = "season_contender"
	SeasonChampion  Kind = "season_champion"
)

// Definition is one row of the achievement table.
type Definition struct {
	Kind     Kind
	Bit      uint8 // position in the profile bitmask; never reuse a retired bit
	Seasonal bool  // cleared on season reset
	Title    string

	// MinMatches is the secondary floor on matches played.
	MinMatches uint64
	Eligible   func(p *models.ParticipantProfile) bool
}

// Table is the explicit kind→bit mapping. Append new kinds with fresh bits.
var Table = []Definition{
	{Kind: FirstWin, Bit: 0, Title: "First Win", MinMatches: 1,
		Eligible: func(p *models.ParticipantProfile) bool { return p.Wins >= 1 }},
	{Kind: TenWins, Bit: 1, Title: "Ten Wins", MinMatches: 10,
		Eligible: func(p *models.ParticipantProfile) bool { return p.Wins >= 10 }},
	{Kind: CenturyClub, Bit: 2, Title: "Century Club", MinMatches: 100,
		Eligible: func(p *models.ParticipantProfile) bool { return p.MatchesPlayed >= 100 }},
	{Kind: HotStreak, Bit: 3, Title: "Hot Streak", MinMatches: 5,
		Eligible: func(p *models.ParticipantProfile) bool { return p.MaxStreak >= 5 }},
	{Kind: Unstoppable, Bit: 4, Title: "Unstoppable", MinMatches: 20,
		Eligible: func(p *models.ParticipantProfile) bool { return p.MaxStreak >= 10 }},
	{Kind: HighRoller, Bit: 5, Title: "High Roller", MinMatches: 10,
		Eligible: func(p *models.ParticipantProfile) bool { return p.TotalWagered >= 100_000 }},
	{Kind: GenerousTipper, Bit: 6, Title: "Generous Tipper", MinMatches: 5,
		Eligible: func(p *models.ParticipantProfile) bool { return p.TotalTipped >= 1_000 }},
	{Kind: GoldRank, Bit: 7, Title: "Gold Rank", MinMatches: 10,
		Eligible: func(p *models.ParticipantProfile) bool { return p.Rank >= models.RankGold }},
	{Kind: DiamondRank, Bit: 8, Title: "Diamond Rank", MinMatches: 50,
		Eligible: func(p *models.ParticipantProfile) bool { return p.Rank >= models.RankDiamond }},
	{Kind: Dedicated, Bit: 9, Title: "Dedicated", MinMatches: 7,
		Eligible: func(p *models.ParticipantProfile) bool { return p.LoginStreak >= 7 }},
	{Kind: SeasonContender, Bit: 10, Seasonal: true, Title: "Season Contender", MinMatches: 25,
		Eligible: func(p *models.ParticipantProfile) bool { return p.SeasonWins >= 10 }},
	{Kind: SeasonChampion, Bit: 11, Seasonal: true, Title: "Season Champion", MinMatches: 50,
		Eligible: func(p *models.ParticipantProfile) bool { return p.SeasonWins >= 40 }},
}

var byKind = func() map[Kind]Definition {
	m := make(map[Kind]Definition, len(Table))
	for _, d := range Table {
		m[d.Kind] = d
	}
	return m
}()

// Lookup returns the definition for a kind.
func Lookup(k Kind) (Definition, bool) {
	d, ok := byKind[k]
	return d, ok
}

func (d Definition) mask() uint64 { return 1 << d.Bit }

// SeasonalMask has a bit set for every seasonal achievement.
func SeasonalMask() uint64 {
	var m uint64
	for _, d := range Table {
		if d.Seasonal {
			m |= d.mask()
		}
	}
	return m
}
