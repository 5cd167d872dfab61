package rating

import "skill-wager-system/models"

// RankThresholds: minimum xp for each rank, ascending.
var RankThresholds = []struct {
	Rank models.Rank
	XP   uint64
}{
	{models.RankBronze, 0},
	{models.RankSilver, 1_000},
	{models.RankGold, 5_000},
	{models.RankPlatinum, 15_000},
	{models.RankDiamond, 40_000},
	{models.RankMaster, 100_000},
	{models.RankGrandmaster, 250_000},
}

// RankForXP returns the highest rank whose threshold xp reaches.
func RankForXP(xp uint64) models.Rank {
	rank := models.RankBronze
	for _, t := range RankThresholds {
		if xp >= t.XP {
			rank = t.Rank
		}
	}
	return rank
}

// Promote returns the rank after an xp gain. It never demotes.
func Promote(current models.Rank, xp uint64) models.Rank {
	return max(current, RankForXP(xp))
}

var rankNames = map[models.Rank]string{
	models.RankBronze:      "bronze",
	models.RankSilver:      "silver",
	models.RankGold:        "gold",
	models.RankPlatinum:    "platinum",
	models.RankDiamond:     "diamond",
	models.RankMaster:      "master",
	models.RankGrandmaster: "grandmaster",
}

// RankName is the stable lowercase key of a rank.
func RankName(r models.Rank) string {
	if n, ok := rankNames[r]; ok {
		return n
	}
	return "unranked"
}
