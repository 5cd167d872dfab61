package utils

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"skill-wager-system/models"
	"skill-wager-system/rating"
)

// RankTitle is the display name of a rank, e.g. "Grandmaster". A Caser keeps
// state between calls, so each call builds its own.
func RankTitle(r models.Rank) string {
	return cases.Title(language.English).String(rating.RankName(r))
}
