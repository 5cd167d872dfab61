package rating

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

var noon = time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC) // a Wednesday

func TestApplyMatch(t *testing.T) {
	p := DefaultParams()
	w, l := p.NewProfile("alice"), p.NewProfile("bob")

	wr, lr, err := p.ApplyMatch(w, l, MatchInput{Stake: 100, Duration: 3 * time.Minute, Now: noon})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), w.Wins)
	assert.Equal(t, uint64(1), l.Losses)
	assert.Equal(t, uint64(1), w.MatchesPlayed)
	assert.Equal(t, uint64(100), l.TotalWagered)
	assert.Equal(t, uint64(180), w.TotalPlayTime)
	assert.Equal(t, uint32(1), w.CurrentStreak)
	assert.Equal(t, uint32(0), l.CurrentStreak)
	assert.Equal(t, uint32(1), w.DailyMatches)
	assert.Equal(t, uint32(1), w.LoginStreak)
	assert.Equal(t, uint32(1), w.SeasonWins)

	// win 100 + wager 1 + efficiency 50 + first activity 20 + streak 10
	assert.Equal(t, uint64(181), wr.XPEarned())
	assert.Equal(t, uint64(181), w.XP)
	// loss 25 + wager 1 + first activity 20
	assert.Equal(t, uint64(46), lr.XPEarned())

	assert.Equal(t, p.Mu0, wr.MuBefore)
	assert.Equal(t, w.Mu, wr.MuAfter)
	assert.Greater(t, w.Mu, l.Mu)
}

func TestApplyMatchAllOrNothing(t *testing.T) {
	p := DefaultParams()
	w, l := p.NewProfile("alice"), p.NewProfile("bob")
	l.TotalWagered = math.MaxUint64 - 10
	wBefore, lBefore := *w, *l

	_, _, err := p.ApplyMatch(w, l, MatchInput{Stake: 100, Now: noon})
	require.ErrorIs(t, err, apperr.ErrOverflow)
	assert.Equal(t, wBefore, *w)
	assert.Equal(t, lBefore, *l)
}

func TestRankNeverDropsFromPlay(t *testing.T) {
	p := DefaultParams()
	w, l := p.NewProfile("alice"), p.NewProfile("bob")
	l.Rank = models.RankDiamond
	l.XP = 10

	_, lr, err := p.ApplyMatch(w, l, MatchInput{Stake: 1, Now: noon})
	require.NoError(t, err)
	assert.Equal(t, models.RankDiamond, lr.RankAfter)
	assert.Equal(t, models.RankDiamond, l.Rank)
}

func TestRankPromotion(t *testing.T) {
	p := DefaultParams()
	w, l := p.NewProfile("alice"), p.NewProfile("bob")
	w.XP = 990

	wr, _, err := p.ApplyMatch(w, l, MatchInput{Stake: 1, Now: noon})
	require.NoError(t, err)
	assert.Equal(t, models.RankBronze, wr.RankBefore)
	assert.Equal(t, models.RankSilver, w.Rank)
	require.NotNil(t, w.LastRankUpAt)
}

func TestRankForXP(t *testing.T) {
	assert.Equal(t, models.RankBronze, RankForXP(0))
	assert.Equal(t, models.RankBronze, RankForXP(999))
	assert.Equal(t, models.RankSilver, RankForXP(1_000))
	assert.Equal(t, models.RankDiamond, RankForXP(40_000))
	assert.Equal(t, models.RankGrandmaster, RankForXP(math.MaxUint64))

	assert.Equal(t, models.RankGold, Promote(models.RankGold, 0))
	assert.Equal(t, "platinum", RankName(models.RankPlatinum))
}

func TestSeasonReset(t *testing.T) {
	p := DefaultParams()
	pr := p.NewProfile("alice")
	pr.XP = 50_000
	pr.Rank = models.RankDiamond
	pr.SeasonMatches, pr.SeasonWins = 40, 30
	pr.Sigma = p.SigmaMax - 0.25

	p.SeasonReset(pr)
	assert.Equal(t, uint64(25_000), pr.XP)
	assert.Equal(t, models.RankPlatinum, pr.Rank)
	assert.Zero(t, pr.SeasonMatches)
	assert.Zero(t, pr.SeasonWins)
	assert.Equal(t, p.SigmaMax, pr.Sigma)
}

func TestFirstActivityBonusSurvivesLogin(t *testing.T) {
	p := DefaultParams()
	w, l := p.NewProfile("alice"), p.NewProfile("bob")

	// Viewing the profile in the morning records activity only.
	RollOver(w, noon.Add(-3*time.Hour))
	Touch(w, noon.Add(-3*time.Hour))

	wr, _, err := p.ApplyMatch(w, l, MatchInput{Stake: 10, Now: noon})
	require.NoError(t, err)
	assert.Equal(t, p.Experience.FirstActivityBonus, wr.XP.FirstActivity)
	require.NotNil(t, w.LastDailyBonusAt)

	wr, lr, err := p.ApplyMatch(w, l, MatchInput{Stake: 10, Now: noon.Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, wr.XP.FirstActivity, "paid once per day")
	assert.Zero(t, lr.XP.FirstActivity)
}
