package achievements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

var now = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func TestTableIsStable(t *testing.T) {
	seen := map[uint8]Kind{}
	for _, d := range Table {
		require.Less(t, d.Bit, uint8(64))
		prev, dup := seen[d.Bit]
		require.False(t, dup, "bit %d used by %s and %s", d.Bit, prev, d.Kind)
		seen[d.Bit] = d.Kind
		require.NotNil(t, d.Eligible, d.Kind)
	}
	// Bits are part of persisted state and must not move.
	assert.Equal(t, uint8(0), byKind[FirstWin].Bit)
	assert.Equal(t, uint8(9), byKind[Dedicated].Bit)
	assert.Equal(t, uint8(11), byKind[SeasonChampion].Bit)
	assert.Equal(t, uint64(1<<10|1<<11), SeasonalMask())
}

func TestClaimOnce(t *testing.T) {
	pol := DefaultPolicy()
	p := &models.ParticipantProfile{Wins: 1, MatchesPlayed: 1}

	d, err := pol.Claim(p, FirstWin, now)
	require.NoError(t, err)
	assert.Equal(t, FirstWin, d.Kind)
	assert.True(t, Has(p, FirstWin))
	assert.Equal(t, uint32(1), p.AchievementsEarned)

	// Still eligible, past the cooldown, but already claimed.
	_, err = pol.Claim(p, FirstWin, now.Add(24*time.Hour))
	require.ErrorIs(t, err, apperr.ErrAlreadyClaimed)
	assert.Equal(t, uint32(1), p.AchievementsEarned)
}

func TestClaimOrder(t *testing.T) {
	pol := Policy{Cooldown: time.Hour}
	p := &models.ParticipantProfile{Wins: 12, MatchesPlayed: 12}
	_, err := pol.Claim(p, FirstWin, now)
	require.NoError(t, err)

	_, err = pol.Claim(p, TenWins, now.Add(30*time.Minute))
	require.ErrorIs(t, err, apperr.ErrClaimCooldown)
	assert.Equal(t, apperr.KindTemporal, apperr.KindOf(err))

	_, err = pol.Claim(p, CenturyClub, now.Add(30*time.Minute))
	require.ErrorIs(t, err, apperr.ErrClaimCooldown, "cooldown is checked before eligibility")

	_, err = pol.Claim(p, CenturyClub, now.Add(2*time.Hour))
	require.ErrorIs(t, err, apperr.ErrNotEligible)

	_, err = pol.Claim(p, TenWins, now.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = pol.Claim(p, Kind("nope"), now.Add(5*time.Hour))
	require.ErrorIs(t, err, apperr.ErrUnknownKind)
}

func TestMatchesFloor(t *testing.T) {
	p := &models.ParticipantProfile{Rank: models.RankDiamond, MatchesPlayed: 49}
	_, err := DefaultPolicy().Check(p, DiamondRank, now)
	require.ErrorIs(t, err, apperr.ErrNotEligible)

	p.MatchesPlayed = 50
	_, err = DefaultPolicy().Check(p, DiamondRank, now)
	require.NoError(t, err)
	assert.False(t, Has(p, DiamondRank), "Check does not mutate")
}

func TestClaimableAndReset(t *testing.T) {
	p := &models.ParticipantProfile{
		Wins: 30, MatchesPlayed: 60, SeasonWins: 45, MaxStreak: 6, LoginStreak: 8,
	}
	assert.ElementsMatch(t, []Kind{FirstWin, TenWins, HotStreak, Dedicated, SeasonContender, SeasonChampion}, Claimable(p))

	pol := Policy{}
	for _, k := range []Kind{FirstWin, SeasonChampion} {
		_, err := pol.Claim(p, k, now)
		require.NoError(t, err)
	}
	assert.Equal(t, []Kind{FirstWin, SeasonChampion}, Claimed(p))

	ResetSeasonal(p)
	assert.Equal(t, []Kind{FirstWin}, Claimed(p))
	assert.Equal(t, uint32(2), p.AchievementsEarned)
}
