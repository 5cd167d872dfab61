package achievements

import (
	"time"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

// Policy holds claim rate limiting.
type Policy struct {
	Cooldown time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Cooldown: time.Hour}
}

// Has reports whether the kind's bit is set on the profile.
func Has(p *models.ParticipantProfile, k Kind) bool {
	d, ok := Lookup(k)
	return ok && p.AchievementBits&d.mask() != 0
}

// Satisfied reports whether the profile currently satisfies the kind's predicate
// and matches floor, ignoring claim state.
func (d Definition) Satisfied(p *models.ParticipantProfile) bool {
	return p.MatchesPlayed >= d.MinMatches && d.Eligible(p)
}

// Check validates a claim without mutating the profile. Order: unknown kind,
// already claimed, cooldown, eligibility.
func (pol Policy) Check(p *models.ParticipantProfile, k Kind, now time.Time) (Definition, error) {
	d, ok := Lookup(k)
	if !ok {
		return Definition{}, apperr.ErrUnknownKind.With(string(k))
	}
	if p.AchievementBits&d.mask() != 0 {
		return Definition{}, apperr.ErrAlreadyClaimed
	}
	if last := p.LastAchievementClaimAt; last != nil {
		if now.Before(*last) {
			return Definition{}, apperr.ErrClockRegression
		}
		if now.Sub(*last) < pol.Cooldown {
			return Definition{}, apperr.ErrClaimCooldown
		}
	}
	if !d.Satisfied(p) {
		return Definition{}, apperr.ErrNotEligible
	}
	return d, nil
}

// Claim checks and then records the claim on the profile: the bit is set, the
// earned counter incremented and the claim time stamped.
func (pol Policy) Claim(p *models.ParticipantProfile, k Kind, now time.Time) (Definition, error) {
	d, err := pol.Check(p, k, now)
	if err != nil {
		return Definition{}, err
	}
	p.AchievementBits |= d.mask()
	if p.AchievementsEarned < ^uint32(0) {
		p.AchievementsEarned++
	}
	p.LastAchievementClaimAt = &now
	return d, nil
}

// Claimable lists every unclaimed kind whose predicate currently holds.
func Claimable(p *models.ParticipantProfile) []Kind {
	var out []Kind
	for _, d := range Table {
		if p.AchievementBits&d.mask() == 0 && d.Satisfied(p) {
			out = append(out, d.Kind)
		}
	}
	return out
}

// Claimed lists the kinds whose bits are set.
func Claimed(p *models.ParticipantProfile) []Kind {
	var out []Kind
	for _, d := range Table {
		if p.AchievementBits&d.mask() != 0 {
			out = append(out, d.Kind)
		}
	}
	return out
}

// ResetSeasonal clears the seasonal bits. It is the only way a bit is cleared.
func ResetSeasonal(p *models.ParticipantProfile) {
	p.AchievementBits &^= SeasonalMask()
}
