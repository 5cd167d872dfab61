package rating

import (
	"fmt"
	"time"

	safemath "github.com/luxfi/math"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

// MatchInput is a settled outcome as seen by the progression engine.
type MatchInput struct {
	Stake             uint64
	Duration          time.Duration
	WinnerPerformance *Performance
	LoserPerformance  *Performance
	Now               time.Time
}

// SideResult summarizes what a match did to one profile.
type SideResult struct {
	MuBefore    float64     `json:"mu_before"`
	MuAfter     float64     `json:"mu_after"`
	SigmaBefore float64     `json:"sigma_before"`
	SigmaAfter  float64     `json:"sigma_after"`
	RankBefore  models.Rank `json:"rank_before"`
	RankAfter   models.Rank `json:"rank_after"`
	XP          Breakdown   `json:"xp"`
}

// XPEarned is the saturating total of the award.
func (r SideResult) XPEarned() uint64 { return r.XP.Total() }

// ApplyMatch updates both profiles for a settled match. Either both profiles
// are updated or, on error, neither is.
func (p Params) ApplyMatch(winner, loser *models.ParticipantProfile, in MatchInput) (SideResult, SideResult, error) {
	if in.Duration < 0 {
		return SideResult{}, SideResult{}, apperr.ErrInvalidInput.With("negative match duration")
	}
	w, l := *winner, *loser
	wFirst := RollOver(&w, in.Now)
	lFirst := RollOver(&l, in.Now)
	Touch(&w, in.Now)
	Touch(&l, in.Now)

	if err := countMatch(&w, true, in); err != nil {
		return SideResult{}, SideResult{}, fmt.Errorf("winner %s: %w", winner.ParticipantID, err)
	}
	if err := countMatch(&l, false, in); err != nil {
		return SideResult{}, SideResult{}, fmt.Errorf("loser %s: %w", loser.ParticipantID, err)
	}

	nw, nl := p.Update(
		Skill{Mu: winner.Mu, Sigma: winner.Sigma, Matches: winner.MatchesPlayed},
		Skill{Mu: loser.Mu, Sigma: loser.Sigma, Matches: loser.MatchesPlayed},
	)

	wr := SideResult{MuBefore: winner.Mu, MuAfter: nw.Mu, SigmaBefore: winner.Sigma, SigmaAfter: nw.Sigma, RankBefore: winner.Rank}
	lr := SideResult{MuBefore: loser.Mu, MuAfter: nl.Mu, SigmaBefore: loser.Sigma, SigmaAfter: nl.Sigma, RankBefore: loser.Rank}

	wr.XP = p.Experience.Experience(ExperienceInput{
		Won:                true,
		Stake:              in.Stake,
		Duration:           in.Duration,
		Performance:        in.WinnerPerformance,
		DailyMatches:       w.DailyMatches,
		FirstActivityToday: wFirst,
		Streak:             w.CurrentStreak,
		RatingGap:          loser.Mu - winner.Mu,
		MatchesPlayed:      w.MatchesPlayed,
	})
	lr.XP = p.Experience.Experience(ExperienceInput{
		Won:                false,
		Stake:              in.Stake,
		Duration:           in.Duration,
		Performance:        in.LoserPerformance,
		DailyMatches:       l.DailyMatches,
		FirstActivityToday: lFirst,
		MatchesPlayed:      l.MatchesPlayed,
	})

	if wr.XP.FirstActivity > 0 {
		w.LastDailyBonusAt = &in.Now
	}
	if lr.XP.FirstActivity > 0 {
		l.LastDailyBonusAt = &in.Now
	}

	w.Mu, w.Sigma = nw.Mu, nw.Sigma
	l.Mu, l.Sigma = nl.Mu, nl.Sigma
	wr.RankAfter = grantXP(&w, wr.XPEarned(), in.Now)
	lr.RankAfter = grantXP(&l, lr.XPEarned(), in.Now)

	*winner, *loser = w, l
	return wr, lr, nil
}

// countMatch bumps the per-match counters. Ledger-backed quantities hard-fail
// on overflow.
func countMatch(p *models.ParticipantProfile, won bool, in MatchInput) error {
	var err error
	if p.MatchesPlayed, err = safemath.Add64(p.MatchesPlayed, 1); err != nil {
		return apperr.Wrap(apperr.CodeOverflow, "matches played", err)
	}
	if p.TotalWagered, err = safemath.Add64(p.TotalWagered, in.Stake); err != nil {
		return apperr.Wrap(apperr.CodeOverflow, "total wagered", err)
	}
	if p.TotalWagered > models.MaxAmount {
		return apperr.ErrOverflow.With("total wagered")
	}
	if p.TotalPlayTime, err = safemath.Add64(p.TotalPlayTime, uint64(in.Duration/time.Second)); err != nil {
		return apperr.Wrap(apperr.CodeOverflow, "total play time", err)
	}
	if won {
		if p.Wins, err = safemath.Add64(p.Wins, 1); err != nil {
			return apperr.Wrap(apperr.CodeOverflow, "wins", err)
		}
		p.CurrentStreak = bump32(p.CurrentStreak)
		p.MaxStreak = max(p.MaxStreak, p.CurrentStreak)
		p.SeasonWins = bump32(p.SeasonWins)
	} else {
		if p.Losses, err = safemath.Add64(p.Losses, 1); err != nil {
			return apperr.Wrap(apperr.CodeOverflow, "losses", err)
		}
		p.CurrentStreak = 0
	}
	p.DailyMatches = bump32(p.DailyMatches)
	p.WeeklyMatches = bump32(p.WeeklyMatches)
	p.SeasonMatches = bump32(p.SeasonMatches)
	return nil
}

func bump32(v uint32) uint32 {
	if v == ^uint32(0) {
		return v
	}
	return v + 1
}

func grantXP(p *models.ParticipantProfile, xp uint64, now time.Time) models.Rank {
	p.XP = SaturatingAdd(p.XP, xp)
	if next := Promote(p.Rank, p.XP); next > p.Rank {
		p.Rank = next
		p.LastRankUpAt = &now
	}
	return p.Rank
}

// NewProfile returns a profile at the baseline rating.
func (p Params) NewProfile(participantID string) *models.ParticipantProfile {
	return &models.ParticipantProfile{
		ParticipantID: participantID,
		Mu:            p.Mu0,
		Sigma:         p.Sigma0,
		Rank:          models.RankBronze,
	}
}

// SeasonReset applies the soft reset between seasons: xp halves, rank is
// recomputed and may fall, season counters zero and sigma re-inflates.
// Seasonal achievement bits are cleared by the achievements package.
func (p Params) SeasonReset(pr *models.ParticipantProfile) {
	pr.XP /= 2
	pr.Rank = RankForXP(pr.XP)
	pr.SeasonMatches = 0
	pr.SeasonWins = 0
	pr.Sigma = p.clampSigma(pr.Sigma + p.SeasonSigmaBoost)
}
