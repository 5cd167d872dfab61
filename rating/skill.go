package rating

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Skill is the rating state of one side going into a match.
type Skill struct {
	Mu      float64
	Sigma   float64
	Matches uint64 // matches played before this one
}

var logistic = distuv.Logistic{Mu: 0, S: 1}

// activityFactor scales the dynamics term: new participants drift more.
func activityFactor(matches uint64) float64 {
	switch {
	case matches < 10:
		return 2.0
	case matches < 50:
		return 1.0
	default:
		return 0.5
	}
}

func (p Params) clampSigma(s float64) float64 {
	return math.Min(math.Max(s, p.SigmaMin), p.SigmaMax)
}

func (p Params) dynamicSigma(s Skill) float64 {
	drift := p.Tau * activityFactor(s.Matches)
	return math.Max(math.Sqrt(s.Sigma*s.Sigma+drift*drift), p.SigmaMin)
}

// WinProbability returns the expected probability that a beats b.
func (p Params) WinProbability(a, b Skill) float64 {
	sa, sb := p.dynamicSigma(a), p.dynamicSigma(b)
	c := math.Sqrt(sa*sa + sb*sb + 2*p.Beta*p.Beta)
	return logistic.CDF((a.Mu - b.Mu) / c)
}

// Update applies one match outcome and returns the new winner and loser skills.
func (p Params) Update(winner, loser Skill) (Skill, Skill) {
	sw, sl := p.dynamicSigma(winner), p.dynamicSigma(loser)
	c2 := sw*sw + sl*sl + 2*p.Beta*p.Beta
	c := math.Sqrt(c2)
	pw := logistic.CDF((winner.Mu - loser.Mu) / c)
	variance := pw * (1 - pw)

	side := func(s Skill, sd, outcome, expected float64) Skill {
		mu := s.Mu + (sd*sd/c)*(outcome-expected)
		sigma := math.Sqrt(sd * sd * math.Max(1-(sd*sd/c2)*variance, 0))
		if s.Matches+1 > p.CompressionThreshold {
			mu = p.Mu0 + (mu-p.Mu0)*(1-p.CompressionRate)
		}
		if p.MaxMuDelta > 0 {
			mu = s.Mu + math.Max(-p.MaxMuDelta, math.Min(mu-s.Mu, p.MaxMuDelta))
		}
		return Skill{Mu: mu, Sigma: p.clampSigma(sigma), Matches: s.Matches + 1}
	}
	return side(winner, sw, 1, pw), side(loser, sl, 0, 1-pw)
}
