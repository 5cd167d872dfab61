// Package rating updates skill estimates, experience, rank and activity
// counters from a settled match. It is pure: callers supply the clock reading
// and persist the mutated profiles.
package rating

import "time"

// Params configures the skill model.
type Params struct {
	Mu0      float64 // baseline mean of a new participant
	Sigma0   float64 // baseline uncertainty
	Beta     float64 // class width
	Tau      float64 // per-match dynamics
	SigmaMin float64
	SigmaMax float64

	// MaxMuDelta bounds the change in mu from a single match.
	MaxMuDelta float64

	// Past CompressionThreshold matches, mu is pulled toward Mu0 by
	// CompressionRate of its distance each match.
	CompressionThreshold uint64
	CompressionRate      float64

	// SeasonSigmaBoost is added to sigma on season reset before clamping.
	SeasonSigmaBoost float64

	Experience ExperienceParams
}

// ExperienceParams holds each bonus and its cap.
type ExperienceParams struct {
	BaseWin  uint64
	BaseLoss uint64

	WagerUnit uint64 // stake units per bonus point
	WagerCap  uint64

	PerformanceCap uint64

	EfficiencyWindow time.Duration
	EfficiencyBonus  uint64

	DailyThreshold uint32
	DailyBonus     uint64

	FirstActivityBonus uint64

	StreakStep uint64
	StreakCap  uint64

	UnderdogStep uint64 // per point of mu gap
	UnderdogCap  uint64

	Milestones []Milestone
}

// Milestone awards Bonus when matches played is a multiple of Every.
type Milestone struct {
	Every uint64
	Bonus uint64
}

func DefaultParams() Params {
	return Params{
		Mu0:                  25,
		Sigma0:               25.0 / 3,
		Beta:                 25.0 / 6,
		Tau:                  25.0 / 300,
		SigmaMin:             0.5,
		SigmaMax:             25.0 / 3,
		MaxMuDelta:           5,
		CompressionThreshold: 100,
		CompressionRate:      0.001,
		SeasonSigmaBoost:     1,
		Experience: ExperienceParams{
			BaseWin:            100,
			BaseLoss:           25,
			WagerUnit:          100,
			WagerCap:           200,
			PerformanceCap:     150,
			EfficiencyWindow:   5 * time.Minute,
			EfficiencyBonus:    50,
			DailyThreshold:     5,
			DailyBonus:         25,
			FirstActivityBonus: 20,
			StreakStep:         10,
			StreakCap:          100,
			UnderdogStep:       5,
			UnderdogCap:        100,
			Milestones: []Milestone{
				{Every: 10, Bonus: 50},
				{Every: 100, Bonus: 250},
				{Every: 1000, Bonus: 1000},
			},
		},
	}
}
