package rating

import (
	"math"
	"math/bits"
	"time"
)

// Performance is the self-reported metric bundle of one side.
type Performance struct {
	KillDeathRatio float64 `json:"kill_death_ratio"`
	Accuracy       float64 `json:"accuracy"` // percent
	Objectives     float64 `json:"objectives"`
	Score          float64 `json:"score"`
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// Valid reports whether every metric is within its plausible range. A single
// bad metric invalidates the whole bundle.
func (p Performance) Valid() bool {
	return inRange(p.KillDeathRatio, 0, 50) &&
		inRange(p.Accuracy, 0, 100) &&
		inRange(p.Objectives, 0, 1000) &&
		inRange(p.Score, 0, 1_000_000)
}

// ExperienceInput is the post-match context for one side.
type ExperienceInput struct {
	Won                bool
	Stake              uint64
	Duration           time.Duration
	Performance        *Performance
	DailyMatches       uint32 // including this match
	FirstActivityToday bool
	Streak             uint32  // after this match
	RatingGap          float64 // opponent mu minus own mu before the match
	MatchesPlayed      uint64  // including this match
}

// Breakdown lists each capped bonus of one experience award.
type Breakdown struct {
	Base          uint64 `json:"base"`
	Wager         uint64 `json:"wager"`
	Performance   uint64 `json:"performance"`
	Efficiency    uint64 `json:"efficiency"`
	DailyActivity uint64 `json:"daily_activity"`
	FirstActivity uint64 `json:"first_activity"`
	Streak        uint64 `json:"streak"`
	Underdog      uint64 `json:"underdog"`
	Milestone     uint64 `json:"milestone"`
}

// Components returns the bonuses in a fixed order.
func (b Breakdown) Components() []uint64 {
	return []uint64{b.Base, b.Wager, b.Performance, b.Efficiency, b.DailyActivity,
		b.FirstActivity, b.Streak, b.Underdog, b.Milestone}
}

// Total is the saturating sum of all components.
func (b Breakdown) Total() uint64 {
	var total uint64
	for _, c := range b.Components() {
		total = SaturatingAdd(total, c)
	}
	return total
}

// SaturatingAdd returns a+b, or MaxUint64 if the sum would wrap.
func SaturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func saturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func capFloat(v float64, limit uint64) uint64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= float64(limit) {
		return limit
	}
	return uint64(v)
}

// Experience computes the capped bonuses for one side of a match.
func (e ExperienceParams) Experience(in ExperienceInput) Breakdown {
	var b Breakdown
	if in.Won {
		b.Base = e.BaseWin
	} else {
		b.Base = e.BaseLoss
	}

	unit := e.WagerUnit
	if unit == 0 {
		unit = 1
	}
	b.Wager = min(in.Stake/unit, e.WagerCap)

	if in.Performance != nil && in.Performance.Valid() {
		pf := in.Performance
		v := pf.KillDeathRatio*10 + pf.Accuracy/2 + pf.Objectives*5 + pf.Score/1000
		b.Performance = capFloat(v, e.PerformanceCap)
	}

	if in.Won && in.Duration > 0 && in.Duration < e.EfficiencyWindow {
		b.Efficiency = e.EfficiencyBonus
	}
	if e.DailyThreshold > 0 && in.DailyMatches >= e.DailyThreshold {
		b.DailyActivity = e.DailyBonus
	}
	if in.FirstActivityToday {
		b.FirstActivity = e.FirstActivityBonus
	}
	if in.Won {
		b.Streak = min(saturatingMul(uint64(in.Streak), e.StreakStep), e.StreakCap)
		if in.RatingGap > 0 {
			b.Underdog = min(capFloat(in.RatingGap*float64(e.UnderdogStep), math.MaxUint64), e.UnderdogCap)
		}
	}
	for _, m := range e.Milestones {
		if m.Every > 0 && in.MatchesPlayed > 0 && in.MatchesPlayed%m.Every == 0 {
			b.Milestone = max(b.Milestone, m.Bonus)
		}
	}
	return b
}
