package rating

import (
	"time"

	"skill-wager-system/models"
)

func sameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func sameWeek(a, b time.Time) bool {
	ay, aw := a.UTC().ISOWeek()
	by, bw := b.UTC().ISOWeek()
	return ay == by && aw == bw
}

func isYesterday(prev, now time.Time) bool {
	return sameDay(prev.UTC().AddDate(0, 0, 1), now)
}

// RollOver resets the daily and weekly counters when now falls in a new UTC
// day or ISO week relative to their last reset. It returns true while the
// first-activity bonus has not been paid today; profile views and logins do
// not consume it.
func RollOver(p *models.ParticipantProfile, now time.Time) bool {
	first := p.LastDailyBonusAt == nil || !sameDay(*p.LastDailyBonusAt, now)

	if p.DailyResetAt == nil || !sameDay(*p.DailyResetAt, now) {
		p.DailyMatches = 0
		p.DailyResetAt = &now
	}
	if p.WeeklyResetAt == nil || !sameWeek(*p.WeeklyResetAt, now) {
		p.WeeklyMatches = 0
		p.WeeklyResetAt = &now
	}
	return first
}

// Touch records activity at now and maintains the consecutive-day login streak.
func Touch(p *models.ParticipantProfile, now time.Time) {
	switch {
	case p.LastActiveAt == nil:
		p.LoginStreak = 1
	case sameDay(*p.LastActiveAt, now):
		if p.LoginStreak == 0 {
			p.LoginStreak = 1
		}
	case isYesterday(*p.LastActiveAt, now):
		p.LoginStreak++
	default:
		p.LoginStreak = 1
	}
	p.LastActiveAt = &now
}
