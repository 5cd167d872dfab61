package settlement

import "time"

// MaxGameIDLength bounds the external game identifier in bytes.
const MaxGameIDLength = 20

// Policy holds the temporal rules of the lifecycle.
type Policy struct {
	// RetractWindow is the grace period after agreement during which either
	// participant may withdraw their vote.
	RetractWindow time.Duration
	// ForceCloseMinAge is the minimum age of a settlement before it may be voided.
	ForceCloseMinAge time.Duration
	// OracleMinDelay is how long after the join a resolver must wait before
	// settling a Voting settlement without participant agreement.
	OracleMinDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		RetractWindow:    5 * time.Minute,
		ForceCloseMinAge: 24 * time.Hour,
	}
}

// Caller is the identity invoking a transition. Resolver marks an authorized
// external resolver (oracle, moderator or the system scheduler).
type Caller struct {
	ID       string
	Resolver bool
}

// BanCheck reports whether a participant is banned at the operation's time.
type BanCheck func(participantID string) bool
