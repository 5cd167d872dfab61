// Package settlement implements the lifecycle of a two-party wager as a pure
// state machine over models.Settlement. It performs no I/O; callers persist the
// mutated record and execute the returned Disbursement inside one transaction.
package settlement

import (
	"time"

	"skill-wager-system/models"
)

// State is the tagged lifecycle variant of a settlement. Each variant carries
// only the data that is meaningful in that state.
type State interface {
	Status() models.SettlementStatus
	Terminal() bool
}

type Created struct {
	OpenedAt time.Time
}

type Joined struct {
	JoinedAt time.Time
}

// Voting holds zero, one or two votes. Two differing votes on a settlement that
// does not require arbitration stay here until an authorized resolver settles it.
type Voting struct {
	VoteA, VoteB *string
	VotedAt      time.Time
}

// Retractable is entered on agreement. One of the votes may have been retracted
// since; the settlement returns to Voting only once both are cleared.
type Retractable struct {
	VoteA, VoteB *string
	Deadline     time.Time
}

type Disputed struct {
	VoteA, VoteB string
}

type Resolved struct {
	Winner     string
	ResolvedAt time.Time
}

type Voided struct {
	ClosedAt time.Time
}

func (Created) Status() models.SettlementStatus     { return models.SettlementCreated }
func (Joined) Status() models.SettlementStatus      { return models.SettlementJoined }
func (Voting) Status() models.SettlementStatus      { return models.SettlementVoting }
func (Retractable) Status() models.SettlementStatus { return models.SettlementRetractable }
func (Disputed) Status() models.SettlementStatus    { return models.SettlementDisputed }
func (Resolved) Status() models.SettlementStatus    { return models.SettlementResolved }
func (Voided) Status() models.SettlementStatus      { return models.SettlementVoided }

func (Created) Terminal() bool     { return false }
func (Joined) Terminal() bool      { return false }
func (Voting) Terminal() bool      { return false }
func (Retractable) Terminal() bool { return false }
func (Disputed) Terminal() bool    { return false }
func (Resolved) Terminal() bool    { return true }
func (Voided) Terminal() bool      { return true }

// StateOf rebuilds the variant from the persisted columns. An unknown status or
// a status whose required columns are missing yields nil.
func StateOf(s *models.Settlement) State {
	switch s.Status {
	case models.SettlementCreated:
		return Created{OpenedAt: s.OpenedAt}
	case models.SettlementJoined:
		if s.JoinedAt == nil {
			return nil
		}
		return Joined{JoinedAt: *s.JoinedAt}
	case models.SettlementVoting:
		v := Voting{VoteA: s.VoteA, VoteB: s.VoteB}
		if s.VoteTimestamp != nil {
			v.VotedAt = *s.VoteTimestamp
		}
		return v
	case models.SettlementRetractable:
		if s.RetractDeadline == nil {
			return nil
		}
		return Retractable{VoteA: s.VoteA, VoteB: s.VoteB, Deadline: *s.RetractDeadline}
	case models.SettlementDisputed:
		if s.VoteA == nil || s.VoteB == nil {
			return nil
		}
		return Disputed{VoteA: *s.VoteA, VoteB: *s.VoteB}
	case models.SettlementResolved:
		if s.Winner == nil || s.ResolvedAt == nil {
			return nil
		}
		return Resolved{Winner: *s.Winner, ResolvedAt: *s.ResolvedAt}
	case models.SettlementVoided:
		if s.ClosedAt == nil {
			return nil
		}
		return Voided{ClosedAt: *s.ClosedAt}
	}
	return nil
}

// allowed is the transition graph. Retractable→Voting is the only backward edge.
var allowed = map[models.SettlementStatus][]models.SettlementStatus{
	models.SettlementCreated:     {models.SettlementJoined, models.SettlementVoided},
	models.SettlementJoined:      {models.SettlementVoting, models.SettlementVoided},
	models.SettlementVoting:      {models.SettlementVoting, models.SettlementRetractable, models.SettlementDisputed, models.SettlementResolved, models.SettlementVoided},
	models.SettlementRetractable: {models.SettlementRetractable, models.SettlementVoting, models.SettlementDisputed, models.SettlementResolved, models.SettlementVoided},
	models.SettlementDisputed:    {models.SettlementResolved, models.SettlementVoided},
}

// CanTransition reports whether from→to is an edge of the lifecycle graph.
func CanTransition(from, to models.SettlementStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
