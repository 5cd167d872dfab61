package settlement

import (
	"time"

	"github.com/google/uuid"
	safemath "github.com/luxfi/math"

	"skill-wager-system/apperr"
	"skill-wager-system/models"
)

// OpenInput describes the first stake of a new settlement.
type OpenInput struct {
	MatchID             uint64
	GameID              string
	Stake               uint64
	RequiresArbitration bool
}

// Open validates the first stake and returns a settlement in the Created state.
func Open(caller Caller, in OpenInput, now time.Time, banned BanCheck) (*models.Settlement, error) {
	if in.Stake == 0 {
		return nil, apperr.ErrInvalidAmount
	}
	if in.MatchID == 0 {
		return nil, apperr.ErrInvalidMatchID
	}
	if len(in.GameID) > MaxGameIDLength {
		return nil, apperr.ErrGameIDTooLong
	}
	if caller.ID == "" {
		return nil, apperr.ErrUnauthorized
	}
	if banned != nil && banned(caller.ID) {
		return nil, apperr.ErrPlayerBanned
	}
	// The pot must be representable before anyone else can stake into it.
	pot, err := safemath.Add64(in.Stake, in.Stake)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeOverflow, "pot exceeds ledger range", err)
	}
	if pot > models.MaxAmount {
		return nil, apperr.ErrOverflow.With("pot exceeds ledger range")
	}

	return &models.Settlement{
		ID:                  uuid.NewString(),
		PlayerA:             caller.ID,
		MatchID:             in.MatchID,
		GameID:              in.GameID,
		Stake:               in.Stake,
		RequiresArbitration: in.RequiresArbitration,
		Status:              models.SettlementCreated,
		OpenedAt:            now,
	}, nil
}

// Join records the second, equal stake.
func Join(s *models.Settlement, caller Caller, stake uint64, now time.Time, banned BanCheck) error {
	if _, ok := StateOf(s).(Created); !ok {
		return apperr.ErrInvalidStatus.With(string(s.Status))
	}
	if err := checkClock(s, now); err != nil {
		return err
	}
	if stake == 0 {
		return apperr.ErrInvalidAmount
	}
	if stake != s.Stake {
		return apperr.ErrStakeMismatch
	}
	if caller.ID == "" {
		return apperr.ErrUnauthorized
	}
	if caller.ID == s.PlayerA {
		return apperr.ErrSelfJoin
	}
	if banned != nil && (banned(caller.ID) || banned(s.PlayerA)) {
		return apperr.ErrPlayerBanned
	}

	s.PlayerB = caller.ID
	s.JoinedAt = &now
	s.Status = models.SettlementJoined
	return nil
}

// Vote records the caller's reported winner and re-evaluates agreement.
func Vote(s *models.Settlement, caller Caller, winner string, now time.Time, p Policy) error {
	// In Retractable only a participant whose vote was retracted can vote again;
	// everyone else hits ErrAlreadyVoted below.
	switch StateOf(s).(type) {
	case Joined, Voting, Retractable:
	default:
		return apperr.ErrInvalidStatus.With(string(s.Status))
	}
	if err := checkClock(s, now); err != nil {
		return err
	}
	if !s.HasParticipant(caller.ID) {
		return apperr.ErrNotParticipant
	}
	if !s.HasParticipant(winner) {
		return apperr.ErrInvalidVote
	}
	slot := voteSlot(s, caller.ID)
	if *slot != nil {
		return apperr.ErrAlreadyVoted
	}

	v := winner
	*slot = &v
	s.VoteTimestamp = &now

	if s.VoteA == nil || s.VoteB == nil {
		if s.Status == models.SettlementJoined {
			s.Status = models.SettlementVoting
		}
		return nil
	}
	switch {
	case *s.VoteA == *s.VoteB:
		deadline := now.Add(p.RetractWindow)
		s.RetractDeadline = &deadline
		s.Status = models.SettlementRetractable
	case s.RequiresArbitration:
		s.RetractDeadline = nil
		s.Status = models.SettlementDisputed
	default:
		s.RetractDeadline = nil
		s.Status = models.SettlementVoting
	}
	return nil
}

// Retract withdraws the caller's vote while the retraction window is open.
func Retract(s *models.Settlement, caller Caller, now time.Time) error {
	st, ok := StateOf(s).(Retractable)
	if !ok {
		return apperr.ErrInvalidStatus.With(string(s.Status))
	}
	if err := checkClock(s, now); err != nil {
		return err
	}
	if !s.HasParticipant(caller.ID) {
		return apperr.ErrNotParticipant
	}
	if !now.Before(st.Deadline) {
		return apperr.ErrRetractExpired
	}
	slot := voteSlot(s, caller.ID)
	if *slot == nil {
		return apperr.ErrNoVote
	}

	*slot = nil
	if s.VoteA == nil && s.VoteB == nil {
		s.RetractDeadline = nil
		s.Status = models.SettlementVoting
	}
	return nil
}

// Resolve settles s in favour of winner and returns the escrow release plan.
//
//   - Retractable: a participant or resolver, once the deadline has passed,
//     with the winner both votes agree on.
//   - Disputed: a resolver who is not a participant, any participant may win.
//   - Voting, or Retractable with a retracted vote: a resolver who is not a
//     participant, once OracleMinDelay has elapsed since the join. Covers
//     disagreement without arbitration and stalled votes.
func Resolve(s *models.Settlement, caller Caller, winner string, now time.Time, p Policy) (Disbursement, error) {
	st := StateOf(s)
	switch st.(type) {
	case Retractable, Disputed, Voting:
	default:
		return Disbursement{}, apperr.ErrInvalidStatus.With(string(s.Status))
	}
	if err := checkClock(s, now); err != nil {
		return Disbursement{}, err
	}
	if !s.HasParticipant(winner) {
		return Disbursement{}, apperr.ErrInvalidWinner
	}

	switch st := st.(type) {
	case Retractable:
		if st.VoteA == nil || st.VoteB == nil {
			// A retracted vote leaves no agreement to finalize.
			if err := oracleGate(s, caller, now, p); err != nil {
				return Disbursement{}, err
			}
			break
		}
		if !caller.Resolver && !s.HasParticipant(caller.ID) {
			return Disbursement{}, apperr.ErrUnauthorized
		}
		if now.Before(st.Deadline) {
			return Disbursement{}, apperr.ErrVoteWindowOpen
		}
		if *st.VoteA != winner || *st.VoteB != winner {
			return Disbursement{}, apperr.ErrVoteMismatch
		}
	case Disputed:
		if !arbiter(s, caller) {
			return Disbursement{}, apperr.ErrUnauthorized.With("arbitration requires a non-participant resolver")
		}
	case Voting:
		if err := oracleGate(s, caller, now, p); err != nil {
			return Disbursement{}, err
		}
	}

	pot, err := Escrowed(s)
	if err != nil {
		return Disbursement{}, err
	}
	w := winner
	by := caller.ID
	s.Winner = &w
	s.ResolvedBy = &by
	s.ResolvedAt = &now
	s.Status = models.SettlementResolved

	return Disbursement{
		Payouts:    []Transfer{{Recipient: winner, Amount: pot}},
		ResidualTo: caller.ID,
	}, nil
}

// ForceClose voids a non-terminal settlement once it is old enough and refunds
// every stake actually made.
func ForceClose(s *models.Settlement, caller Caller, now time.Time, p Policy) (Disbursement, error) {
	st := StateOf(s)
	if st == nil || st.Terminal() {
		return Disbursement{}, apperr.ErrInvalidStatus.With(string(s.Status))
	}
	if err := checkClock(s, now); err != nil {
		return Disbursement{}, err
	}
	if !caller.Resolver && !s.HasParticipant(caller.ID) {
		return Disbursement{}, apperr.ErrUnauthorized
	}
	if now.Before(s.OpenedAt.Add(p.ForceCloseMinAge)) {
		return Disbursement{}, apperr.ErrTooEarly
	}

	refunds := []Transfer{{Recipient: s.PlayerA, Amount: s.Stake}}
	if s.PlayerB != "" {
		refunds = append(refunds, Transfer{Recipient: s.PlayerB, Amount: s.Stake})
	}
	s.ClosedAt = &now
	s.Status = models.SettlementVoided

	return Disbursement{Refunds: refunds, ResidualTo: caller.ID}, nil
}

// oracleGate guards settling without agreement: a non-participant resolver, once
// OracleMinDelay has elapsed since the join.
func oracleGate(s *models.Settlement, caller Caller, now time.Time, p Policy) error {
	if !arbiter(s, caller) {
		return apperr.ErrUnauthorized.With("settling without agreement requires a non-participant resolver")
	}
	if s.JoinedAt == nil || now.Before(s.JoinedAt.Add(p.OracleMinDelay)) {
		return apperr.ErrTooEarly
	}
	return nil
}

func arbiter(s *models.Settlement, caller Caller) bool {
	return caller.Resolver && caller.ID != "" && !s.HasParticipant(caller.ID)
}

func voteSlot(s *models.Settlement, participant string) **string {
	if participant == s.PlayerA {
		return &s.VoteA
	}
	return &s.VoteB
}

// checkClock rejects a timestamp earlier than anything already recorded.
func checkClock(s *models.Settlement, now time.Time) error {
	latest := s.OpenedAt
	for _, t := range []*time.Time{s.JoinedAt, s.VoteTimestamp} {
		if t != nil && t.After(latest) {
			latest = *t
		}
	}
	if now.Before(latest) {
		return apperr.ErrClockRegression
	}
	return nil
}
