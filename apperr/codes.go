// Package apperr provides the error taxonomy shared by the settlement, rating and
// achievement components.
package apperr

// Kind classifies an error by how the caller should react to it.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
	KindTemporal      Kind = "temporal"
	KindArithmetic    Kind = "arithmetic"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

// Code is a machine-readable error code.
type Code string

const (
	// Validation
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeInvalidMatchID    Code = "INVALID_MATCH_ID"
	CodeGameIDTooLong     Code = "GAME_ID_TOO_LONG"
	CodeStakeMismatch     Code = "STAKE_MISMATCH"
	CodeSelfJoin          Code = "SELF_JOIN"
	CodeInvalidVote       Code = "INVALID_VOTE"
	CodeInvalidWinner     Code = "INVALID_WINNER"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeUnknownKind       Code = "UNKNOWN_ACHIEVEMENT"

	// Authorization
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodePlayerBanned   Code = "PLAYER_BANNED"
	CodeNotParticipant Code = "NOT_PARTICIPANT"

	// State
	CodeInvalidStatus  Code = "INVALID_STATUS"
	CodeAlreadyVoted   Code = "ALREADY_VOTED"
	CodeNoVote         Code = "NO_VOTE_TO_RETRACT"
	CodeAlreadyClaimed Code = "ALREADY_CLAIMED"
	CodeNotEligible    Code = "NOT_ELIGIBLE"
	CodeVoteMismatch   Code = "VOTE_MISMATCH"

	// Temporal
	CodeRetractExpired  Code = "RETRACT_EXPIRED"
	CodeVoteWindowOpen  Code = "VOTE_WINDOW_OPEN"
	CodeTooEarly        Code = "TOO_EARLY"
	CodeClaimCooldown   Code = "CLAIM_COOLDOWN"
	CodeClockRegression Code = "CLOCK_REGRESSION"

	// Arithmetic
	CodeOverflow Code = "OVERFLOW"

	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL"
)

var kinds = map[Code]Kind{
	CodeInvalidAmount:     KindValidation,
	CodeInvalidMatchID:    KindValidation,
	CodeGameIDTooLong:     KindValidation,
	CodeStakeMismatch:     KindValidation,
	CodeSelfJoin:          KindValidation,
	CodeInvalidVote:       KindValidation,
	CodeInvalidWinner:     KindValidation,
	CodeInvalidInput:      KindValidation,
	CodeInsufficientFunds: KindValidation,
	CodeUnknownKind:       KindValidation,

	CodeUnauthorized:   KindAuthorization,
	CodePlayerBanned:   KindAuthorization,
	CodeNotParticipant: KindAuthorization,

	CodeInvalidStatus:  KindState,
	CodeAlreadyVoted:   KindState,
	CodeNoVote:         KindState,
	CodeAlreadyClaimed: KindState,
	CodeNotEligible:    KindState,
	CodeVoteMismatch:   KindState,

	CodeRetractExpired:  KindTemporal,
	CodeVoteWindowOpen:  KindTemporal,
	CodeTooEarly:        KindTemporal,
	CodeClaimCooldown:   KindTemporal,
	CodeClockRegression: KindTemporal,

	CodeOverflow: KindArithmetic,

	CodeNotFound: KindNotFound,
	CodeInternal: KindInternal,
}

// Kind returns the taxonomy bucket of the code.
func (c Code) Kind() Kind {
	if k, ok := kinds[c]; ok {
		return k
	}
	return KindInternal
}
