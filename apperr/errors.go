package apperr

import (
	"errors"
	"net/http"
)

// Error is the domain error type. Two errors are equal under errors.Is when
// their codes match, so sentinels can be returned with extra context.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the taxonomy bucket of the error.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// With returns a copy of a sentinel with a more specific message.
func (e *Error) With(message string) *Error {
	return &Error{Code: e.Code, Message: e.Message + ": " + message, Cause: e.Cause}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the response status used by the handlers.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindState:
		return http.StatusConflict
	case KindTemporal:
		return http.StatusTooEarly
	case KindArithmetic:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrInvalidAmount     = New(CodeInvalidAmount, "invalid amount")
	ErrInvalidMatchID    = New(CodeInvalidMatchID, "invalid match id")
	ErrGameIDTooLong     = New(CodeGameIDTooLong, "game id too long")
	ErrStakeMismatch     = New(CodeStakeMismatch, "stake does not match the opening stake")
	ErrSelfJoin          = New(CodeSelfJoin, "cannot join your own wager")
	ErrInvalidVote       = New(CodeInvalidVote, "vote must name one of the two participants")
	ErrInvalidWinner     = New(CodeInvalidWinner, "winner must be one of the two participants")
	ErrInvalidInput      = New(CodeInvalidInput, "invalid input")
	ErrInsufficientFunds = New(CodeInsufficientFunds, "insufficient funds")
	ErrUnknownKind       = New(CodeUnknownKind, "unknown achievement")

	ErrUnauthorized   = New(CodeUnauthorized, "unauthorized")
	ErrPlayerBanned   = New(CodePlayerBanned, "player is banned")
	ErrNotParticipant = New(CodeNotParticipant, "not a participant of this wager")

	ErrInvalidStatus  = New(CodeInvalidStatus, "invalid wager status")
	ErrAlreadyVoted   = New(CodeAlreadyVoted, "already voted")
	ErrNoVote         = New(CodeNoVote, "no vote to retract")
	ErrAlreadyClaimed = New(CodeAlreadyClaimed, "achievement already claimed")
	ErrNotEligible    = New(CodeNotEligible, "not eligible for achievement")
	ErrVoteMismatch   = New(CodeVoteMismatch, "winner does not match the agreed votes")

	ErrRetractExpired  = New(CodeRetractExpired, "retract period expired")
	ErrVoteWindowOpen  = New(CodeVoteWindowOpen, "retraction window still open")
	ErrTooEarly        = New(CodeTooEarly, "too early")
	ErrClaimCooldown   = New(CodeClaimCooldown, "achievement claim cooldown active")
	ErrClockRegression = New(CodeClockRegression, "clock moved backwards")

	ErrOverflow = New(CodeOverflow, "arithmetic overflow")

	ErrNotFound = New(CodeNotFound, "not found")
)
