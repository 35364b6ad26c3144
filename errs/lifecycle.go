package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Contest lifecycle error kinds. Every lifecycle failure wraps exactly one of these.
var (
	ErrValidation          = errors.New("validation error")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrAlreadyRegistered   = errors.New("already registered")
	ErrWinnerAlreadySet    = errors.New("winner already set")
	ErrContestEnded        = errors.New("contest ended")
	ErrPaymentRequired     = errors.New("payment required")
	ErrNotRegistered       = errors.New("not registered")
	ErrNotAParticipant     = errors.New("not a participant")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// kinds is ordered: the first sentinel an error matches names its kind.
var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "ValidationError"},
	{ErrInvalidTransition, "InvalidTransition"},
	{ErrAlreadyRegistered, "AlreadyRegistered"},
	{ErrWinnerAlreadySet, "WinnerAlreadySet"},
	{ErrContestEnded, "ContestEnded"},
	{ErrPaymentRequired, "PaymentRequired"},
	{ErrNotRegistered, "NotRegistered"},
	{ErrNotAParticipant, "NotAParticipant"},
	{ErrConcurrencyConflict, "ConcurrencyConflict"},
	{ErrInsufficientRole, "Forbidden"},
	{ErrForbidden, "Forbidden"},
	{ErrNotFound, "NotFound"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrConflict, "Conflict"},
	{ErrCORSBlocked, "Forbidden"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrMissingToken, "Unauthorized"},
	{ErrExpiredToken, "Unauthorized"},
	{ErrInvalidToken, "Unauthorized"},
	{ErrServiceUnavailable, "ServiceUnavailable"},
	{ErrDatabaseConnection, "ServiceUnavailable"},
	{ErrUpstream, "UpstreamError"},
	{ErrBadRequest, "BadRequest"},
	{ErrMalformedPayload, "BadRequest"},
	{ErrInvalidJSON, "BadRequest"},
	{ErrMissingRequiredField, "ValidationError"},
}

// KindOf returns the wire name of err's kind, or "Internal" when err matches none.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

func NewValidationError(field, reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadRequest,
		err:        ErrValidation,
		Details:    fmt.Sprintf("%s %s", field, reason),
		Field:      field,
	}
}

// NewInvalidTransitionError reports that attempted (an event or a target
// status) has no edge from the contest's current status.
func NewInvalidTransitionError(from, attempted string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrInvalidTransition,
		Details:    fmt.Sprintf("%s not allowed while contest is %s", attempted, from),
		Field:      "status",
	}
}

func NewAlreadyRegisteredError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrAlreadyRegistered,
		Details:    "user is already a participant",
	}
}

func NewWinnerAlreadySetError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrWinnerAlreadySet,
		Details:    "a different winner has already been declared",
		Field:      "winnerId",
	}
}

func NewContestEndedError(reason string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnprocessableEntity,
		err:        ErrContestEnded,
		Details:    reason,
	}
}

func NewPaymentRequiredError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusPaymentRequired,
		err:        ErrPaymentRequired,
		Details:    "entry fee has not been paid",
	}
}

func NewNotRegisteredError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnprocessableEntity,
		err:        ErrNotRegistered,
		Details:    "user is not a participant of this contest",
	}
}

func NewNotAParticipantError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnprocessableEntity,
		err:        ErrNotAParticipant,
		Details:    "winner must be a participant of the contest",
		Field:      "winnerId",
	}
}

func NewConcurrencyConflictError(entity string, attempts int) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        ErrConcurrencyConflict,
		Details:    fmt.Sprintf("%s changed concurrently, gave up after %d attempts", entity, attempts),
	}
}

// IsIdempotentNoop reports errors that leave state unchanged and carry the
// current state alongside them. Handlers answer these with that state; the
// status code only applies if one reaches WriteError.
func IsIdempotentNoop(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered)
}
