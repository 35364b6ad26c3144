package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewValidationError("deadline", "must be in the future"), "ValidationError"},
		{NewInvalidTransitionError("approved", "approve"), "InvalidTransition"},
		{NewAlreadyRegisteredError(), "AlreadyRegistered"},
		{NewWinnerAlreadySetError(), "WinnerAlreadySet"},
		{NewContestEndedError("deadline has passed"), "ContestEnded"},
		{NewPaymentRequiredError(), "PaymentRequired"},
		{NewNotRegisteredError(), "NotRegistered"},
		{NewNotAParticipantError(), "NotAParticipant"},
		{NewConcurrencyConflictError("contest", 5), "ConcurrencyConflict"},
		{NewInsufficientRoleError("admin"), "Forbidden"},
		{NewExpiredTokenError(), "Unauthorized"},
		{NewMissingRequiredFieldError("status"), "ValidationError"},
		{NewNotFound("contest"), "NotFound"},
		{NewServiceUnavailableError("payments"), "ServiceUnavailable"},
		{fmt.Errorf("commit: %w", NewConcurrencyConflictError("contest", 1)), "ConcurrencyConflict"},
		{errors.New("boom"), "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("expected %s, got %s for %v", tt.want, got, tt.err)
			}
		})
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *ApiErr
		want int
	}{
		{NewAlreadyRegisteredError(), http.StatusConflict},
		{NewInvalidTransitionError("pending", "declareWinner"), http.StatusConflict},
		{NewPaymentRequiredError(), http.StatusPaymentRequired},
		{NewContestEndedError("deadline has passed"), http.StatusUnprocessableEntity},
		{NewInvalidTokenError(), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if tt.err.StatusCode != tt.want {
			t.Fatalf("expected %d for %v, got %d", tt.want, tt.err, tt.err.StatusCode)
		}
	}
}

func TestNewDatabaseError(t *testing.T) {
	notFound := NewDatabaseError("find", "contest", gorm.ErrRecordNotFound)
	if !IsNotFound(notFound) || notFound.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %v", notFound)
	}

	dup := NewDatabaseError("create", "user", errors.New("UNIQUE constraint failed: users.email"))
	if !errors.Is(dup, ErrAlreadyExists) || dup.StatusCode != http.StatusConflict {
		t.Fatalf("expected already exists, got %v", dup)
	}

	down := NewDatabaseError("find", "user", errors.New("dial tcp: connection refused"))
	if KindOf(down) != "ServiceUnavailable" {
		t.Fatalf("expected ServiceUnavailable, got %s", KindOf(down))
	}

	other := NewDatabaseError("update", "contest", errors.New("syntax error"))
	if !errors.Is(other, ErrDatabaseQuery) || other.GetFullError() != "database query failed: update contest -> syntax error" {
		t.Fatalf("unexpected error %q", other.GetFullError())
	}
}

func TestIdempotentNoop(t *testing.T) {
	if !IsIdempotentNoop(fmt.Errorf("confirm: %w", NewAlreadyRegisteredError())) {
		t.Fatal("expected AlreadyRegistered to be a no-op")
	}
	if IsIdempotentNoop(NewWinnerAlreadySetError()) {
		t.Fatal("expected WinnerAlreadySet to be an error")
	}
}
