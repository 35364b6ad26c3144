package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMissingToken     = errors.New("missing access token")
	ErrExpiredToken     = errors.New("expired access token")
	ErrInvalidToken     = errors.New("invalid access token")
	ErrInsufficientRole = errors.New("insufficient role")
)

// Token failures all carry ErrUnauthorized so one check covers them.
func tokenErr(sentinel error, details string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", sentinel, ErrUnauthorized),
		Details:    details,
		Field:      "authorization",
	}
}

func NewUnauthorizedError(reason string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusUnauthorized, err: ErrUnauthorized, Details: reason}
}

func NewMissingTokenError() *ApiErr {
	return tokenErr(ErrMissingToken, "send a bearer token from /auth/jwt")
}

func NewExpiredTokenError() *ApiErr {
	return tokenErr(ErrExpiredToken, "request a new token from /auth/jwt")
}

// NewInvalidTokenError also covers tokens whose user no longer exists.
func NewInvalidTokenError() *ApiErr {
	return tokenErr(ErrInvalidToken, "token signature, issuer or subject is not valid")
}

// NewInsufficientRoleError wraps ErrForbidden too, so IsForbidden sees role failures.
func NewInsufficientRoleError(roles ...string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusForbidden,
		err:        fmt.Errorf("%w: %w", ErrInsufficientRole, ErrForbidden),
		Details:    fmt.Sprintf("requires role %s", strings.Join(roles, " or ")),
		Field:      "authorization",
	}
}
