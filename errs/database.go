package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrDatabaseQuery      = errors.New("database query failed")
	ErrDatabaseConnection = errors.New("database connection failed")
)

func NewAlreadyExists(entity string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusConflict, err: fmt.Errorf("%s %w", entity, ErrAlreadyExists)}
}

func NewNotFound(entity string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusNotFound, err: fmt.Errorf("%s %w", entity, ErrNotFound)}
}

// NewDatabaseError classifies a gorm failure. Drivers that do not translate
// errors are matched on their message: postgres says "duplicate key", sqlite
// says "UNIQUE constraint failed".
func NewDatabaseError(operation, entity string, cause error) *ApiErr {
	details := fmt.Sprintf("%s %s", operation, entity)
	classified := func(status int, err error) *ApiErr {
		return &ApiErr{StatusCode: status, err: err, Details: details, Cause: cause}
	}
	if cause == nil {
		return classified(http.StatusInternalServerError, ErrDatabaseQuery)
	}

	switch {
	case errors.Is(cause, gorm.ErrRecordNotFound):
		return classified(http.StatusNotFound, fmt.Errorf("%s %w", entity, ErrNotFound))
	case errors.Is(cause, gorm.ErrDuplicatedKey):
		return classified(http.StatusConflict, fmt.Errorf("%s %w", entity, ErrAlreadyExists))
	}

	msg := strings.ToLower(cause.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return classified(http.StatusConflict, fmt.Errorf("%s %w", entity, ErrAlreadyExists))
	case strings.Contains(msg, "foreign key constraint"):
		return classified(http.StatusBadRequest, fmt.Errorf("%s references a missing record: %w", entity, ErrBadRequest))
	case strings.Contains(msg, "connection"):
		return classified(http.StatusServiceUnavailable, ErrDatabaseConnection)
	}
	return classified(http.StatusInternalServerError, ErrDatabaseQuery)
}
