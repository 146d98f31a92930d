package service

import "errors"

// Error kinds. Every service sentinel unwraps to exactly one of them and the
// HTTP layer maps the kind to a status code.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is a user-facing service error of a given kind.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Message returns the text that is safe to show to API callers.
func (e *Error) Message() string { return e.msg }

// --- Shared sentinels ---
var (
	ErrClientNotManaged  = newError(ErrForbidden, "client does not have an active relationship with this trainer")
	ErrTrainerOnly       = newError(ErrForbidden, "only trainers can perform this action")
	ErrClientOnly        = newError(ErrForbidden, "only clients can perform this action")
	ErrExerciseNotFound  = newError(ErrNotFound, "exercise not found")
	ErrInvalidDateRange  = newError(ErrInvalidInput, "start must be before end")
	ErrInvalidPagination = newError(ErrInvalidInput, "limit and offset must not be negative")
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func normalizePage(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, ErrInvalidPagination
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit, offset, nil
}
