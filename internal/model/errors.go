package model

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of these so
// callers can branch on the category with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrRemote     = errors.New("remote store error")
)

// Validation errors
var (
	ErrInsufficientPlayers = fmt.Errorf("%w: at least %d players are required", ErrValidation, MinParticipants)
	ErrInvalidScore        = fmt.Errorf("%w: invalid score", ErrValidation)
	ErrMissingField        = fmt.Errorf("%w: missing required field", ErrValidation)
	ErrDuplicateGuestName  = fmt.Errorf("%w: duplicate guest name", ErrValidation)
	ErrDuplicatePlayer     = fmt.Errorf("%w: duplicate player", ErrValidation)
	ErrInvalidPlayer       = fmt.Errorf("%w: invalid player id", ErrValidation)
	ErrUnknownPlayer       = fmt.Errorf("%w: player is not part of this tournament", ErrValidation)
	ErrInvalidMatch        = fmt.Errorf("%w: invalid match", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrNoActiveClub        = fmt.Errorf("%w: no active club", ErrValidation)
	ErrNotMember           = fmt.Errorf("%w: not a member of this club", ErrValidation)
	ErrTournamentNotActive = fmt.Errorf("%w: tournament is not active", ErrValidation)
	ErrGuestListLocked     = fmt.Errorf("%w: guest list cannot change once matches reference guests", ErrValidation)
)

// Not found errors
var (
	ErrTournamentNotFound  = fmt.Errorf("%w: tournament", ErrNotFound)
	ErrMatchNotFound       = fmt.Errorf("%w: match", ErrNotFound)
	ErrClubNotFound        = fmt.Errorf("%w: club", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("%w: user", ErrNotFound)
	ErrCredentialsNotFound = fmt.Errorf("%w: credentials", ErrNotFound)
)

// Conflict errors
var (
	ErrAlreadyMember   = fmt.Errorf("%w: already a member of this club", ErrConflict)
	ErrVersionConflict = fmt.Errorf("%w: tournament was modified concurrently", ErrConflict)
	ErrAlreadyExists   = fmt.Errorf("%w: already exists", ErrConflict)
)

// RemoteError wraps a failure of the underlying store. It matches ErrRemote
// and unwraps to the original cause.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrRemote category.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// NewRemoteError wraps err as a RemoteError, or returns nil if err is nil.
func NewRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}
