package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidScore        = "INVALID_SCORE"
	CodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	CodeNoActiveClub        = "NO_ACTIVE_CLUB"
	CodeTournamentNotActive = "TOURNAMENT_NOT_ACTIVE"
	CodeGuestListLocked     = "GUEST_LIST_LOCKED"
	CodeDuplicateGuestName  = "DUPLICATE_GUEST_NAME"
	CodeNotMember           = "NOT_MEMBER"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeTournamentNotFound  = "TOURNAMENT_NOT_FOUND"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeClubNotFound        = "CLUB_NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyMember       = "ALREADY_MEMBER"
	CodeVersionConflict     = "VERSION_CONFLICT"
	CodeConflict            = "CONFLICT"
	CodeRemoteError         = "REMOTE_ERROR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError. Specific errors are
// checked before the category they wrap.
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}

	// Validation errors the client can act on
	case errors.Is(err, model.ErrInvalidScore):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInvalidScore, msg}}
	case errors.Is(err, model.ErrInsufficientPlayers):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInsufficientPlayers, msg}}
	case errors.Is(err, model.ErrNoActiveClub):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeNoActiveClub, msg}}
	case errors.Is(err, model.ErrTournamentNotActive):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeTournamentNotActive, msg}}
	case errors.Is(err, model.ErrGuestListLocked):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeGuestListLocked, msg}}
	case errors.Is(err, model.ErrDuplicateGuestName):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeDuplicateGuestName, msg}}
	case errors.Is(err, model.ErrNotMember):
		return &httpError{http.StatusForbidden, APIError{CodeNotMember, msg}}
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, APIError{CodeValidation, msg}}

	// Not found
	case errors.Is(err, model.ErrTournamentNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeTournamentNotFound, "Tournament not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrClubNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeClubNotFound, "Club not found"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, msg}}

	// Conflicts
	case errors.Is(err, model.ErrAlreadyMember):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyMember, "Already a member of this club"}}
	case errors.Is(err, model.ErrVersionConflict):
		return &httpError{http.StatusConflict, APIError{CodeVersionConflict, "Tournament was modified concurrently, try again"}}
	case errors.Is(err, model.ErrConflict):
		return &httpError{http.StatusConflict, APIError{CodeConflict, msg}}

	case errors.Is(err, model.ErrRemote):
		return &httpError{http.StatusBadGateway, APIError{CodeRemoteError, "Storage backend unavailable"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
