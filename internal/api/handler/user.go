package handler

import (
	"net/http"

	"github.com/mcoot/doublesclub/internal/api/middleware"
	"github.com/mcoot/doublesclub/internal/api/request"
	"github.com/mcoot/doublesclub/internal/api/response"
	"github.com/mcoot/doublesclub/internal/services/auth"
)

// UserHandler handles registration, login and the current user
type UserHandler struct {
	authService *auth.Service
	sessions    *Sessions
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService *auth.Service, sessions *Sessions) *UserHandler {
	return &UserHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// Register handles POST /api/v1/users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, user, err := h.authService.Register(r.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session, user))
}

// Login handles POST /api/v1/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session, user))
}

// Logout handles POST /api/v1/users/logout. Unsaved score edits are lost.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	h.sessions.End(session.Token)
	h.authService.Logout(session.Token)
	response.NoContent(w)
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	user, err := h.authService.CurrentUser(r.Context(), session.Token)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}
