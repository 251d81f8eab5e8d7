package handler

import (
	"net/http"

	"github.com/mcoot/doublesclub/internal/api/middleware"
	"github.com/mcoot/doublesclub/internal/api/response"
)

// NotificationHandler hands out the caller's queued notifications
type NotificationHandler struct {
	sessions *Sessions
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(sessions *Sessions) *NotificationHandler {
	return &NotificationHandler{sessions: sessions}
}

// Drain handles GET /api/v1/notifications. Each notification is returned
// once.
func (h *NotificationHandler) Drain(w http.ResponseWriter, r *http.Request) {
	_, inbox := h.sessions.For(middleware.MustGetSession(r.Context()).Token)
	response.JSON(w, http.StatusOK, response.NotificationsFromModel(inbox.Drain()))
}
