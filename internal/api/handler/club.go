package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/doublesclub/internal/api/middleware"
	"github.com/mcoot/doublesclub/internal/api/request"
	"github.com/mcoot/doublesclub/internal/api/response"
	"github.com/mcoot/doublesclub/internal/coordinator"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/push"
	"github.com/mcoot/doublesclub/internal/services/club"
	"github.com/mcoot/doublesclub/internal/services/ranking"
)

// ClubHandler handles clubs, membership, club statistics and live events
type ClubHandler struct {
	clubs      *club.Controller
	coord      *coordinator.Coordinator
	hubManager *push.HubManager
	logger     *slog.Logger
}

// NewClubHandler creates a new club handler
func NewClubHandler(clubs *club.Controller, coord *coordinator.Coordinator, hubManager *push.HubManager, logger *slog.Logger) *ClubHandler {
	return &ClubHandler{
		clubs:      clubs,
		coord:      coord,
		hubManager: hubManager,
		logger:     logger,
	}
}

// memberClub loads a club and checks the caller belongs to it
func memberClub(ctx context.Context, clubs *club.Controller, id model.ClubID, userID model.UserID) (*model.Club, error) {
	c, err := clubs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.HasMember(userID) {
		return nil, fmt.Errorf("%w: club %s", model.ErrNotMember, id)
	}
	return c, nil
}

// Create handles POST /api/v1/clubs
func (h *ClubHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateClubRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	c, err := h.clubs.Create(r.Context(), middleware.UserID(r.Context()), req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ClubFromModel(c))
}

// List handles GET /api/v1/clubs
func (h *ClubHandler) List(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.clubs.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ClubsFromModel(clubs))
}

// Get handles GET /api/v1/clubs/{club_id}
func (h *ClubHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.ClubID(mux.Vars(r)["club_id"])

	c, err := h.clubs.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	members, err := h.clubs.Members(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ClubDetailFromModel(c, members))
}

// Join handles POST /api/v1/clubs/{club_id}/join
func (h *ClubHandler) Join(w http.ResponseWriter, r *http.Request) {
	id := model.ClubID(mux.Vars(r)["club_id"])

	c, err := h.clubs.Join(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ClubFromModel(c))
}

// Leave handles POST /api/v1/clubs/{club_id}/leave
func (h *ClubHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id := model.ClubID(mux.Vars(r)["club_id"])

	c, err := h.clubs.Leave(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ClubFromModel(c))
}

// Activate handles POST /api/v1/clubs/{club_id}/activate
func (h *ClubHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := model.ClubID(mux.Vars(r)["club_id"])

	user, err := h.clubs.SetActiveClub(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UserFromModel(user))
}

// Leaderboard handles GET /api/v1/clubs/{club_id}/leaderboard
func (h *ClubHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	id := model.ClubID(mux.Vars(r)["club_id"])

	if _, err := memberClub(r.Context(), h.clubs, id, middleware.UserID(r.Context())); err != nil {
		WriteError(w, err)
		return
	}
	members, err := h.clubs.Members(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	board := ranking.ClubLeaderboard(h.coord.Tournaments(id), id, members)
	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(board))
}

// PlayerStats handles GET /api/v1/clubs/{club_id}/players/{user_id}/stats
func (h *ClubHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := model.ClubID(vars["club_id"])
	target := model.UserID(vars["user_id"])

	c, err := memberClub(r.Context(), h.clubs, id, middleware.UserID(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	if !c.HasMember(target) {
		WriteError(w, fmt.Errorf("%w: %s", model.ErrUserNotFound, target))
		return
	}
	members, err := h.clubs.Members(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	var name string
	for _, m := range members {
		if m.ID == target {
			name = m.Name
		}
	}

	stats := ranking.ComputeClubAggregateStats(h.coord.Tournaments(id), id, model.MemberPlayerID(target), name)
	out := response.PlayerStatsFromModel(stats)
	out.Achievements = response.AchievementsFromModel(ranking.AchievementProgress(stats))
	response.JSON(w, http.StatusOK, out)
}

// Events handles GET /api/v1/clubs/{club_id}/events as a server-sent event
// stream of the club's tournaments
func (h *ClubHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := model.ClubID(mux.Vars(r)["club_id"])
	userID := middleware.UserID(r.Context())

	if _, err := memberClub(r.Context(), h.clubs, id, userID); err != nil {
		WriteError(w, err)
		return
	}

	push.ServeSSE(w, r, h.hubManager, id, userID)
}

// WebSocket handles GET /api/v1/clubs/{club_id}/ws
func (h *ClubHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	id := model.ClubID(mux.Vars(r)["club_id"])
	userID := middleware.UserID(r.Context())

	if _, err := memberClub(r.Context(), h.clubs, id, userID); err != nil {
		WriteError(w, err)
		return
	}

	push.ServeWS(w, r, h.hubManager, id, userID, h.logger)
}
