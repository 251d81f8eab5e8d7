package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/doublesclub/internal/api/middleware"
	"github.com/mcoot/doublesclub/internal/api/request"
	"github.com/mcoot/doublesclub/internal/api/response"
	"github.com/mcoot/doublesclub/internal/coordinator"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/services/auth"
	"github.com/mcoot/doublesclub/internal/services/club"
	"github.com/mcoot/doublesclub/internal/services/tournament"
)

// TournamentHandler handles tournaments, their matches and score entry.
// Reads come from the coordinator mirror; writes go through the caller's
// coordinator session so pending edits and notifications stay per client.
type TournamentHandler struct {
	authService *auth.Service
	clubs       *club.Controller
	coord       *coordinator.Coordinator
	sessions    *Sessions
}

// NewTournamentHandler creates a new tournament handler
func NewTournamentHandler(authService *auth.Service, clubs *club.Controller, coord *coordinator.Coordinator, sessions *Sessions) *TournamentHandler {
	return &TournamentHandler{
		authService: authService,
		clubs:       clubs,
		coord:       coord,
		sessions:    sessions,
	}
}

// session returns the caller's coordinator session
func (h *TournamentHandler) session(r *http.Request) *coordinator.Session {
	s, _ := h.sessions.For(middleware.MustGetSession(r.Context()).Token)
	return s
}

// authorize loads the tournament named in the path from the mirror and
// checks the caller belongs to its club
func (h *TournamentHandler) authorize(r *http.Request) (*model.Tournament, error) {
	id := model.TournamentID(mux.Vars(r)["tournament_id"])
	t, err := h.coord.Tournament(id)
	if err != nil {
		return nil, err
	}
	if _, err := memberClub(r.Context(), h.clubs, t.ClubID, middleware.UserID(r.Context())); err != nil {
		return nil, err
	}
	return t, nil
}

// writeView responds with the caller's view of a tournament
func (h *TournamentHandler) writeView(w http.ResponseWriter, r *http.Request, status int, id model.TournamentID) {
	view, err := h.session(r).View(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, status, response.TournamentViewFromModel(view))
}

// resolveClub returns the requested club, or the caller's active club
func (h *TournamentHandler) resolveClub(r *http.Request, requested string) (model.ClubID, error) {
	if requested != "" {
		return model.ClubID(requested), nil
	}
	user, err := h.authService.CurrentUser(r.Context(), middleware.MustGetSession(r.Context()).Token)
	if err != nil {
		return "", err
	}
	if user.ActiveClubID == "" {
		return "", model.ErrNoActiveClub
	}
	return user.ActiveClubID, nil
}

// Create handles POST /api/v1/tournaments
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateTournamentRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	clubID, err := h.resolveClub(r, req.ClubID)
	if err != nil {
		WriteError(w, err)
		return
	}
	userID := middleware.UserID(r.Context())
	if _, err := memberClub(r.Context(), h.clubs, clubID, userID); err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.session(r).CreateTournament(r.Context(), tournament.CreateInput{
		Name:         req.Name,
		ClubID:       clubID,
		CreatedBy:    userID,
		Players:      req.PlayerIDs(),
		GuestPlayers: req.GuestPlayers,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	h.writeView(w, r, http.StatusCreated, t.ID)
}

// List handles GET /api/v1/tournaments?club_id=
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	clubID, err := h.resolveClub(r, r.URL.Query().Get("club_id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if _, err := memberClub(r.Context(), h.clubs, clubID, middleware.UserID(r.Context())); err != nil {
		WriteError(w, err)
		return
	}

	ts := h.coord.Tournaments(clubID)
	response.JSON(w, http.StatusOK, response.TournamentsFromModel(ts, h.coord.UserNames()))
}

// Get handles GET /api/v1/tournaments/{tournament_id}
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}

// Update handles PATCH /api/v1/tournaments/{tournament_id}
func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.UpdateTournamentRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	patch, err := req.Patch(t)
	if err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.session(r).Update(r.Context(), t.ID, patch); err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}

// Delete handles DELETE /api/v1/tournaments/{tournament_id}
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.session(r).DeleteTournament(r.Context(), t.ID); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Complete handles POST /api/v1/tournaments/{tournament_id}/complete
func (h *TournamentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.session(r).Complete(r.Context(), t.ID); err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}

// Reopen handles POST /api/v1/tournaments/{tournament_id}/reopen
func (h *TournamentHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.session(r).Reopen(r.Context(), t.ID); err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}

// Ranking handles GET /api/v1/tournaments/{tournament_id}/ranking
func (h *TournamentHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	view, err := h.session(r).View(t.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RankingFromView(view.Ranking))
}

// AddMatch handles POST /api/v1/tournaments/{tournament_id}/matches
func (h *TournamentHandler) AddMatch(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.AddMatchRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if _, err := h.session(r).AddMatch(r.Context(), t.ID, req.Balanced); err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusCreated, t.ID)
}

// DeleteMatch handles DELETE /api/v1/tournaments/{tournament_id}/matches/{match_id}
func (h *TournamentHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	matchID := model.MatchID(mux.Vars(r)["match_id"])

	if _, err := h.session(r).DeleteMatch(r.Context(), t.ID, matchID); err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}

// SetScore handles PUT /api/v1/tournaments/{tournament_id}/matches/{match_id}/score,
// completing the match immediately
func (h *TournamentHandler) SetScore(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	matchID := model.MatchID(mux.Vars(r)["match_id"])

	var req request.ScoreRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	pair, err := req.Pair()
	if err != nil {
		WriteError(w, err)
		return
	}

	if _, err := h.session(r).CompleteMatch(r.Context(), t.ID, matchID, pair); err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}

// SetPending handles PUT /api/v1/tournaments/{tournament_id}/matches/{match_id}/pending
func (h *TournamentHandler) SetPending(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	matchID := model.MatchID(mux.Vars(r)["match_id"])

	var req request.PendingScoreRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	team1, team2, err := req.Sides()
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.session(r).SetScore(t.ID, matchID, team1, team2); err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}

// DiscardPending handles DELETE /api/v1/tournaments/{tournament_id}/matches/{match_id}/pending
func (h *TournamentHandler) DiscardPending(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	matchID := model.MatchID(mux.Vars(r)["match_id"])

	h.session(r).DiscardScore(t.ID, matchID)
	h.writeView(w, r, http.StatusOK, t.ID)
}

// ListPending handles GET /api/v1/tournaments/{tournament_id}/pending
func (h *TournamentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PendingFromModel(h.session(r).PendingEdits(t.ID)))
}

// Save handles POST /api/v1/tournaments/{tournament_id}/save. With a body
// only the listed scores are saved and other pending edits are kept; without
// one the session's pending edits are saved.
func (h *TournamentHandler) Save(w http.ResponseWriter, r *http.Request) {
	t, err := h.authorize(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.SaveScoresRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session := h.session(r)
	if len(req.Scores) > 0 {
		edits, editErr := req.Edits()
		if editErr != nil {
			WriteError(w, editErr)
			return
		}
		_, err = session.SaveScores(r.Context(), t.ID, edits)
	} else {
		_, err = session.Save(r.Context(), t.ID)
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	h.writeView(w, r, http.StatusOK, t.ID)
}
