package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/doublesclub/internal/api"
	"github.com/mcoot/doublesclub/internal/api/response"
	"github.com/mcoot/doublesclub/internal/factory"
	"github.com/mcoot/doublesclub/internal/model"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app := factory.NewTestApp()
	require.NoError(t, app.Coordinator.Start(t.Context()))
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		ClubController: app.ClubController,
		Coordinator:    app.Coordinator,
		HubManager:     app.HubManager,
		Sessions:       app.Sessions,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return resp.Error.Code
}

func (ts *testServer) register(t *testing.T, username, name string) response.AuthResponse {
	t.Helper()

	body := map[string]string{"username": username, "password": "password1", "name": name}
	rr := ts.request(http.MethodPost, "/api/v1/users/register", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.AuthResponse](t, rr)
}

// clubFixture is four registered members of one club
type clubFixture struct {
	club   response.Club
	tokens []string
	users  []response.User
}

func (ts *testServer) setupClub(t *testing.T) clubFixture {
	t.Helper()

	var f clubFixture
	for _, name := range []string{"Ann", "Bea", "Cat", "Dot"} {
		auth := ts.register(t, strings.ToLower(name), name)
		f.tokens = append(f.tokens, auth.SessionToken)
		f.users = append(f.users, auth.User)
	}

	rr := ts.request(http.MethodPost, "/api/v1/clubs", map[string]string{"name": "Riverside"}, f.tokens[0])
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	f.club = decode[response.Club](t, rr)

	for _, token := range f.tokens[1:] {
		rr = ts.request(http.MethodPost, "/api/v1/clubs/"+f.club.ID+"/join", nil, token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}
	return f
}

func (ts *testServer) createTournament(t *testing.T, f clubFixture, guests ...string) response.TournamentView {
	t.Helper()

	players := make([]string, len(f.users))
	for i, u := range f.users {
		players[i] = u.ID
	}
	body := map[string]any{
		"name":          "Friday Night",
		"club_id":       f.club.ID,
		"players":       players,
		"guest_players": guests,
	}
	rr := ts.request(http.MethodPost, "/api/v1/tournaments", body, f.tokens[0])
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.TournamentView](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	registerResp := ts.register(t, "alice", "Alice")
	assert.Equal(t, "Alice", registerResp.User.Name)
	assert.NotEmpty(t, registerResp.SessionToken)

	// Login
	loginBody := map[string]string{
		"username": "alice",
		"password": "password1",
	}
	rr := ts.request(http.MethodPost, "/api/v1/users/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	loginResp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, registerResp.User.ID, loginResp.User.ID)

	// Wrong password
	loginBody["password"] = "wrong-password"
	rr = ts.request(http.MethodPost, "/api/v1/users/login", loginBody, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rr))

	// Duplicate username
	body := map[string]string{"username": "alice", "password": "password1", "name": "Other"}
	rr = ts.request(http.MethodPost, "/api/v1/users/register", body, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetMeAndLogout(t *testing.T) {
	ts := newTestServer(t)
	auth := ts.register(t, "bob", "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/users/me", nil, auth.SessionToken)
	assert.Equal(t, http.StatusOK, rr.Code)
	me := decode[response.User](t, rr)
	assert.Equal(t, "Bob", me.Name)

	rr = ts.request(http.MethodPost, "/api/v1/users/logout", nil, auth.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/users/me", nil, auth.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/users/me", "/api/v1/clubs", "/api/v1/tournaments", "/api/v1/notifications"} {
		rr := ts.request(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := ts.request(http.MethodGet, "/api/v1/clubs", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClubMembership(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)

	rr := ts.request(http.MethodGet, "/api/v1/clubs/"+f.club.ID, nil, f.tokens[1])
	require.Equal(t, http.StatusOK, rr.Code)
	detail := decode[response.ClubDetail](t, rr)
	assert.Len(t, detail.Members, 4)

	// Joining twice conflicts
	rr = ts.request(http.MethodPost, "/api/v1/clubs/"+f.club.ID+"/join", nil, f.tokens[1])
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "ALREADY_MEMBER", errorCode(t, rr))

	// Joining activates the club for users without one
	rr = ts.request(http.MethodGet, "/api/v1/users/me", nil, f.tokens[2])
	me := decode[response.User](t, rr)
	assert.Equal(t, f.club.ID, me.ActiveClubID)

	// Outsiders can't read the leaderboard
	outsider := ts.register(t, "zed", "Zed")
	rr = ts.request(http.MethodGet, "/api/v1/clubs/"+f.club.ID+"/leaderboard", nil, outsider.SessionToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "NOT_MEMBER", errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/clubs/missing", nil, outsider.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTournament(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)

	view := ts.createTournament(t, f, "Eve")
	assert.Equal(t, "Friday Night", view.Name)
	assert.Equal(t, string(model.TournamentStatusActive), view.Status)
	assert.Len(t, view.Matches, 7)
	assert.Len(t, view.Ranking, 5)
	for _, m := range view.Matches {
		assert.Equal(t, string(model.MatchStatusPending), m.Status)
		assert.NotEmpty(t, m.Team1Names[0])
	}

	// Defaults to the active club when club_id is omitted
	rr := ts.request(http.MethodGet, "/api/v1/tournaments", nil, f.tokens[3])
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]response.Tournament](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, view.ID, list[0].ID)
}

func TestCreateTournamentValidation(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)

	// Too few participants
	body := map[string]any{"name": "Tiny", "players": []string{f.users[0].ID, f.users[1].ID}}
	rr := ts.request(http.MethodPost, "/api/v1/tournaments", body, f.tokens[0])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "INSUFFICIENT_PLAYERS", errorCode(t, rr))

	// Duplicate guest names
	body = map[string]any{"name": "Twins", "guest_players": []string{"Eve", "eve", "Fay", "Gus"}}
	rr = ts.request(http.MethodPost, "/api/v1/tournaments", body, f.tokens[0])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "DUPLICATE_GUEST_NAME", errorCode(t, rr))

	// Outsider without an active club
	outsider := ts.register(t, "zed", "Zed")
	rr = ts.request(http.MethodPost, "/api/v1/tournaments", map[string]any{"name": "Crash"}, outsider.SessionToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "NO_ACTIVE_CLUB", errorCode(t, rr))

	// Outsider naming the club
	body = map[string]any{"name": "Crash", "club_id": f.club.ID, "guest_players": []string{"A", "B", "C", "D"}}
	rr = ts.request(http.MethodPost, "/api/v1/tournaments", body, outsider.SessionToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Bad body
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tournaments", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+f.tokens[0])
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingScoresAndSave(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f)
	base := "/api/v1/tournaments/" + view.ID
	first, second := view.Matches[0].ID, view.Matches[1].ID

	// Pending edits show only to the session that made them
	rr := ts.request(http.MethodPut, base+"/matches/"+first+"/pending", map[string]any{"team1": 3, "team2": 1}, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	mine := decode[response.TournamentView](t, rr)
	assert.Equal(t, 1, mine.PendingCount)
	assert.True(t, mine.Matches[0].Pending)
	require.NotNil(t, mine.Matches[0].ScoreTeam1)
	assert.Equal(t, 3, *mine.Matches[0].ScoreTeam1)

	rr = ts.request(http.MethodGet, base, nil, f.tokens[1])
	theirs := decode[response.TournamentView](t, rr)
	assert.Zero(t, theirs.PendingCount)
	assert.Nil(t, theirs.Matches[0].ScoreTeam1)

	// Half-entered scores are kept but block saving
	rr = ts.request(http.MethodPut, base+"/matches/"+second+"/pending", map[string]any{"team1": 2, "team2": nil}, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodGet, base+"/pending", nil, f.tokens[0])
	pending := decode[[]response.PendingScore](t, rr)
	require.Len(t, pending, 2)

	rr = ts.request(http.MethodPost, base+"/save", nil, f.tokens[0])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "INVALID_SCORE", errorCode(t, rr))

	// Out of range scores are rejected at entry
	rr = ts.request(http.MethodPut, base+"/matches/"+second+"/pending", map[string]any{"team1": 5, "team2": nil}, f.tokens[0])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	// Discard, then save with the remaining edit
	rr = ts.request(http.MethodDelete, base+"/matches/"+second+"/pending", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, base+"/save", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decode[response.TournamentView](t, rr)
	assert.Zero(t, saved.PendingCount)
	assert.Equal(t, string(model.MatchStatusCompleted), saved.Matches[0].Status)

	// Everyone now sees the saved score and ranking
	rr = ts.request(http.MethodGet, base+"/ranking", nil, f.tokens[2])
	require.Equal(t, http.StatusOK, rr.Code)
	ranking := decode[[]response.RankingEntry](t, rr)
	total := 0
	for _, r := range ranking {
		total += r.Points
	}
	assert.Equal(t, 2*model.ScoreTotal, total)
	assert.Equal(t, 3, ranking[0].Points)
}

func TestSaveWithScoresBody(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f)
	base := "/api/v1/tournaments/" + view.ID

	body := map[string]any{"scores": map[string]any{
		view.Matches[0].ID: map[string]int{"team1": 2, "team2": 2},
		view.Matches[1].ID: map[string]int{"team1": 0, "team2": 4},
	}}
	rr := ts.request(http.MethodPost, base+"/save", body, f.tokens[1])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decode[response.TournamentView](t, rr)
	assert.Equal(t, string(model.MatchStatusCompleted), saved.Matches[0].Status)
	assert.Equal(t, string(model.MatchStatusCompleted), saved.Matches[1].Status)

	// A pair that does not sum to the total is rejected
	rr = ts.request(http.MethodPut, base+"/matches/"+view.Matches[2].ID+"/score", map[string]int{"team1": 3, "team2": 3}, f.tokens[1])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "INVALID_SCORE", errorCode(t, rr))
}

func TestSaveWithScoresBodyRejectsWholeBatch(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f)
	base := "/api/v1/tournaments/" + view.ID

	body := map[string]any{"scores": map[string]any{
		view.Matches[0].ID: map[string]int{"team1": 3, "team2": 1},
		"no-such-match":    map[string]int{"team1": 2, "team2": 2},
	}}
	rr := ts.request(http.MethodPost, base+"/save", body, f.tokens[0])
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "MATCH_NOT_FOUND", errorCode(t, rr))

	// Nothing from the rejected request is staged or written
	rr = ts.request(http.MethodGet, base+"/pending", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]response.PendingScore](t, rr))

	rr = ts.request(http.MethodPost, base+"/save", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	after := decode[response.TournamentView](t, rr)
	assert.Equal(t, string(model.MatchStatusPending), after.Matches[0].Status)
	assert.Nil(t, after.Matches[0].ScoreTeam1)
}

func TestSaveWithScoresBodyKeepsOtherPendingEdits(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f)
	base := "/api/v1/tournaments/" + view.ID
	first, second := view.Matches[0].ID, view.Matches[1].ID

	rr := ts.request(http.MethodPut, base+"/matches/"+first+"/pending", map[string]any{"team1": 1, "team2": 3}, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.request(http.MethodPut, base+"/matches/"+second+"/pending", map[string]any{"team1": 2, "team2": 2}, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := map[string]any{"scores": map[string]any{
		first: map[string]int{"team1": 3, "team2": 1},
	}}
	rr = ts.request(http.MethodPost, base+"/save", body, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decode[response.TournamentView](t, rr)
	assert.Equal(t, string(model.MatchStatusCompleted), saved.Matches[0].Status)
	require.NotNil(t, saved.Matches[0].ScoreTeam1)
	assert.Equal(t, 3, *saved.Matches[0].ScoreTeam1)
	assert.Equal(t, string(model.MatchStatusPending), saved.Matches[1].Status)
	assert.Equal(t, 1, saved.PendingCount)

	rr = ts.request(http.MethodGet, base+"/pending", nil, f.tokens[0])
	pending := decode[[]response.PendingScore](t, rr)
	require.Len(t, pending, 1)
	assert.Equal(t, second, pending[0].MatchID)
}

func TestCompleteAndReopen(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f)
	base := "/api/v1/tournaments/" + view.ID

	rr := ts.request(http.MethodPost, base+"/complete", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, string(model.TournamentStatusCompleted), decode[response.TournamentView](t, rr).Status)

	rr = ts.request(http.MethodPut, base+"/matches/"+view.Matches[0].ID+"/score", map[string]int{"team1": 4, "team2": 0}, f.tokens[0])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "TOURNAMENT_NOT_ACTIVE", errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/matches", map[string]bool{"balanced": false}, f.tokens[0])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.request(http.MethodPost, base+"/reopen", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, base+"/matches", map[string]bool{"balanced": true}, f.tokens[0])
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	grown := decode[response.TournamentView](t, rr)
	require.Len(t, grown.Matches, len(view.Matches)+1)

	added := grown.Matches[len(grown.Matches)-1].ID
	rr = ts.request(http.MethodDelete, base+"/matches/"+added, nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[response.TournamentView](t, rr).Matches, len(view.Matches))

	rr = ts.request(http.MethodDelete, base+"/matches/missing", nil, f.tokens[0])
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateAndDeleteTournament(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f, "Eve")
	base := "/api/v1/tournaments/" + view.ID

	rr := ts.request(http.MethodPatch, base, map[string]string{"name": "Saturday"}, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Saturday", decode[response.TournamentView](t, rr).Name)

	// Guests are locked once scheduled matches include them
	rr = ts.request(http.MethodPatch, base, map[string][]string{"guest_players": {"Eve", "Fay"}}, f.tokens[0])
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "GUEST_LIST_LOCKED", errorCode(t, rr))

	outsider := ts.register(t, "zed", "Zed")
	rr = ts.request(http.MethodDelete, base, nil, outsider.SessionToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodDelete, base, nil, f.tokens[0])
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, base, nil, f.tokens[0])
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "TOURNAMENT_NOT_FOUND", errorCode(t, rr))
}

func TestLeaderboardAndStats(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f)
	base := "/api/v1/tournaments/" + view.ID

	for _, m := range view.Matches {
		rr := ts.request(http.MethodPut, base+"/matches/"+m.ID+"/score", map[string]int{"team1": 3, "team2": 1}, f.tokens[0])
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := ts.request(http.MethodGet, "/api/v1/clubs/"+f.club.ID+"/leaderboard", nil, f.tokens[1])
	require.Equal(t, http.StatusOK, rr.Code)
	board := decode[[]response.PlayerStats](t, rr)
	require.Len(t, board, 4)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].AvgPointsPerMatch, board[i].AvgPointsPerMatch)
	}

	rr = ts.request(http.MethodGet, "/api/v1/clubs/"+f.club.ID+"/players/"+f.users[0].ID+"/stats", nil, f.tokens[1])
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[response.PlayerStats](t, rr)
	assert.Equal(t, f.users[0].ID, stats.PlayerID)
	assert.Equal(t, 1, stats.TournamentsPlayed)
	assert.Positive(t, stats.Matches)
	assert.NotEmpty(t, stats.Achievements)
}

func TestNotifications(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)
	view := ts.createTournament(t, f)

	rr := ts.request(http.MethodPost, "/api/v1/tournaments/"+view.ID+"/save", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/notifications", nil, f.tokens[0])
	require.Equal(t, http.StatusOK, rr.Code)
	notes := decode[[]response.Notification](t, rr)
	require.NotEmpty(t, notes)
	assert.Equal(t, "No scores to save", notes[len(notes)-1].Message)

	// Draining empties the inbox
	rr = ts.request(http.MethodGet, "/api/v1/notifications", nil, f.tokens[0])
	assert.Empty(t, decode[[]response.Notification](t, rr))

	// Other sessions have their own inbox
	rr = ts.request(http.MethodGet, "/api/v1/notifications", nil, f.tokens[1])
	assert.Empty(t, decode[[]response.Notification](t, rr))
}

func TestClubEventStream(t *testing.T) {
	ts := newTestServer(t)
	f := ts.setupClub(t)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/clubs/"+f.club.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.tokens[1])

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
		close(events)
	}()

	waitEvent := func(name string) {
		t.Helper()
		for {
			select {
			case got, ok := <-events:
				require.True(t, ok, "stream closed before %s", name)
				if got == name {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %s", name)
			}
		}
	}

	waitEvent("connected")
	require.Eventually(t, func() bool {
		hub := ts.app.HubManager.GetHub(model.ClubID(f.club.ID))
		return hub != nil && hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	ts.createTournament(t, f)
	waitEvent("tournaments")
}
