package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/services/matchstate"
)

// Decode reads a JSON body into v. Numbers decode as json.Number so scores
// keep their original form until validated. An empty body leaves v zero.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateClubRequest is the request body for creating a club
type CreateClubRequest struct {
	Name string `json:"name"`
}

// CreateTournamentRequest is the request body for creating a tournament.
// ClubID defaults to the caller's active club.
type CreateTournamentRequest struct {
	Name         string   `json:"name"`
	ClubID       string   `json:"club_id,omitempty"`
	Players      []string `json:"players"`
	GuestPlayers []string `json:"guest_players"`
}

// PlayerIDs converts the member ids
func (r CreateTournamentRequest) PlayerIDs() []model.PlayerID {
	return toPlayerIDs(r.Players)
}

// MatchInput is a match as supplied in a whole-list update
type MatchInput struct {
	ID         string    `json:"id"`
	Team1      [2]string `json:"team1"`
	Team2      [2]string `json:"team2"`
	ScoreTeam1 any       `json:"score_team1"`
	ScoreTeam2 any       `json:"score_team2"`
	Status     string    `json:"status"`
}

// UpdateTournamentRequest merges fields into a tournament. Matches, when
// present, replaces the entire list.
type UpdateTournamentRequest struct {
	Name         *string       `json:"name,omitempty"`
	Players      *[]string     `json:"players,omitempty"`
	GuestPlayers *[]string     `json:"guest_players,omitempty"`
	Matches      *[]MatchInput `json:"matches,omitempty"`
	Status       *string       `json:"status,omitempty"`
}

// Patch converts the request into a tournament patch. existing supplies
// creation times for matches that keep their id.
func (r UpdateTournamentRequest) Patch(existing *model.Tournament) (model.TournamentPatch, error) {
	var p model.TournamentPatch
	p.Name = r.Name
	if r.Players != nil {
		ids := toPlayerIDs(*r.Players)
		p.Players = &ids
	}
	if r.GuestPlayers != nil {
		guests := append([]string{}, *r.GuestPlayers...)
		p.GuestPlayers = &guests
	}
	if r.Status != nil {
		st := model.TournamentStatus(*r.Status)
		p.Status = &st
	}
	if r.Matches != nil {
		matches := make([]model.Match, len(*r.Matches))
		for i, in := range *r.Matches {
			m := model.Match{
				ID:     model.MatchID(in.ID),
				Team1:  [2]model.PlayerID{model.PlayerID(in.Team1[0]), model.PlayerID(in.Team1[1])},
				Team2:  [2]model.PlayerID{model.PlayerID(in.Team2[0]), model.PlayerID(in.Team2[1])},
				Status: model.MatchStatus(in.Status),
			}
			if m.Status == "" {
				m.Status = model.MatchStatusPending
			}
			var err error
			if m.ScoreTeam1, err = optionalScore(in.ScoreTeam1); err != nil {
				return p, err
			}
			if m.ScoreTeam2, err = optionalScore(in.ScoreTeam2); err != nil {
				return p, err
			}
			if existing != nil {
				if prev := existing.FindMatch(m.ID); prev != nil {
					m.CreatedAt = prev.CreatedAt
				}
			}
			matches[i] = m
		}
		p.Matches = &matches
	}
	return p, nil
}

// AddMatchRequest is the request body for adding a match
type AddMatchRequest struct {
	Balanced bool `json:"balanced"`
}

// ScoreRequest carries both team scores. Values may be numbers or numeric
// strings.
type ScoreRequest struct {
	Team1 any `json:"team1"`
	Team2 any `json:"team2"`
}

// Pair validates and converts the scores
func (r ScoreRequest) Pair() (model.ScorePair, error) {
	return matchstate.ParseScorePair(r.Team1, r.Team2)
}

// PendingScoreRequest sets an unsaved score edit. Either side may be null.
type PendingScoreRequest struct {
	Team1 any `json:"team1"`
	Team2 any `json:"team2"`
}

// Sides converts each present side to an integer
func (r PendingScoreRequest) Sides() (*int, *int, error) {
	t1, err := optionalScore(r.Team1)
	if err != nil {
		return nil, nil, err
	}
	t2, err := optionalScore(r.Team2)
	if err != nil {
		return nil, nil, err
	}
	return t1, t2, nil
}

// SaveScoresRequest completes the listed matches in one write. Pending
// edits for other matches are left alone.
type SaveScoresRequest struct {
	Scores map[string]ScoreRequest `json:"scores"`
}

// Edits validates every score and keys them by match id
func (r SaveScoresRequest) Edits() (map[model.MatchID]model.ScorePair, error) {
	edits := make(map[model.MatchID]model.ScorePair, len(r.Scores))
	for id, s := range r.Scores {
		pair, err := s.Pair()
		if err != nil {
			return nil, err
		}
		edits[model.MatchID(id)] = pair
	}
	return edits, nil
}

func optionalScore(v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	n, err := matchstate.ParseScore(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func toPlayerIDs(ids []string) []model.PlayerID {
	out := make([]model.PlayerID, len(ids))
	for i, id := range ids {
		out[i] = model.PlayerID(id)
	}
	return out
}
