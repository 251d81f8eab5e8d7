package response

import (
	"slices"
	"time"

	"github.com/thoas/go-funk"

	"github.com/mcoot/doublesclub/internal/coordinator"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/services/auth"
)

// User represents a user in API responses
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	ActiveClubID string    `json:"active_club_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:           string(u.ID),
		Name:         u.Name,
		Username:     u.Username,
		ActiveClubID: string(u.ActiveClubID),
		CreatedAt:    u.CreatedAt,
	}
}

// UsersFromModel converts a list of users
func UsersFromModel(us []*model.User) []User {
	return funk.Map(us, UserFromModel).([]User)
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session, u *model.User) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(u),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Club represents a club in API responses
type Club struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"member_ids"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ClubFromModel converts a model.Club
func ClubFromModel(c *model.Club) Club {
	return Club{
		ID:        string(c.ID),
		Name:      c.Name,
		MemberIDs: funk.Map(c.MemberIDs, func(id model.UserID) string { return string(id) }).([]string),
		CreatedBy: string(c.CreatedBy),
		CreatedAt: c.CreatedAt,
	}
}

// ClubsFromModel converts a list of clubs
func ClubsFromModel(cs []*model.Club) []Club {
	return funk.Map(cs, ClubFromModel).([]Club)
}

// ClubDetail is a club with its resolved members
type ClubDetail struct {
	Club
	Members []User `json:"members"`
}

// ClubDetailFromModel converts a club and its members
func ClubDetailFromModel(c *model.Club, members []*model.User) ClubDetail {
	return ClubDetail{
		Club:    ClubFromModel(c),
		Members: UsersFromModel(members),
	}
}

// Match represents a match in API responses. Pending is set when the score
// shown is an unsaved edit.
type Match struct {
	ID         string    `json:"id"`
	Team1      [2]string `json:"team1"`
	Team2      [2]string `json:"team2"`
	Team1Names [2]string `json:"team1_names"`
	Team2Names [2]string `json:"team2_names"`
	ScoreTeam1 *int      `json:"score_team1"`
	ScoreTeam2 *int      `json:"score_team2"`
	Status     string    `json:"status"`
	Pending    bool      `json:"pending,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchFromModel converts a model.Match, resolving names through t
func MatchFromModel(t *model.Tournament, m model.Match, names map[model.UserID]string) Match {
	return Match{
		ID:         string(m.ID),
		Team1:      [2]string{string(m.Team1[0]), string(m.Team1[1])},
		Team2:      [2]string{string(m.Team2[0]), string(m.Team2[1])},
		Team1Names: [2]string{t.ResolvePlayer(m.Team1[0], names), t.ResolvePlayer(m.Team1[1], names)},
		Team2Names: [2]string{t.ResolvePlayer(m.Team2[0], names), t.ResolvePlayer(m.Team2[1], names)},
		ScoreTeam1: m.ScoreTeam1,
		ScoreTeam2: m.ScoreTeam2,
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt,
	}
}

// MatchFromView converts a session match view
func MatchFromView(v coordinator.MatchView) Match {
	return Match{
		ID:         string(v.ID),
		Team1:      [2]string{string(v.Team1[0]), string(v.Team1[1])},
		Team2:      [2]string{string(v.Team2[0]), string(v.Team2[1])},
		Team1Names: v.Team1Names,
		Team2Names: v.Team2Names,
		ScoreTeam1: v.ScoreTeam1,
		ScoreTeam2: v.ScoreTeam2,
		Status:     string(v.Status),
		Pending:    v.Pending,
		CreatedAt:  v.CreatedAt,
	}
}

// Tournament represents a tournament in API responses
type Tournament struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ClubID       string    `json:"club_id"`
	CreatedBy    string    `json:"created_by"`
	Players      []string  `json:"players"`
	GuestPlayers []string  `json:"guest_players"`
	Matches      []Match   `json:"matches"`
	Status       string    `json:"status"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TournamentFromModel converts a model.Tournament. names resolves member
// display names and may be nil.
func TournamentFromModel(t *model.Tournament, names map[model.UserID]string) Tournament {
	guests := t.GuestPlayers
	if guests == nil {
		guests = []string{}
	}
	return Tournament{
		ID:           string(t.ID),
		Name:         t.Name,
		ClubID:       string(t.ClubID),
		CreatedBy:    string(t.CreatedBy),
		Players:      funk.Map(t.Players, func(id model.PlayerID) string { return string(id) }).([]string),
		GuestPlayers: guests,
		Matches: funk.Map(t.Matches, func(m model.Match) Match {
			return MatchFromModel(t, m, names)
		}).([]Match),
		Status:    string(t.Status),
		Version:   t.Version,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TournamentsFromModel converts a list of tournaments
func TournamentsFromModel(ts []*model.Tournament, names map[model.UserID]string) []Tournament {
	return funk.Map(ts, func(t *model.Tournament) Tournament {
		return TournamentFromModel(t, names)
	}).([]Tournament)
}

// RankingEntry is one row of a tournament ranking
type RankingEntry struct {
	PlayerID          string  `json:"player_id"`
	Name              string  `json:"name"`
	Points            int     `json:"points"`
	Matches           int     `json:"matches"`
	Wins              int     `json:"wins"`
	AvgPointsPerMatch float64 `json:"avg_points_per_match"`
	WinRate           int     `json:"win_rate"`
}

// RankingFromView converts resolved ranking rows
func RankingFromView(rs []coordinator.RankingView) []RankingEntry {
	return funk.Map(rs, func(r coordinator.RankingView) RankingEntry {
		return RankingEntry{
			PlayerID:          string(r.PlayerID),
			Name:              r.Name,
			Points:            r.Points,
			Matches:           r.Matches,
			Wins:              r.Wins,
			AvgPointsPerMatch: r.AvgPointsPerMatch,
			WinRate:           r.WinRate,
		}
	}).([]RankingEntry)
}

// TournamentView is a tournament as one session sees it
type TournamentView struct {
	Tournament
	Ranking      []RankingEntry `json:"ranking"`
	PendingCount int            `json:"pending_count"`
}

// TournamentViewFromModel converts a session view. Matches carry the
// merged pending scores.
func TournamentViewFromModel(v *coordinator.TournamentView) TournamentView {
	t := TournamentFromModel(v.Tournament, nil)
	t.Matches = funk.Map(v.Matches, MatchFromView).([]Match)
	return TournamentView{
		Tournament:   t,
		Ranking:      RankingFromView(v.Ranking),
		PendingCount: v.PendingCount,
	}
}

// Achievement is an achievement with the player's progress towards it
type Achievement struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Metric      string  `json:"metric"`
	Threshold   int     `json:"threshold"`
	Value       int     `json:"value"`
	Progress    float64 `json:"progress"`
	Unlocked    bool    `json:"unlocked"`
}

// AchievementsFromModel converts achievement progress
func AchievementsFromModel(as []model.AchievementStatus) []Achievement {
	return funk.Map(as, func(a model.AchievementStatus) Achievement {
		return Achievement{
			ID:          a.Definition.ID,
			Name:        a.Definition.Name,
			Description: a.Definition.Description,
			Metric:      string(a.Definition.Metric),
			Threshold:   a.Definition.Threshold,
			Value:       a.Value,
			Progress:    a.Progress,
			Unlocked:    a.Unlocked,
		}
	}).([]Achievement)
}

// PlayerStats is a player's aggregate across a club
type PlayerStats struct {
	PlayerID          string        `json:"player_id"`
	DisplayName       string        `json:"display_name"`
	TournamentsPlayed int           `json:"tournaments_played"`
	Matches           int           `json:"matches"`
	Wins              int           `json:"wins"`
	Points            int           `json:"points"`
	BestMatchScore    int           `json:"best_match_score"`
	WinRate           int           `json:"win_rate"`
	AvgPointsPerMatch float64       `json:"avg_points_per_match"`
	Achievements      []Achievement `json:"achievements,omitempty"`
}

// PlayerStatsFromModel converts model.PlayerStats without achievements
func PlayerStatsFromModel(s model.PlayerStats) PlayerStats {
	return PlayerStats{
		PlayerID:          string(s.PlayerID),
		DisplayName:       s.DisplayName,
		TournamentsPlayed: s.TournamentsPlayed,
		Matches:           s.Matches,
		Wins:              s.Wins,
		Points:            s.Points,
		BestMatchScore:    s.BestMatchScore,
		WinRate:           s.WinRate,
		AvgPointsPerMatch: s.AvgPointsPerMatch,
	}
}

// LeaderboardFromModel converts a club leaderboard
func LeaderboardFromModel(stats []model.PlayerStats) []PlayerStats {
	return funk.Map(stats, PlayerStatsFromModel).([]PlayerStats)
}

// Notification is a transient message for the client
type Notification struct {
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationsFromModel converts drained notifications
func NotificationsFromModel(ns []model.Notification) []Notification {
	return funk.Map(ns, func(n model.Notification) Notification {
		return Notification{
			Message:   n.Message,
			Level:     string(n.Level),
			CreatedAt: n.CreatedAt,
		}
	}).([]Notification)
}

// PendingScore is one unsaved score edit
type PendingScore struct {
	MatchID string `json:"match_id"`
	Team1   *int   `json:"team1"`
	Team2   *int   `json:"team2"`
}

// PendingFromModel converts a session's pending edits
func PendingFromModel(edits map[model.MatchID]coordinator.PendingScore) []PendingScore {
	ids := funk.Keys(edits).([]model.MatchID)
	slices.Sort(ids)
	out := make([]PendingScore, 0, len(ids))
	for _, id := range ids {
		p := edits[id]
		out = append(out, PendingScore{MatchID: string(id), Team1: p.Team1, Team2: p.Team2})
	}
	return out
}
