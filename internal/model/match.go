package model

import "time"

// MatchID identifies a match within its tournament
type MatchID string

// MatchStatus represents the lifecycle of a single match
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusCompleted MatchStatus = "completed"
)

const (
	// MaxTeamScore is the highest score a single team can record
	MaxTeamScore = 4
	// ScoreTotal is the fixed sum of both team scores in a completed match
	ScoreTotal = 4
	// PlayersPerMatch is the number of distinct participants in a match
	PlayersPerMatch = 4
)

// Match is one 2-vs-2 fixture. Scores are nil until the match is completed.
type Match struct {
	ID         MatchID     `json:"id"`
	Team1      [2]PlayerID `json:"team1"`
	Team2      [2]PlayerID `json:"team2"`
	ScoreTeam1 *int        `json:"scoreTeam1"`
	ScoreTeam2 *int        `json:"scoreTeam2"`
	Status     MatchStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// ScorePair holds both team scores of a match
type ScorePair struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// NewMatch creates a pending match
func NewMatch(id MatchID, team1, team2 [2]PlayerID, createdAt time.Time) Match {
	return Match{
		ID:        id,
		Team1:     team1,
		Team2:     team2,
		Status:    MatchStatusPending,
		CreatedAt: createdAt,
	}
}

// Participants returns team1 followed by team2
func (m Match) Participants() []PlayerID {
	return []PlayerID{m.Team1[0], m.Team1[1], m.Team2[0], m.Team2[1]}
}

// HasParticipant reports whether the player is on either team
func (m Match) HasParticipant(id PlayerID) bool {
	return m.TeamOf(id) != 0
}

// TeamOf returns 1 or 2 for the player's team, or 0 if not in the match
func (m Match) TeamOf(id PlayerID) int {
	switch id {
	case m.Team1[0], m.Team1[1]:
		return 1
	case m.Team2[0], m.Team2[1]:
		return 2
	}
	return 0
}

// IsCompleted reports whether the match is completed with both scores set
func (m Match) IsCompleted() bool {
	return m.Status == MatchStatusCompleted && m.ScoreTeam1 != nil && m.ScoreTeam2 != nil
}

// TeamScore returns the recorded score of a team, or 0 when unset
func (m Match) TeamScore(team int) int {
	var s *int
	switch team {
	case 1:
		s = m.ScoreTeam1
	case 2:
		s = m.ScoreTeam2
	}
	if s == nil {
		return 0
	}
	return *s
}

// Scores returns the score pair when both scores are set
func (m Match) Scores() (ScorePair, bool) {
	if m.ScoreTeam1 == nil || m.ScoreTeam2 == nil {
		return ScorePair{}, false
	}
	return ScorePair{Team1: *m.ScoreTeam1, Team2: *m.ScoreTeam2}, true
}

// WithScores returns a completed copy of the match
func (m Match) WithScores(p ScorePair) Match {
	c := m.Clone()
	a, b := p.Team1, p.Team2
	c.ScoreTeam1 = &a
	c.ScoreTeam2 = &b
	c.Status = MatchStatusCompleted
	return c
}

// Clone returns a deep copy of the match
func (m Match) Clone() Match {
	c := m
	if m.ScoreTeam1 != nil {
		v := *m.ScoreTeam1
		c.ScoreTeam1 = &v
	}
	if m.ScoreTeam2 != nil {
		v := *m.ScoreTeam2
		c.ScoreTeam2 = &v
	}
	return c
}

// CloneMatches deep-copies a match list. A nil input yields an empty list.
func CloneMatches(ms []Match) []Match {
	out := make([]Match, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}
