package matchstate

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/mcoot/doublesclub/internal/model"
)

// ValidateScorePair checks the fixed-sum rule: both scores in
// [0, MaxTeamScore] and summing to ScoreTotal
func ValidateScorePair(a, b int) error {
	if a < 0 || a > model.MaxTeamScore || b < 0 || b > model.MaxTeamScore {
		return fmt.Errorf("%w: scores must be between 0 and %d, got %d and %d", model.ErrInvalidScore, model.MaxTeamScore, a, b)
	}
	if a+b != model.ScoreTotal {
		return fmt.Errorf("%w: scores must add up to %d, got %d and %d", model.ErrInvalidScore, model.ScoreTotal, a, b)
	}
	return nil
}

// ParseScore converts loosely typed input (decoded JSON, form values) into an
// integer score. Fractions, non-numeric values and nil are rejected.
func ParseScore(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: score is missing", model.ErrInvalidScore)
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return floatScore(n)
	case float32:
		return floatScore(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", model.ErrInvalidScore, n.String())
		}
		return floatScore(f)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a whole number", model.ErrInvalidScore, n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: unsupported score type %T", model.ErrInvalidScore, v)
}

func floatScore(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not a whole number", model.ErrInvalidScore, f)
	}
	return int(f), nil
}

// ParseScorePair parses and validates both scores
func ParseScorePair(a, b any) (model.ScorePair, error) {
	s1, err := ParseScore(a)
	if err != nil {
		return model.ScorePair{}, err
	}
	s2, err := ParseScore(b)
	if err != nil {
		return model.ScorePair{}, err
	}
	if err := ValidateScorePair(s1, s2); err != nil {
		return model.ScorePair{}, err
	}
	return model.ScorePair{Team1: s1, Team2: s2}, nil
}

// CompleteMatch returns a copy of matches with the given match completed.
// Completing an already completed match overwrites its scores.
func CompleteMatch(matches []model.Match, id model.MatchID, pair model.ScorePair) ([]model.Match, error) {
	return BatchCompleteMatches(matches, map[model.MatchID]model.ScorePair{id: pair})
}

// BatchCompleteMatches validates every edit before applying any. On error the
// input is untouched and nothing is returned; on success a new slice is
// returned with every edited match completed.
func BatchCompleteMatches(matches []model.Match, edits map[model.MatchID]model.ScorePair) ([]model.Match, error) {
	ids := make([]model.MatchID, 0, len(edits))
	for id := range edits {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	index := make(map[model.MatchID]int, len(matches))
	for i, m := range matches {
		index[m.ID] = i
	}

	for _, id := range ids {
		if _, ok := index[id]; !ok {
			return nil, fmt.Errorf("%w: %s", model.ErrMatchNotFound, id)
		}
		pair := edits[id]
		if err := ValidateScorePair(pair.Team1, pair.Team2); err != nil {
			return nil, fmt.Errorf("match %s: %w", id, err)
		}
	}

	out := model.CloneMatches(matches)
	for _, id := range ids {
		i := index[id]
		out[i] = out[i].WithScores(edits[id])
	}
	return out, nil
}

// DeleteMatch returns the tournament's matches without the given match.
// Only active tournaments accept deletions.
func DeleteMatch(t *model.Tournament, id model.MatchID) ([]model.Match, error) {
	if !t.IsActive() {
		return nil, model.ErrTournamentNotActive
	}
	i := t.MatchIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrMatchNotFound, id)
	}
	out := model.CloneMatches(t.Matches)
	return slices.Delete(out, i, i+1), nil
}

// ValidateMatch checks the structural invariants of one match against its
// tournament: four distinct known participants and consistent scores.
func ValidateMatch(t *model.Tournament, m model.Match) error {
	if m.ID == "" {
		return fmt.Errorf("%w: match id is required", model.ErrInvalidMatch)
	}

	seen := make(map[model.PlayerID]bool, model.PlayersPerMatch)
	for _, p := range m.Participants() {
		if p == "" {
			return fmt.Errorf("%w: match %s has an empty slot", model.ErrInvalidMatch, m.ID)
		}
		if seen[p] {
			return fmt.Errorf("%w: match %s lists %s twice", model.ErrInvalidMatch, m.ID, p)
		}
		seen[p] = true
		if !t.IsParticipant(p) {
			return fmt.Errorf("%w: %s in match %s", model.ErrUnknownPlayer, p, m.ID)
		}
	}

	switch m.Status {
	case model.MatchStatusPending:
		if m.ScoreTeam1 != nil || m.ScoreTeam2 != nil {
			return fmt.Errorf("%w: pending match %s has scores", model.ErrInvalidMatch, m.ID)
		}
	case model.MatchStatusCompleted:
		pair, ok := m.Scores()
		if !ok {
			return fmt.Errorf("%w: completed match %s is missing a score", model.ErrInvalidMatch, m.ID)
		}
		if err := ValidateScorePair(pair.Team1, pair.Team2); err != nil {
			return fmt.Errorf("match %s: %w", m.ID, err)
		}
	default:
		return fmt.Errorf("%w: match %s has status %q", model.ErrInvalidStatus, m.ID, m.Status)
	}
	return nil
}

// ValidateMatches validates every match and requires unique ids
func ValidateMatches(t *model.Tournament, matches []model.Match) error {
	ids := make(map[model.MatchID]bool, len(matches))
	for _, m := range matches {
		if ids[m.ID] {
			return fmt.Errorf("%w: duplicate match id %s", model.ErrInvalidMatch, m.ID)
		}
		ids[m.ID] = true
		if err := ValidateMatch(t, m); err != nil {
			return err
		}
	}
	return nil
}
