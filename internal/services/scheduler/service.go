package scheduler

import (
	"slices"

	"github.com/mcoot/doublesclub/internal/dependencies/clock"
	"github.com/mcoot/doublesclub/internal/dependencies/idgen"
	"github.com/mcoot/doublesclub/internal/dependencies/random"
	"github.com/mcoot/doublesclub/internal/model"
)

const (
	// MinMatches is the fewest matches an initial schedule contains
	MinMatches = 4
	// MaxMatches is the most matches an initial schedule contains
	MaxMatches = 7
)

// Service builds 2-vs-2 pairings from a participant pool
type Service struct {
	clock  clock.Clock
	random random.Random
	ids    idgen.Generator
}

// New creates a new scheduler Service
func New(clock clock.Clock, random random.Random, ids idgen.Generator) *Service {
	return &Service{
		clock:  clock,
		random: random,
		ids:    ids,
	}
}

// MatchCount returns how many matches an initial schedule has for n players:
// floor(n*1.5) clamped to [MinMatches, MaxMatches]
func MatchCount(n int) int {
	return min(max(n*3/2, MinMatches), MaxMatches)
}

// PlayCounts returns how many matches each player appears in
func PlayCounts(matches []model.Match) map[model.PlayerID]int {
	counts := make(map[model.PlayerID]int)
	for _, m := range matches {
		for _, p := range m.Participants() {
			counts[p]++
		}
	}
	return counts
}

// GenerateInitialMatches builds the opening schedule. Each round takes the
// four least-played participants (ties keep pool order), shuffles them and
// splits them into two teams. Fewer than four participants yields no matches.
func (s *Service) GenerateInitialMatches(participants []model.PlayerID) []model.Match {
	pool := dedupe(participants)
	if len(pool) < model.PlayersPerMatch {
		return []model.Match{}
	}

	count := MatchCount(len(pool))
	played := make(map[model.PlayerID]int, len(pool))
	matches := make([]model.Match, 0, count)

	for range count {
		picked := leastPlayed(pool, played)
		matches = append(matches, s.newMatch(picked))
		for _, p := range picked {
			played[p]++
		}
	}
	return matches
}

// AddAdditionalMatch appends one match of four randomly chosen participants.
// Play counts are ignored. The returned slice is new; existing is not modified.
func (s *Service) AddAdditionalMatch(participants []model.PlayerID, existing []model.Match) ([]model.Match, error) {
	pool := dedupe(participants)
	if len(pool) < model.PlayersPerMatch {
		return nil, model.ErrInsufficientPlayers
	}

	random.Shuffle(s.random, pool)
	return appendMatch(existing, s.newMatch(pool[:model.PlayersPerMatch])), nil
}

// AddBalancedMatch appends one match built from the participants who have
// played least across existing, the same way initial rounds are chosen.
func (s *Service) AddBalancedMatch(participants []model.PlayerID, existing []model.Match) ([]model.Match, error) {
	pool := dedupe(participants)
	if len(pool) < model.PlayersPerMatch {
		return nil, model.ErrInsufficientPlayers
	}

	picked := leastPlayed(pool, PlayCounts(existing))
	return appendMatch(existing, s.newMatch(picked)), nil
}

// newMatch shuffles the four players and splits them into two teams
func (s *Service) newMatch(players []model.PlayerID) model.Match {
	four := slices.Clone(players[:model.PlayersPerMatch])
	random.Shuffle(s.random, four)
	return model.NewMatch(
		model.MatchID(s.ids.NewID()),
		[2]model.PlayerID{four[0], four[1]},
		[2]model.PlayerID{four[2], four[3]},
		s.clock.Now(),
	)
}

// leastPlayed returns the first four of pool after a stable sort by play count
func leastPlayed(pool []model.PlayerID, played map[model.PlayerID]int) []model.PlayerID {
	order := slices.Clone(pool)
	slices.SortStableFunc(order, func(a, b model.PlayerID) int {
		return played[a] - played[b]
	})
	return order[:model.PlayersPerMatch]
}

func appendMatch(existing []model.Match, m model.Match) []model.Match {
	out := make([]model.Match, 0, len(existing)+1)
	out = append(out, model.CloneMatches(existing)...)
	return append(out, m)
}

func dedupe(ids []model.PlayerID) []model.PlayerID {
	seen := make(map[model.PlayerID]bool, len(ids))
	out := make([]model.PlayerID, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
