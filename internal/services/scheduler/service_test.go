package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/doublesclub/internal/dependencies/idgen"
	"github.com/mcoot/doublesclub/internal/dependencies/mocks"
	"github.com/mcoot/doublesclub/internal/dependencies/random"
	"github.com/mcoot/doublesclub/internal/model"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	ids     *mocks.MockIDGenerator
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.ids = mocks.NewMockIDGenerator("match")
	s.service = New(s.clock, s.random, s.ids)
}

func players(n int) []model.PlayerID {
	out := make([]model.PlayerID, n)
	for i := range out {
		out[i] = model.PlayerID(fmt.Sprintf("p%d", i+1))
	}
	return out
}

func (s *ServiceSuite) assertWellFormed(m model.Match, pool []model.PlayerID) {
	seen := map[model.PlayerID]bool{}
	for _, p := range m.Participants() {
		s.Contains(pool, p)
		s.False(seen[p], "duplicate participant %s", p)
		seen[p] = true
	}
	s.Len(seen, 4)
	s.Equal(model.MatchStatusPending, m.Status)
	s.Nil(m.ScoreTeam1)
	s.Nil(m.ScoreTeam2)
}

// MatchCount tests

func (s *ServiceSuite) TestMatchCount() {
	cases := map[int]int{0: 4, 2: 4, 4: 6, 5: 7, 6: 7, 12: 7}
	for n, want := range cases {
		s.Equal(want, MatchCount(n), "n=%d", n)
	}
}

// GenerateInitialMatches tests

func (s *ServiceSuite) TestGenerateTooFewPlayers() {
	s.Empty(s.service.GenerateInitialMatches(players(3)))
	s.Empty(s.service.GenerateInitialMatches(nil))
}

func (s *ServiceSuite) TestGenerateIgnoresDuplicateIDs() {
	s.Empty(s.service.GenerateInitialMatches([]model.PlayerID{"p1", "p1", "p2", "p3"}))
}

func (s *ServiceSuite) TestGenerateFourPlayers() {
	pool := players(4)
	matches := s.service.GenerateInitialMatches(pool)

	// floor(4*1.5) = 6
	s.Require().Len(matches, 6)
	for _, m := range matches {
		s.assertWellFormed(m, pool)
	}
	s.Equal(model.MatchID("match-1"), matches[0].ID)
	s.Equal(s.clock.Now(), matches[0].CreatedAt)
}

func (s *ServiceSuite) TestGenerateSplitsShuffledFour() {
	// With Intn always 0 the shuffle maps [a b c d] to [b c d a]
	matches := s.service.GenerateInitialMatches(players(4))

	s.Equal([2]model.PlayerID{"p2", "p3"}, matches[0].Team1)
	s.Equal([2]model.PlayerID{"p4", "p1"}, matches[0].Team2)
}

func (s *ServiceSuite) TestGenerateBoundsAndSpread() {
	gen := New(s.clock, random.New(), idgen.New())
	for n := 4; n <= 16; n++ {
		pool := players(n)
		for range 20 {
			matches := gen.GenerateInitialMatches(pool)
			s.GreaterOrEqual(len(matches), 4)
			s.LessOrEqual(len(matches), 7)

			counts := PlayCounts(matches)
			lo, hi := len(matches), 0
			for _, p := range pool {
				lo = min(lo, counts[p])
				hi = max(hi, counts[p])
			}
			s.LessOrEqual(hi-lo, 2, "n=%d counts=%v", n, counts)

			for _, m := range matches {
				s.assertWellFormed(m, pool)
			}
		}
	}
}

func (s *ServiceSuite) TestGenerateLeastPlayedFirst() {
	// Six players, first round takes p1-p4, second must include p5 and p6
	matches := s.service.GenerateInitialMatches(players(6))
	s.Require().Len(matches, 7)

	second := matches[1]
	s.True(second.HasParticipant("p5"))
	s.True(second.HasParticipant("p6"))
}

// AddAdditionalMatch tests

func (s *ServiceSuite) TestAddAdditionalMatch() {
	pool := players(5)
	existing := s.service.GenerateInitialMatches(pool)
	before := model.CloneMatches(existing)

	updated, err := s.service.AddAdditionalMatch(pool, existing)
	s.Require().NoError(err)
	s.Require().Len(updated, len(existing)+1)
	s.assertWellFormed(updated[len(updated)-1], pool)
	s.Equal(before, existing)
}

func (s *ServiceSuite) TestAddAdditionalMatchToEmpty() {
	updated, err := s.service.AddAdditionalMatch(players(4), nil)
	s.Require().NoError(err)
	s.Len(updated, 1)
}

func (s *ServiceSuite) TestAddAdditionalMatchInsufficientPlayers() {
	_, err := s.service.AddAdditionalMatch(players(3), nil)
	s.ErrorIs(err, model.ErrInsufficientPlayers)
	s.ErrorIs(err, model.ErrValidation)
}

// AddBalancedMatch tests

func (s *ServiceSuite) TestAddBalancedMatchPicksLeastPlayed() {
	pool := players(6)
	existing := []model.Match{
		model.NewMatch("m1", [2]model.PlayerID{"p1", "p2"}, [2]model.PlayerID{"p3", "p4"}, s.clock.Now()),
		model.NewMatch("m2", [2]model.PlayerID{"p1", "p2"}, [2]model.PlayerID{"p3", "p5"}, s.clock.Now()),
	}

	updated, err := s.service.AddBalancedMatch(pool, existing)
	s.Require().NoError(err)
	s.Require().Len(updated, 3)

	added := updated[2]
	s.True(added.HasParticipant("p6"))
	s.True(added.HasParticipant("p4"))
	s.True(added.HasParticipant("p5"))
}

func (s *ServiceSuite) TestPlayCounts() {
	matches := []model.Match{
		model.NewMatch("m1", [2]model.PlayerID{"a", "b"}, [2]model.PlayerID{"c", "d"}, s.clock.Now()),
		model.NewMatch("m2", [2]model.PlayerID{"a", "e"}, [2]model.PlayerID{"c", "f"}, s.clock.Now()),
	}
	counts := PlayCounts(matches)
	s.Equal(2, counts["a"])
	s.Equal(1, counts["f"])
	s.Equal(0, counts["z"])
}
