package factory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/doublesclub/internal/coordinator"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/notify"
	"github.com/mcoot/doublesclub/internal/services/ranking"
	"github.com/mcoot/doublesclub/internal/services/tournament"
)

type IntegrationSuite struct {
	suite.Suite
	app   *TestApp
	ctx   context.Context
	users []*model.User
	club  *model.Club
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()

	s.users = nil
	for _, name := range []string{"Ann", "Bea", "Cat", "Dot"} {
		_, u, err := s.app.AuthService.Register(s.ctx, name, "password1", name)
		s.Require().NoError(err)
		s.users = append(s.users, u)
	}

	club, err := s.app.ClubController.Create(s.ctx, s.users[0].ID, "Riverside")
	s.Require().NoError(err)
	for _, u := range s.users[1:] {
		club, err = s.app.ClubController.Join(s.ctx, club.ID, u.ID)
		s.Require().NoError(err)
	}
	s.club = club

	s.Require().NoError(s.app.Coordinator.Start(s.ctx))
	s.Require().Eventually(func() bool {
		c, err := s.app.Coordinator.Club(club.ID)
		return err == nil && len(c.MemberIDs) == len(s.users)
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *IntegrationSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *IntegrationSuite) playerIDs() []model.PlayerID {
	ids := make([]model.PlayerID, len(s.users))
	for i, u := range s.users {
		ids[i] = u.PlayerID()
	}
	return ids
}

func intPtr(v int) *int { return &v }

// Test: a tournament from creation through score entry to completion
func (s *IntegrationSuite) TestTournamentFlow() {
	inbox := notify.NewInbox(s.app.Clock, notify.DefaultInboxSize)
	session := s.app.Coordinator.Session("client-1", inbox)

	// Step 1: Create with four members and one guest
	t, err := session.CreateTournament(s.ctx, tournament.CreateInput{
		Name:         "Friday Night",
		ClubID:       s.club.ID,
		CreatedBy:    s.users[0].ID,
		Players:      s.playerIDs(),
		GuestPlayers: []string{"Eve"},
	})
	s.Require().NoError(err)
	s.Len(t.Matches, 7)
	s.Equal(model.TournamentStatusActive, t.Status)

	// Step 2: Enter two scores as pending edits
	first, second := t.Matches[0].ID, t.Matches[1].ID
	s.Require().NoError(session.SetScore(t.ID, first, intPtr(3), intPtr(1)))
	s.Require().NoError(session.SetScore(t.ID, second, intPtr(2), intPtr(2)))

	view, err := session.View(t.ID)
	s.Require().NoError(err)
	s.Equal(2, view.PendingCount)
	for _, r := range view.Ranking {
		s.Zero(r.Matches, "ranking must ignore unsaved scores")
	}

	// Step 3: Save them in one write
	saved, err := session.Save(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusCompleted, saved.FindMatch(first).Status)
	s.Equal(model.MatchStatusCompleted, saved.FindMatch(second).Status)
	s.Empty(session.PendingEdits(t.ID))

	view, err = session.View(t.ID)
	s.Require().NoError(err)
	s.Zero(view.PendingCount)
	total := 0
	for _, r := range view.Ranking {
		total += r.Points
	}
	s.Equal(2*2*model.ScoreTotal, total, "each team member earns the team score")

	// Step 4: The club leaderboard reflects the saved matches
	members, err := s.app.ClubController.Members(s.ctx, s.club.ID)
	s.Require().NoError(err)
	board := ranking.ClubLeaderboard(s.app.Coordinator.Tournaments(s.club.ID), s.club.ID, members)
	s.NotEmpty(board)

	// Step 5: Complete, then reject edits, then reopen
	_, err = session.Complete(s.ctx, t.ID)
	s.Require().NoError(err)
	s.ErrorIs(session.SetScore(t.ID, t.Matches[2].ID, intPtr(4), intPtr(0)), model.ErrTournamentNotActive)

	_, err = session.Reopen(s.ctx, t.ID)
	s.Require().NoError(err)
	s.NoError(session.SetScore(t.ID, t.Matches[2].ID, intPtr(4), intPtr(0)))

	// Notifications were queued along the way
	levels := make(map[model.NotificationLevel]int)
	for _, n := range inbox.Drain() {
		levels[n.Level]++
	}
	s.Positive(levels[model.LevelSuccess])
}

// Test: a second session does not see another session's edits
func (s *IntegrationSuite) TestSessionsAreIsolated() {
	one := s.app.Coordinator.Session("one", nil)
	two := s.app.Coordinator.Session("two", nil)

	t, err := one.CreateTournament(s.ctx, tournament.CreateInput{
		Name:      "Isolated",
		ClubID:    s.club.ID,
		CreatedBy: s.users[0].ID,
		Players:   s.playerIDs(),
	})
	s.Require().NoError(err)

	s.Require().NoError(one.SetScore(t.ID, t.Matches[0].ID, intPtr(4), intPtr(0)))

	var viewTwo *coordinator.TournamentView
	viewTwo, err = two.View(t.ID)
	s.Require().NoError(err)
	s.Zero(viewTwo.PendingCount)
	s.Nil(viewTwo.Matches[0].ScoreTeam1)
}

// Test: only members may create tournaments for a club
func (s *IntegrationSuite) TestNonMemberCannotCreate() {
	_, outsider, err := s.app.AuthService.Register(s.ctx, "zed", "password1", "Zed")
	s.Require().NoError(err)

	_, err = s.app.TournamentController.Create(s.ctx, tournament.CreateInput{
		Name:      "Gatecrash",
		ClubID:    s.club.ID,
		CreatedBy: outsider.ID,
		Players:   s.playerIDs(),
	})
	s.ErrorIs(err, model.ErrNotMember)
}
