package handler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/doublesclub/internal/factory"
	"github.com/mcoot/doublesclub/internal/model"
)

type SessionsSuite struct {
	suite.Suite
	app *factory.TestApp
	ctx context.Context
}

func TestSessionsSuite(t *testing.T) {
	suite.Run(t, new(SessionsSuite))
}

func (s *SessionsSuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.ctx = context.Background()
}

func (s *SessionsSuite) TearDownTest() {
	s.Require().NoError(s.app.Close())
}

func (s *SessionsSuite) login(username string) string {
	session, _, err := s.app.AuthService.Register(s.ctx, username, "password1", username)
	s.Require().NoError(err)
	return session.Token
}

func (s *SessionsSuite) TestForReusesSessionAndInbox() {
	token := s.login("ann")

	first, inbox := s.app.Sessions.For(token)
	second, again := s.app.Sessions.For(token)
	s.Same(first, second)
	s.Same(inbox, again)
	s.Equal(1, s.app.Sessions.Len())

	other, otherInbox := s.app.Sessions.For(s.login("bea"))
	s.NotSame(first, other)
	s.NotSame(inbox, otherInbox)
	s.Equal(2, s.app.Sessions.Len())
}

func (s *SessionsSuite) TestNotificationsReachTheInbox() {
	token := s.login("ann")
	session, inbox := s.app.Sessions.For(token)

	_, err := session.Save(s.ctx, model.TournamentID("missing"))
	s.Require().Error(err)

	notes := inbox.Drain()
	s.Require().Len(notes, 1)
	s.Equal(model.LevelError, notes[0].Level)
}

func (s *SessionsSuite) TestEndDropsSession() {
	token := s.login("ann")
	first, _ := s.app.Sessions.For(token)

	s.app.Sessions.End(token)
	s.Zero(s.app.Sessions.Len())

	second, _ := s.app.Sessions.For(token)
	s.NotSame(first, second)
}

func (s *SessionsSuite) TestCleanExpiredSessionsDropsStaleTokens() {
	stale := s.login("ann")
	s.app.Sessions.For(stale)

	s.app.MockClock.Advance(25 * time.Hour)
	fresh := s.login("bea")
	s.app.Sessions.For(fresh)

	removed := s.app.Sessions.CleanExpiredSessions()
	s.Equal(1, removed)
	s.Equal(1, s.app.Sessions.Len())
}
