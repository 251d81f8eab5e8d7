package tournament

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/doublesclub/internal/dependencies/mocks"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/services/scheduler"
	"github.com/mcoot/doublesclub/internal/storage"
	"github.com/mcoot/doublesclub/internal/storage/memory"
	"github.com/mcoot/doublesclub/internal/testutil"
)

// racingStorage runs a hook before the first conditional update, simulating
// another client writing between our read and our write
type racingStorage struct {
	storage.Storage
	before func()
	fired  bool
}

func (r *racingStorage) UpdateTournamentIfVersion(ctx context.Context, id model.TournamentID, version int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	if !r.fired && r.before != nil {
		r.fired = true
		r.before()
	}
	return r.Storage.UpdateTournamentIfVersion(ctx, id, version, patch, at)
}

// conflictingStorage always reports a version conflict
type conflictingStorage struct {
	storage.Storage
	calls int
}

func (c *conflictingStorage) UpdateTournamentIfVersion(ctx context.Context, id model.TournamentID, version int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	c.calls++
	return nil, model.ErrVersionConflict
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	ids        *mocks.MockIDGenerator
	scheduler  *scheduler.Service
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.ids = mocks.NewMockIDGenerator("id")
	s.scheduler = scheduler.New(s.clock, s.random, s.ids)
	s.controller = s.newController(s.storage)
	s.ctx = context.Background()

	err := s.storage.SaveClub(s.ctx, &model.Club{
		ID:        "club-1",
		Name:      "Riverside",
		MemberIDs: []model.UserID{"u1", "u2", "u3", "u4", "u5"},
		CreatedBy: "u1",
	})
	s.Require().NoError(err)
}

func (s *ControllerSuite) TearDownTest() {
	_ = s.storage.Close()
}

func (s *ControllerSuite) newController(store storage.Storage) *Controller {
	return NewController(store, s.scheduler, s.clock, s.ids, testutil.NopLogger())
}

func (s *ControllerSuite) validInput() CreateInput {
	return CreateInput{
		Name:      "Tuesday doubles",
		ClubID:    "club-1",
		CreatedBy: "u1",
		Players:   []model.PlayerID{"u1", "u2", "u3", "u4"},
	}
}

func (s *ControllerSuite) create(in CreateInput) *model.Tournament {
	t, err := s.controller.Create(s.ctx, in)
	s.Require().NoError(err)
	return t
}

// Create tests

func (s *ControllerSuite) TestCreateFourPlayers() {
	t := s.create(s.validInput())

	s.Equal(model.TournamentStatusActive, t.Status)
	s.Equal(int64(1), t.Version)
	s.Equal(s.clock.Now(), t.CreatedAt)
	s.Len(t.Matches, 6)
	for _, m := range t.Matches {
		for _, p := range m.Participants() {
			s.Contains(t.Players, p)
		}
	}

	stored, err := s.storage.GetTournament(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t.Matches, stored.Matches)
}

func (s *ControllerSuite) TestCreateWithGuests() {
	in := s.validInput()
	in.Players = []model.PlayerID{"u1", "u2"}
	in.GuestPlayers = []string{" Gus ", "Gia"}

	t := s.create(in)
	s.Equal([]string{"Gus", "Gia"}, t.GuestPlayers)
	s.Equal([]model.PlayerID{"u1", "u2", "guest-0", "guest-1"}, t.Participants())
}

func (s *ControllerSuite) TestCreateValidation() {
	cases := []struct {
		name   string
		mutate func(in *CreateInput)
		err    error
	}{
		{"missing name", func(in *CreateInput) { in.Name = "  " }, model.ErrMissingField},
		{"no active club", func(in *CreateInput) { in.ClubID = "" }, model.ErrNoActiveClub},
		{"unknown club", func(in *CreateInput) { in.ClubID = "nope" }, model.ErrClubNotFound},
		{"creator not member", func(in *CreateInput) { in.CreatedBy = "stranger" }, model.ErrNotMember},
		{"too few players", func(in *CreateInput) { in.Players = in.Players[:3] }, model.ErrInsufficientPlayers},
		{"player not member", func(in *CreateInput) { in.Players[3] = "stranger" }, model.ErrNotMember},
		{"duplicate player", func(in *CreateInput) { in.Players[3] = "u1" }, model.ErrDuplicatePlayer},
		{"guest id as player", func(in *CreateInput) { in.Players[3] = "guest-0" }, model.ErrInvalidPlayer},
		{"empty guest", func(in *CreateInput) { in.GuestPlayers = []string{""} }, model.ErrMissingField},
		{"duplicate guest", func(in *CreateInput) { in.GuestPlayers = []string{"Gus", "gus"} }, model.ErrDuplicateGuestName},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			in := s.validInput()
			in.Players = append([]model.PlayerID{}, in.Players...)
			tc.mutate(&in)

			_, err := s.controller.Create(s.ctx, in)
			s.ErrorIs(err, tc.err)
		})
	}

	all, err := s.storage.ListTournaments(s.ctx)
	s.Require().NoError(err)
	s.Empty(all, "nothing is written on validation failure")
}

func (s *ControllerSuite) TestCreateValidationErrorsAreValidation() {
	in := s.validInput()
	in.Players = in.Players[:2]
	_, err := s.controller.Create(s.ctx, in)
	s.ErrorIs(err, model.ErrValidation)
}

// Read tests

func (s *ControllerSuite) TestListForClubNewestFirst() {
	first := s.create(s.validInput())
	s.clock.Advance(time.Hour)
	second := s.create(s.validInput())

	list, err := s.controller.ListForClub(s.ctx, "club-1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
	s.Equal(first.ID, list[1].ID)

	other, err := s.controller.ListForClub(s.ctx, "club-2")
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *ControllerSuite) TestGetNotFound() {
	_, err := s.controller.Get(s.ctx, "missing")
	s.ErrorIs(err, model.ErrTournamentNotFound)
}

// Update tests

func (s *ControllerSuite) TestUpdateName() {
	t := s.create(s.validInput())

	name := "  Renamed "
	updated, err := s.controller.Update(s.ctx, t.ID, model.TournamentPatch{Name: &name})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.Equal(t.Matches, updated.Matches)
}

func (s *ControllerSuite) TestUpdateRejectsInvalidMatches() {
	t := s.create(s.validInput())

	bad := model.CloneMatches(t.Matches)
	bad[0].Team1[0] = "stranger"
	_, err := s.controller.Update(s.ctx, t.ID, model.MatchesPatch(bad))
	s.ErrorIs(err, model.ErrUnknownPlayer)

	badScore := model.CloneMatches(t.Matches)
	badScore[0] = badScore[0].WithScores(model.ScorePair{Team1: 3, Team2: 3})
	_, err = s.controller.Update(s.ctx, t.ID, model.MatchesPatch(badScore))
	s.ErrorIs(err, model.ErrInvalidScore)
}

func (s *ControllerSuite) TestUpdateInvalidStatus() {
	t := s.create(s.validInput())
	status := model.TournamentStatus("archived")
	_, err := s.controller.Update(s.ctx, t.ID, model.TournamentPatch{Status: &status})
	s.ErrorIs(err, model.ErrInvalidStatus)
}

func (s *ControllerSuite) TestUpdateGuestListLockedOnceReferenced() {
	in := s.validInput()
	in.Players = []model.PlayerID{"u1", "u2", "u3"}
	in.GuestPlayers = []string{"Gus"}
	t := s.create(in)
	s.Require().True(t.ReferencesGuests())

	renamed := []string{"Gustav"}
	_, err := s.controller.Update(s.ctx, t.ID, model.TournamentPatch{GuestPlayers: &renamed})
	s.ErrorIs(err, model.ErrGuestListLocked)

	same := []string{"Gus"}
	_, err = s.controller.Update(s.ctx, t.ID, model.TournamentPatch{GuestPlayers: &same})
	s.NoError(err)
}

func (s *ControllerSuite) TestUpdateWholeArrayLastWriterWins() {
	t := s.create(s.validInput())

	readA, err := s.controller.Get(s.ctx, t.ID)
	s.Require().NoError(err)
	readB, err := s.controller.Get(s.ctx, t.ID)
	s.Require().NoError(err)

	mA := model.NewMatch("mA", [2]model.PlayerID{"u1", "u3"}, [2]model.PlayerID{"u2", "u4"}, s.clock.Now())
	mB := model.NewMatch("mB", [2]model.PlayerID{"u1", "u4"}, [2]model.PlayerID{"u2", "u3"}, s.clock.Now())

	_, err = s.controller.Update(s.ctx, t.ID, model.MatchesPatch(append(readA.Matches, mA)))
	s.Require().NoError(err)
	_, err = s.controller.Update(s.ctx, t.ID, model.MatchesPatch(append(readB.Matches, mB)))
	s.Require().NoError(err)

	final, err := s.controller.Get(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(final.Matches, len(t.Matches)+1)
	s.NotNil(final.FindMatch("mB"))
	s.Nil(final.FindMatch("mA"), "the earlier append is lost")
}

// Status tests

func (s *ControllerSuite) TestCompleteAndReopen() {
	t := s.create(s.validInput())
	t2, err := s.controller.CompleteMatch(s.ctx, t.ID, t.Matches[0].ID, model.ScorePair{Team1: 3, Team2: 1})
	s.Require().NoError(err)

	done, err := s.controller.Complete(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(model.TournamentStatusCompleted, done.Status)

	again, err := s.controller.Reopen(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(model.TournamentStatusActive, again.Status)
	s.Equal(t2.Matches, again.Matches, "reopen keeps match statuses")
}

func (s *ControllerSuite) TestCompletedTournamentRejectsMatchEdits() {
	t := s.create(s.validInput())
	_, err := s.controller.Complete(s.ctx, t.ID)
	s.Require().NoError(err)

	_, err = s.controller.AddMatch(s.ctx, t.ID, false)
	s.ErrorIs(err, model.ErrTournamentNotActive)

	_, err = s.controller.DeleteMatch(s.ctx, t.ID, t.Matches[0].ID)
	s.ErrorIs(err, model.ErrTournamentNotActive)

	_, err = s.controller.CompleteMatch(s.ctx, t.ID, t.Matches[0].ID, model.ScorePair{Team1: 2, Team2: 2})
	s.ErrorIs(err, model.ErrTournamentNotActive)
}

func (s *ControllerSuite) TestDelete() {
	t := s.create(s.validInput())

	s.Require().NoError(s.controller.Delete(s.ctx, t.ID))
	_, err := s.controller.Get(s.ctx, t.ID)
	s.ErrorIs(err, model.ErrTournamentNotFound)

	s.ErrorIs(s.controller.Delete(s.ctx, t.ID), model.ErrTournamentNotFound)
}

// Match tests

func (s *ControllerSuite) TestAddMatch() {
	t := s.create(s.validInput())

	updated, err := s.controller.AddMatch(s.ctx, t.ID, false)
	s.Require().NoError(err)
	s.Len(updated.Matches, len(t.Matches)+1)
	s.Equal(t.Version+1, updated.Version)
}

func (s *ControllerSuite) TestAddBalancedMatch() {
	in := s.validInput()
	in.Players = []model.PlayerID{"u1", "u2", "u3", "u4", "u5"}
	t := s.create(in)

	updated, err := s.controller.AddMatch(s.ctx, t.ID, true)
	s.Require().NoError(err)
	s.Len(updated.Matches, len(t.Matches)+1)

	counts := scheduler.PlayCounts(updated.Matches)
	lo, hi := 100, 0
	for _, p := range updated.Participants() {
		lo, hi = min(lo, counts[p]), max(hi, counts[p])
	}
	s.LessOrEqual(hi-lo, 2)
}

func (s *ControllerSuite) TestDeleteMatch() {
	t := s.create(s.validInput())
	target := t.Matches[2].ID

	updated, err := s.controller.DeleteMatch(s.ctx, t.ID, target)
	s.Require().NoError(err)
	s.Len(updated.Matches, len(t.Matches)-1)
	s.Nil(updated.FindMatch(target))

	_, err = s.controller.DeleteMatch(s.ctx, t.ID, target)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *ControllerSuite) TestSaveScoresBatch() {
	t := s.create(s.validInput())
	edits := map[model.MatchID]model.ScorePair{
		t.Matches[0].ID: {Team1: 3, Team2: 1},
		t.Matches[1].ID: {Team1: 2, Team2: 2},
	}

	updated, err := s.controller.SaveScores(s.ctx, t.ID, edits)
	s.Require().NoError(err)
	s.True(updated.Matches[0].IsCompleted())
	s.True(updated.Matches[1].IsCompleted())
	s.False(updated.Matches[2].IsCompleted())
	s.Equal(t.Version+1, updated.Version, "a batch is a single write")
}

func (s *ControllerSuite) TestSaveScoresRejectsWholeBatch() {
	t := s.create(s.validInput())
	edits := map[model.MatchID]model.ScorePair{
		t.Matches[0].ID: {Team1: 3, Team2: 1},
		t.Matches[1].ID: {Team1: 2, Team2: 3},
	}

	_, err := s.controller.SaveScores(s.ctx, t.ID, edits)
	s.ErrorIs(err, model.ErrInvalidScore)

	stored, _ := s.controller.Get(s.ctx, t.ID)
	s.Equal(t.Version, stored.Version)
	for _, m := range stored.Matches {
		s.False(m.IsCompleted())
	}
}

func (s *ControllerSuite) TestSaveScoresEmptyIsNoop() {
	t := s.create(s.validInput())
	got, err := s.controller.SaveScores(s.ctx, t.ID, nil)
	s.Require().NoError(err)
	s.Equal(t.Version, got.Version)
}

func (s *ControllerSuite) TestCompleteMatchScenario() {
	t := s.create(s.validInput())
	id := t.Matches[0].ID

	_, err := s.controller.CompleteMatch(s.ctx, t.ID, id, model.ScorePair{Team1: 2, Team2: 3})
	s.ErrorIs(err, model.ErrInvalidScore)

	updated, err := s.controller.CompleteMatch(s.ctx, t.ID, id, model.ScorePair{Team1: 2, Team2: 2})
	s.Require().NoError(err)
	s.Equal(model.MatchStatusCompleted, updated.FindMatch(id).Status)
}

// Optimistic concurrency tests

func (s *ControllerSuite) TestAddMatchRetriesAfterConcurrentWrite() {
	t := s.create(s.validInput())

	racing := &racingStorage{Storage: s.storage}
	racing.before = func() {
		_, err := s.controller.AddMatch(s.ctx, t.ID, false)
		s.Require().NoError(err)
	}
	contender := s.newController(racing)

	updated, err := contender.AddMatch(s.ctx, t.ID, false)
	s.Require().NoError(err)
	s.Len(updated.Matches, len(t.Matches)+2, "both appends survive")
	s.Equal(t.Version+2, updated.Version)
}

func (s *ControllerSuite) TestMutateGivesUpAfterMaxAttempts() {
	t := s.create(s.validInput())

	conflicting := &conflictingStorage{Storage: s.storage}
	contender := s.newController(conflicting)

	_, err := contender.DeleteMatch(s.ctx, t.ID, t.Matches[0].ID)
	s.ErrorIs(err, model.ErrVersionConflict)
	s.ErrorIs(err, model.ErrConflict)
	s.Equal(MaxWriteAttempts, conflicting.calls)
}
