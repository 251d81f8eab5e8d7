package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/notify"
	"github.com/mcoot/doublesclub/internal/services/matchstate"
	"github.com/mcoot/doublesclub/internal/services/ranking"
	"github.com/mcoot/doublesclub/internal/services/tournament"
)

// PendingScore is an unsaved score edit. Either side may still be unset.
type PendingScore struct {
	Team1 *int `json:"team1"`
	Team2 *int `json:"team2"`
}

// Complete reports whether both sides are set
func (p PendingScore) Complete() bool {
	return p.Team1 != nil && p.Team2 != nil
}

// MatchView is a match as a client sees it, with pending edits merged over
// the stored score
type MatchView struct {
	model.Match
	Team1Names [2]string `json:"team1Names"`
	Team2Names [2]string `json:"team2Names"`
	Pending    bool      `json:"pending"`
}

// RankingView is a ranking entry with a resolved display name
type RankingView struct {
	model.RankingEntry
	Name string `json:"name"`
}

// TournamentView is the read model of one tournament for one session. The
// ranking only reflects saved scores.
type TournamentView struct {
	Tournament   *model.Tournament `json:"tournament"`
	Matches      []MatchView       `json:"matches"`
	Ranking      []RankingView     `json:"ranking"`
	PendingCount int               `json:"pendingCount"`
}

type pendingKey struct {
	TournamentID model.TournamentID
	MatchID      model.MatchID
}

// Session is one client's view onto the mirror plus its unsaved edits
type Session struct {
	key   string
	coord *Coordinator
	sink  notify.Sink

	mu      sync.Mutex
	pending map[model.TournamentID]map[model.MatchID]PendingScore
}

func newSession(key string, coord *Coordinator, sink notify.Sink) *Session {
	return &Session{
		key:     key,
		coord:   coord,
		sink:    sink,
		pending: make(map[model.TournamentID]map[model.MatchID]PendingScore),
	}
}

// Key returns the session key
func (s *Session) Key() string {
	return s.key
}

// SetScore records an unsaved edit for a match. Nil sides stay unset;
// clearing both sides discards the edit.
func (s *Session) SetScore(tournamentID model.TournamentID, matchID model.MatchID, team1, team2 *int) error {
	t, err := s.coord.Tournament(tournamentID)
	if err != nil {
		return err
	}
	if !t.IsActive() {
		return model.ErrTournamentNotActive
	}
	if t.FindMatch(matchID) == nil {
		return model.ErrMatchNotFound
	}
	for _, v := range []*int{team1, team2} {
		if v != nil && (*v < 0 || *v > model.MaxTeamScore) {
			return fmt.Errorf("%w: each score must be between 0 and %d", model.ErrInvalidScore, model.MaxTeamScore)
		}
	}

	if team1 == nil && team2 == nil {
		s.DiscardScore(tournamentID, matchID)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	edits, ok := s.pending[tournamentID]
	if !ok {
		edits = make(map[model.MatchID]PendingScore)
		s.pending[tournamentID] = edits
	}
	edits[matchID] = PendingScore{Team1: copyInt(team1), Team2: copyInt(team2)}
	return nil
}

// DiscardScore drops the unsaved edit of a match
func (s *Session) DiscardScore(tournamentID model.TournamentID, matchID model.MatchID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if edits, ok := s.pending[tournamentID]; ok {
		delete(edits, matchID)
		if len(edits) == 0 {
			delete(s.pending, tournamentID)
		}
	}
}

// PendingEdits returns a copy of the unsaved edits of a tournament
func (s *Session) PendingEdits(tournamentID model.TournamentID) map[model.MatchID]PendingScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.MatchID]PendingScore, len(s.pending[tournamentID]))
	for id, p := range s.pending[tournamentID] {
		out[id] = PendingScore{Team1: copyInt(p.Team1), Team2: copyInt(p.Team2)}
	}
	return out
}

// View builds the read model of a tournament with this session's edits
// merged in
func (s *Session) View(tournamentID model.TournamentID) (*TournamentView, error) {
	t, err := s.coord.Tournament(tournamentID)
	if err != nil {
		return nil, err
	}
	names := s.coord.resolver()
	edits := s.PendingEdits(tournamentID)

	matches := make([]MatchView, len(t.Matches))
	for i, m := range t.Matches {
		mv := MatchView{Match: m.Clone()}
		for j := 0; j < 2; j++ {
			mv.Team1Names[j] = t.ResolvePlayer(m.Team1[j], names)
			mv.Team2Names[j] = t.ResolvePlayer(m.Team2[j], names)
		}
		if p, ok := edits[m.ID]; ok {
			mv.Pending = true
			mv.ScoreTeam1 = copyInt(p.Team1)
			mv.ScoreTeam2 = copyInt(p.Team2)
		}
		matches[i] = mv
	}

	entries := ranking.ComputeRanking(t)
	ranked := make([]RankingView, len(entries))
	for i, e := range entries {
		ranked[i] = RankingView{RankingEntry: e, Name: t.ResolvePlayer(e.PlayerID, names)}
	}

	return &TournamentView{
		Tournament:   t,
		Matches:      matches,
		Ranking:      ranked,
		PendingCount: len(edits),
	}, nil
}

// Save validates every pending edit of the tournament and writes them in a
// single batch. Saved edits are cleared; on any error nothing is written and
// the edits are kept.
func (s *Session) Save(ctx context.Context, tournamentID model.TournamentID) (*model.Tournament, error) {
	t, err := s.coord.Tournament(tournamentID)
	if err != nil {
		return nil, s.fail("Could not save scores", err)
	}
	edits := s.PendingEdits(tournamentID)
	if len(edits) == 0 {
		s.sink.Notify("No scores to save", model.LevelInfo)
		return t, nil
	}

	pairs := make(map[model.MatchID]model.ScorePair, len(edits))
	for _, id := range sortedMatchIDs(edits) {
		p := edits[id]
		if !p.Complete() {
			return nil, s.fail("Could not save scores", fmt.Errorf("%w: match %s needs both scores", model.ErrInvalidScore, id))
		}
		pairs[id] = model.ScorePair{Team1: *p.Team1, Team2: *p.Team2}
	}

	updated, err := s.commit(ctx, t, pairs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if current, ok := s.pending[tournamentID]; ok {
		for id, saved := range edits {
			if p, ok := current[id]; ok && samePending(p, saved) {
				delete(current, id)
			}
		}
		if len(current) == 0 {
			delete(s.pending, tournamentID)
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// SaveScores writes exactly the given scores in a single batch, leaving
// pending edits for other matches untouched. Pending edits for the written
// matches are discarded. On any error nothing is written or discarded.
func (s *Session) SaveScores(ctx context.Context, tournamentID model.TournamentID, pairs map[model.MatchID]model.ScorePair) (*model.Tournament, error) {
	t, err := s.coord.Tournament(tournamentID)
	if err != nil {
		return nil, s.fail("Could not save scores", err)
	}
	if len(pairs) == 0 {
		s.sink.Notify("No scores to save", model.LevelInfo)
		return t, nil
	}

	updated, err := s.commit(ctx, t, pairs)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if current, ok := s.pending[tournamentID]; ok {
		for id := range pairs {
			delete(current, id)
		}
		if len(current) == 0 {
			delete(s.pending, tournamentID)
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// commit checks a batch against the mirrored tournament and writes it
func (s *Session) commit(ctx context.Context, t *model.Tournament, pairs map[model.MatchID]model.ScorePair) (*model.Tournament, error) {
	if !t.IsActive() {
		return nil, s.fail("Could not save scores", model.ErrTournamentNotActive)
	}
	if _, err := matchstate.BatchCompleteMatches(t.Matches, pairs); err != nil {
		return nil, s.fail("Could not save scores", err)
	}

	updated, err := s.coord.tournaments.SaveScores(ctx, t.ID, pairs)
	if err != nil {
		return nil, s.fail("Could not save scores", err)
	}
	s.coord.observe(updated)

	s.coord.logger.Info("scores saved",
		slog.String("session", s.key),
		slog.String("tournament_id", string(t.ID)),
		slog.Int("count", len(pairs)),
	)
	s.sink.Notify(fmt.Sprintf("Saved %d score(s)", len(pairs)), model.LevelSuccess)
	return updated, nil
}

// CreateTournament creates a tournament and reports the outcome
func (s *Session) CreateTournament(ctx context.Context, in tournament.CreateInput) (*model.Tournament, error) {
	t, err := s.coord.tournaments.Create(ctx, in)
	if err != nil {
		return nil, s.fail("Could not create tournament", err)
	}
	s.coord.observe(t)
	s.sink.Notify(fmt.Sprintf("Tournament %q created with %d matches", t.Name, len(t.Matches)), model.LevelSuccess)
	return t, nil
}

// AddMatch appends a match and reports the outcome
func (s *Session) AddMatch(ctx context.Context, tournamentID model.TournamentID, balanced bool) (*model.Tournament, error) {
	t, err := s.coord.tournaments.AddMatch(ctx, tournamentID, balanced)
	if err != nil {
		return nil, s.fail("Could not add match", err)
	}
	s.coord.observe(t)
	s.sink.Notify("Match added", model.LevelSuccess)
	return t, nil
}

// DeleteMatch removes a match, discarding any pending edit for it
func (s *Session) DeleteMatch(ctx context.Context, tournamentID model.TournamentID, matchID model.MatchID) (*model.Tournament, error) {
	t, err := s.coord.tournaments.DeleteMatch(ctx, tournamentID, matchID)
	if err != nil {
		return nil, s.fail("Could not delete match", err)
	}
	s.DiscardScore(tournamentID, matchID)
	s.coord.observe(t)
	s.sink.Notify("Match deleted", model.LevelSuccess)
	return t, nil
}

// Complete marks a tournament completed
func (s *Session) Complete(ctx context.Context, tournamentID model.TournamentID) (*model.Tournament, error) {
	t, err := s.coord.tournaments.Complete(ctx, tournamentID)
	if err != nil {
		return nil, s.fail("Could not complete tournament", err)
	}
	s.coord.observe(t)
	s.sink.Notify(fmt.Sprintf("Tournament %q completed", t.Name), model.LevelSuccess)
	return t, nil
}

// Reopen makes a completed tournament active again
func (s *Session) Reopen(ctx context.Context, tournamentID model.TournamentID) (*model.Tournament, error) {
	t, err := s.coord.tournaments.Reopen(ctx, tournamentID)
	if err != nil {
		return nil, s.fail("Could not reopen tournament", err)
	}
	s.coord.observe(t)
	s.sink.Notify(fmt.Sprintf("Tournament %q reopened", t.Name), model.LevelSuccess)
	return t, nil
}

// Update merges a patch into a tournament and reports the outcome
func (s *Session) Update(ctx context.Context, tournamentID model.TournamentID, patch model.TournamentPatch) (*model.Tournament, error) {
	t, err := s.coord.tournaments.Update(ctx, tournamentID, patch)
	if err != nil {
		return nil, s.fail("Could not update tournament", err)
	}
	s.coord.observe(t)
	s.sink.Notify(fmt.Sprintf("Tournament %q updated", t.Name), model.LevelSuccess)
	return t, nil
}

// CompleteMatch records a score directly, bypassing pending edits. Any
// pending edit for the match is discarded.
func (s *Session) CompleteMatch(ctx context.Context, tournamentID model.TournamentID, matchID model.MatchID, pair model.ScorePair) (*model.Tournament, error) {
	t, err := s.coord.tournaments.CompleteMatch(ctx, tournamentID, matchID, pair)
	if err != nil {
		return nil, s.fail("Could not save score", err)
	}
	s.DiscardScore(tournamentID, matchID)
	s.coord.observe(t)
	s.sink.Notify("Score saved", model.LevelSuccess)
	return t, nil
}

// DeleteTournament removes a tournament and every session's edits for it
func (s *Session) DeleteTournament(ctx context.Context, tournamentID model.TournamentID) error {
	if err := s.coord.tournaments.Delete(ctx, tournamentID); err != nil {
		return s.fail("Could not delete tournament", err)
	}
	s.coord.forget(tournamentID)
	s.sink.Notify("Tournament deleted", model.LevelSuccess)
	return nil
}

func (s *Session) fail(action string, err error) error {
	s.sink.Notify(fmt.Sprintf("%s: %v", action, err), model.LevelError)
	return err
}

// prune drops edits whose tournament or match is not in live and returns
// what was dropped
func (s *Session) prune(live map[model.TournamentID]map[model.MatchID]bool) []pendingKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []pendingKey
	for tid, edits := range s.pending {
		for mid := range edits {
			if !live[tid][mid] {
				delete(edits, mid)
				dropped = append(dropped, pendingKey{TournamentID: tid, MatchID: mid})
			}
		}
		if len(edits) == 0 {
			delete(s.pending, tid)
		}
	}
	return dropped
}

func (s *Session) dropTournament(id model.TournamentID) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func sortedMatchIDs(edits map[model.MatchID]PendingScore) []model.MatchID {
	ids := make([]model.MatchID, 0, len(edits))
	for id := range edits {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func samePending(a, b PendingScore) bool {
	return equalInt(a.Team1, b.Team1) && equalInt(a.Team2, b.Team2)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
