package coordinator

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/notify"
	"github.com/mcoot/doublesclub/internal/services/tournament"
	"github.com/mcoot/doublesclub/internal/storage"
)

// TournamentsListener is called with the full tournament mirror after every
// tournaments snapshot. Listeners share the slice and must not modify it.
type TournamentsListener func(tournaments []*model.Tournament)

// Coordinator keeps a local mirror of the tournaments, clubs and users
// collections in sync with the store, and holds each client session's
// unsaved score edits.
//
// The mirror is replaced wholesale by every snapshot. Readers always get
// deep copies. A tournament created through this coordinator survives one
// snapshot that lacks it, since that snapshot may predate the create.
type Coordinator struct {
	store       storage.Storage
	tournaments *tournament.Controller
	logger      *slog.Logger

	mu         sync.RWMutex
	started    bool
	tournList  []*model.Tournament
	tournByID  map[model.TournamentID]*model.Tournament
	clubs      []*model.Club
	users      []*model.User
	userNames  map[model.UserID]string
	unseen     map[model.TournamentID]int
	listeners  []TournamentsListener
	unsubs     []func()
	cancelSubs context.CancelFunc

	sessMu   sync.Mutex
	sessions map[string]*Session
}

// New creates a Coordinator. Call Start before reading from it.
func New(store storage.Storage, tournaments *tournament.Controller, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:       store,
		tournaments: tournaments,
		logger:      logger.With(slog.String("component", "coordinator")),
		tournByID:   make(map[model.TournamentID]*model.Tournament),
		userNames:   make(map[model.UserID]string),
		unseen:      make(map[model.TournamentID]int),
		sessions:    make(map[string]*Session),
	}
}

// Start reads every collection in full and then subscribes to changes.
// Subscriptions live until Stop is called or ctx ends.
func (c *Coordinator) Start(ctx context.Context) error {
	var (
		tournaments []*model.Tournament
		clubs       []*model.Club
		users       []*model.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tournaments, err = c.store.ListTournaments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		clubs, err = c.store.ListClubs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = c.store.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.applySnapshot(model.Snapshot{Collection: model.CollectionClubs, Clubs: clubs})
	c.applySnapshot(model.Snapshot{Collection: model.CollectionUsers, Users: users})
	c.applySnapshot(model.Snapshot{Collection: model.CollectionTournaments, Tournaments: tournaments})

	subCtx, cancel := context.WithCancel(ctx)
	unsubs := make([]func(), 0, len(model.Collections()))
	for _, coll := range model.Collections() {
		unsub, err := c.store.Subscribe(subCtx, coll, c.applySnapshot)
		if err != nil {
			cancel()
			for _, u := range unsubs {
				u()
			}
			return err
		}
		unsubs = append(unsubs, unsub)
	}

	c.mu.Lock()
	c.started = true
	c.unsubs = unsubs
	c.cancelSubs = cancel
	c.mu.Unlock()

	c.logger.Info("coordinator started",
		slog.Int("tournaments", len(tournaments)),
		slog.Int("clubs", len(clubs)),
		slog.Int("users", len(users)),
	)
	return nil
}

// Stop ends every subscription
func (c *Coordinator) Stop() {
	c.mu.Lock()
	unsubs := c.unsubs
	cancel := c.cancelSubs
	c.unsubs = nil
	c.cancelSubs = nil
	c.started = false
	c.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	if cancel != nil {
		cancel()
	}
}

// OnTournaments registers a listener for tournament snapshots
func (c *Coordinator) OnTournaments(fn TournamentsListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Tournaments returns the mirrored tournaments of a club in store order
func (c *Coordinator) Tournaments(clubID model.ClubID) []*model.Tournament {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Tournament, 0)
	for _, t := range c.tournList {
		if t.ClubID == clubID {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Tournament returns one mirrored tournament
func (c *Coordinator) Tournament(id model.TournamentID) (*model.Tournament, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tournByID[id]
	if !ok {
		return nil, model.ErrTournamentNotFound
	}
	return t.Clone(), nil
}

// Clubs returns every mirrored club
func (c *Coordinator) Clubs() []*model.Club {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CloneClubs(c.clubs)
}

// Club returns one mirrored club
func (c *Coordinator) Club(id model.ClubID) (*model.Club, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, club := range c.clubs {
		if club.ID == id {
			return club.Clone(), nil
		}
	}
	return nil, model.ErrClubNotFound
}

// Users returns every mirrored user
func (c *Coordinator) Users() []*model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CloneUsers(c.users)
}

// UserNames returns display names keyed by user id
func (c *Coordinator) UserNames() map[model.UserID]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.userNames)
}

// Started reports whether Start has completed and Stop has not been called
func (c *Coordinator) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Session returns the session for key, creating it on first use. Session
// notifications go to sink.
func (c *Coordinator) Session(key string, sink notify.Sink) *Session {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	if s, ok := c.sessions[key]; ok {
		return s
	}
	if sink == nil {
		sink = notify.Discard
	}
	s := newSession(key, c, sink)
	c.sessions[key] = s
	return s
}

// EndSession discards a session and its pending edits
func (c *Coordinator) EndSession(key string) {
	c.sessMu.Lock()
	delete(c.sessions, key)
	c.sessMu.Unlock()
}

func (c *Coordinator) sessionList() []*Session {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	out := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	return out
}

// applySnapshot replaces one mirrored collection
func (c *Coordinator) applySnapshot(snap model.Snapshot) {
	switch snap.Collection {
	case model.CollectionTournaments:
		c.replaceTournaments(snap.Tournaments)
	case model.CollectionClubs:
		c.mu.Lock()
		c.clubs = model.CloneClubs(snap.Clubs)
		c.mu.Unlock()
	case model.CollectionUsers:
		names := make(map[model.UserID]string, len(snap.Users))
		for _, u := range snap.Users {
			names[u.ID] = u.Name
		}
		c.mu.Lock()
		c.users = model.CloneUsers(snap.Users)
		c.userNames = names
		c.mu.Unlock()
	default:
		c.logger.Warn("ignoring snapshot for unknown collection", slog.String("collection", string(snap.Collection)))
	}
}

// replaceTournaments swaps in a tournaments snapshot. A tournament already
// mirrored at a newer version, from a local write, is kept over the
// snapshot's copy.
func (c *Coordinator) replaceTournaments(ts []*model.Tournament) {
	list := model.CloneTournaments(ts)
	byID := make(map[model.TournamentID]*model.Tournament, len(list))

	c.mu.Lock()
	for i, t := range list {
		if existing, ok := c.tournByID[t.ID]; ok && existing.Version > t.Version {
			list[i] = existing
		}
		byID[list[i].ID] = list[i]
	}
	list = c.keepUnseen(list, byID)
	c.tournList = list
	c.tournByID = byID
	published := model.CloneTournaments(list)
	listeners := append([]TournamentsListener(nil), c.listeners...)
	c.mu.Unlock()

	live := make(map[model.TournamentID]map[model.MatchID]bool, len(published))
	for _, t := range published {
		ids := make(map[model.MatchID]bool, len(t.Matches))
		for _, m := range t.Matches {
			ids[m.ID] = true
		}
		live[t.ID] = ids
	}

	c.prunePending(live)

	for _, fn := range listeners {
		fn(published)
	}
}

// keepUnseen carries locally created tournaments that the snapshot does not
// hold yet into it. Each is carried through at most one such snapshot and is
// confirmed once a snapshot holds it. Must be called with c.mu held.
func (c *Coordinator) keepUnseen(list []*model.Tournament, byID map[model.TournamentID]*model.Tournament) []*model.Tournament {
	carried := false
	for id, misses := range c.unseen {
		if _, ok := byID[id]; ok {
			delete(c.unseen, id)
			continue
		}
		existing, ok := c.tournByID[id]
		if !ok || misses > 0 {
			delete(c.unseen, id)
			continue
		}
		c.unseen[id] = misses + 1
		list = append(list, existing)
		byID[id] = existing
		carried = true
	}
	if carried {
		storage.SortTournaments(list)
	}
	return list
}

// observe folds a write result into the mirror ahead of its snapshot. Older
// versions never replace newer ones.
func (c *Coordinator) observe(t *model.Tournament) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := t.Clone()
	if existing, ok := c.tournByID[t.ID]; ok {
		if existing.Version >= t.Version {
			return
		}
		for i := range c.tournList {
			if c.tournList[i].ID == t.ID {
				c.tournList[i] = cp
				break
			}
		}
	} else {
		c.tournList = append(c.tournList, cp)
		c.unseen[t.ID] = 0
	}
	c.tournByID[t.ID] = cp
}

// forget removes a deleted tournament from the mirror along with every
// session's pending edits for it
func (c *Coordinator) forget(id model.TournamentID) {
	c.mu.Lock()
	delete(c.tournByID, id)
	delete(c.unseen, id)
	for i := range c.tournList {
		if c.tournList[i].ID == id {
			c.tournList = append(c.tournList[:i:i], c.tournList[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	for _, s := range c.sessionList() {
		s.dropTournament(id)
	}
}

// prunePending drops pending edits whose match no longer exists
func (c *Coordinator) prunePending(live map[model.TournamentID]map[model.MatchID]bool) {
	for _, s := range c.sessionList() {
		for _, d := range s.prune(live) {
			c.logger.Warn("discarded pending score",
				slog.String("session", s.key),
				slog.String("tournament_id", string(d.TournamentID)),
				slog.String("match_id", string(d.MatchID)),
			)
			s.sink.Notify("A match with an unsaved score was removed by another user; the score was discarded", model.LevelWarning)
		}
	}
}

// resolver returns a name lookup for the current users mirror
func (c *Coordinator) resolver() map[model.UserID]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userNames
}
