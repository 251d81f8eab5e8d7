package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	tournaments map[model.TournamentID]*model.Tournament
	clubs       map[model.ClubID]*model.Club
	users       map[model.UserID]*model.User
	credentials map[string]*model.Credentials

	broker *storage.Broker
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		tournaments: make(map[model.TournamentID]*model.Tournament),
		clubs:       make(map[model.ClubID]*model.Club),
		users:       make(map[model.UserID]*model.User),
		credentials: make(map[string]*model.Credentials),
		broker:      storage.NewBroker(),
	}
}

// Close ends all subscriptions
func (s *Storage) Close() error {
	s.broker.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Tournament operations

func (s *Storage) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tournamentList(), nil
}

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return nil, model.ErrTournamentNotFound
	}
	return t.Clone(), nil
}

func (s *Storage) CreateTournament(ctx context.Context, t *model.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tournaments[t.ID]; exists {
		return model.ErrAlreadyExists
	}
	s.tournaments[t.ID] = t.Clone()
	s.publish(model.CollectionTournaments)
	return nil
}

func (s *Storage) UpdateTournament(ctx context.Context, id model.TournamentID, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	return s.updateTournament(id, nil, patch, at)
}

func (s *Storage) UpdateTournamentIfVersion(ctx context.Context, id model.TournamentID, version int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	return s.updateTournament(id, &version, patch, at)
}

func (s *Storage) updateTournament(id model.TournamentID, version *int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tournaments[id]
	if !ok {
		return nil, model.ErrTournamentNotFound
	}
	if version != nil && current.Version != *version {
		return nil, model.ErrVersionConflict
	}

	updated := current.Clone()
	patch.Apply(updated)
	updated.Version++
	updated.UpdatedAt = at
	s.tournaments[id] = updated
	s.publish(model.CollectionTournaments)
	return updated.Clone(), nil
}

func (s *Storage) DeleteTournament(ctx context.Context, id model.TournamentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[id]; !ok {
		return nil
	}
	delete(s.tournaments, id)
	s.publish(model.CollectionTournaments)
	return nil
}

// Club operations

func (s *Storage) ListClubs(ctx context.Context) ([]*model.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clubList(), nil
}

func (s *Storage) GetClub(ctx context.Context, id model.ClubID) (*model.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	club, ok := s.clubs[id]
	if !ok {
		return nil, model.ErrClubNotFound
	}
	return club.Clone(), nil
}

func (s *Storage) SaveClub(ctx context.Context, club *model.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clubs[club.ID] = club.Clone()
	s.publish(model.CollectionClubs)
	return nil
}

func (s *Storage) DeleteClub(ctx context.Context, id model.ClubID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clubs[id]; !ok {
		return nil
	}
	delete(s.clubs, id)
	s.publish(model.CollectionClubs)
	return nil
}

// User operations

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userList(), nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user.Clone()
	s.publish(model.CollectionUsers)
	return nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(creds.Username)
	if existing, ok := s.credentials[key]; ok && existing.UserID != creds.UserID {
		return model.ErrAlreadyExists
	}
	c := *creds
	s.credentials[key] = &c
	return nil
}

func (s *Storage) GetCredentials(ctx context.Context, username string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.credentials[strings.ToLower(username)]
	if !ok {
		return nil, model.ErrCredentialsNotFound
	}
	c := *creds
	return &c, nil
}

// Subscriptions

func (s *Storage) Subscribe(ctx context.Context, collection model.Collection, fn storage.SnapshotFunc) (func(), error) {
	if err := storage.ValidateCollection(collection); err != nil {
		return nil, err
	}
	// Holding the read lock keeps writers from publishing between the
	// initial snapshot and registration.
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broker.Subscribe(ctx, collection, fn, s.snapshot(collection)), nil
}

// publish must be called with s.mu held
func (s *Storage) publish(collection model.Collection) {
	if !s.broker.HasSubscribers(collection) {
		return
	}
	s.broker.Publish(s.snapshot(collection))
}

func (s *Storage) snapshot(collection model.Collection) model.Snapshot {
	snap := model.Snapshot{Collection: collection}
	switch collection {
	case model.CollectionTournaments:
		snap.Tournaments = s.tournamentList()
	case model.CollectionClubs:
		snap.Clubs = s.clubList()
	case model.CollectionUsers:
		snap.Users = s.userList()
	}
	return snap
}

func (s *Storage) tournamentList() []*model.Tournament {
	out := make([]*model.Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		out = append(out, t.Clone())
	}
	storage.SortTournaments(out)
	return out
}

func (s *Storage) clubList() []*model.Club {
	out := make([]*model.Club, 0, len(s.clubs))
	for _, c := range s.clubs {
		out = append(out, c.Clone())
	}
	storage.SortClubs(out)
	return out
}

func (s *Storage) userList() []*model.User {
	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	storage.SortUsers(out)
	return out
}
