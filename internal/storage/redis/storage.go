package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Documents are JSON strings with one index SET per collection. Writes
// publish the collection name on a changes channel; subscribers refetch the
// whole collection when notified.
type Storage struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	cancels map[int]context.CancelFunc
	nextSub int
}

// New creates a new Redis storage instance
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, model.NewRemoteError("ping", err)
	}

	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, logger *slog.Logger) *Storage {
	if cfg.MaxWatchRetries <= 0 {
		cfg.MaxWatchRetries = DefaultConfig().MaxWatchRetries
	}
	if cfg.ResubscribeDelay <= 0 {
		cfg.ResubscribeDelay = DefaultConfig().ResubscribeDelay
	}
	return &Storage{
		client:  client,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "redis_storage")),
		cancels: make(map[int]context.CancelFunc),
	}
}

// Close ends all subscriptions and closes the Redis connection
func (s *Storage) Close() error {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Tournament operations

func (s *Storage) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	ts, err := listDocs[model.Tournament](ctx, s.client, model.CollectionTournaments)
	if err != nil {
		return nil, wrap("list tournaments", err)
	}
	storage.SortTournaments(ts)
	return ts, nil
}

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	t, err := getDoc[model.Tournament](ctx, s.client, tournamentKey(id), model.ErrTournamentNotFound)
	return t, wrap("get tournament", err)
}

func (s *Storage) CreateTournament(ctx context.Context, t *model.Tournament) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	key := tournamentKey(t.ID)
	created, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return wrap("create tournament", err)
	}
	if !created {
		return model.ErrAlreadyExists
	}

	pipe := s.client.Pipeline()
	pipe.SAdd(ctx, collectionIndexKey(model.CollectionTournaments), key)
	pipe.Publish(ctx, changesChannel(model.CollectionTournaments), string(t.ID))
	_, err = pipe.Exec(ctx)
	return wrap("create tournament", err)
}

func (s *Storage) UpdateTournament(ctx context.Context, id model.TournamentID, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	for attempt := 0; attempt < s.cfg.MaxWatchRetries; attempt++ {
		updated, err := s.updateTournament(ctx, id, nil, patch, at)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return updated, wrap("update tournament", err)
	}
	return nil, model.NewRemoteError("update tournament", fmt.Errorf("gave up after %d contended attempts", s.cfg.MaxWatchRetries))
}

func (s *Storage) UpdateTournamentIfVersion(ctx context.Context, id model.TournamentID, version int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	updated, err := s.updateTournament(ctx, id, &version, patch, at)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer committed between WATCH and EXEC, so the version moved
		return nil, model.ErrVersionConflict
	}
	return updated, wrap("update tournament", err)
}

// updateTournament performs one WATCH/MULTI/EXEC round. It returns
// redis.TxFailedErr when the key changed underneath it.
func (s *Storage) updateTournament(ctx context.Context, id model.TournamentID, version *int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	key := tournamentKey(id)
	var updated *model.Tournament

	txf := func(tx *redis.Tx) error {
		t, err := getDoc[model.Tournament](ctx, tx, key, model.ErrTournamentNotFound)
		if err != nil {
			return err
		}
		if version != nil && t.Version != *version {
			return model.ErrVersionConflict
		}

		patch.Apply(t)
		t.Version++
		t.UpdatedAt = at

		data, err := json.Marshal(t)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Publish(ctx, changesChannel(model.CollectionTournaments), string(id))
			return nil
		})
		if err != nil {
			return err
		}
		updated = t
		return nil
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Storage) DeleteTournament(ctx context.Context, id model.TournamentID) error {
	return wrap("delete tournament", s.deleteDoc(ctx, model.CollectionTournaments, tournamentKey(id), string(id)))
}

// Club operations

func (s *Storage) ListClubs(ctx context.Context) ([]*model.Club, error) {
	clubs, err := listDocs[model.Club](ctx, s.client, model.CollectionClubs)
	if err != nil {
		return nil, wrap("list clubs", err)
	}
	storage.SortClubs(clubs)
	return clubs, nil
}

func (s *Storage) GetClub(ctx context.Context, id model.ClubID) (*model.Club, error) {
	club, err := getDoc[model.Club](ctx, s.client, clubKey(id), model.ErrClubNotFound)
	return club, wrap("get club", err)
}

func (s *Storage) SaveClub(ctx context.Context, club *model.Club) error {
	return wrap("save club", s.saveDoc(ctx, model.CollectionClubs, clubKey(club.ID), string(club.ID), club))
}

func (s *Storage) DeleteClub(ctx context.Context, id model.ClubID) error {
	return wrap("delete club", s.deleteDoc(ctx, model.CollectionClubs, clubKey(id), string(id)))
}

// User operations

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := listDocs[model.User](ctx, s.client, model.CollectionUsers)
	if err != nil {
		return nil, wrap("list users", err)
	}
	storage.SortUsers(users)
	return users, nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	user, err := getDoc[model.User](ctx, s.client, userKey(id), model.ErrUserNotFound)
	return user, wrap("get user", err)
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	return wrap("save user", s.saveDoc(ctx, model.CollectionUsers, userKey(user.ID), string(user.ID), user))
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	key := credentialsKey(creds.Username)

	txf := func(tx *redis.Tx) error {
		existing, err := getDoc[model.Credentials](ctx, tx, key, model.ErrCredentialsNotFound)
		switch {
		case errors.Is(err, model.ErrCredentialsNotFound):
		case err != nil:
			return err
		case existing.UserID != creds.UserID:
			return model.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrAlreadyExists
	}
	return wrap("save credentials", err)
}

func (s *Storage) GetCredentials(ctx context.Context, username string) (*model.Credentials, error) {
	creds, err := getDoc[model.Credentials](ctx, s.client, credentialsKey(username), model.ErrCredentialsNotFound)
	return creds, wrap("get credentials", err)
}

// Subscriptions

func (s *Storage) Subscribe(ctx context.Context, collection model.Collection, fn storage.SnapshotFunc) (func(), error) {
	if err := storage.ValidateCollection(collection); err != nil {
		return nil, err
	}

	pubsub := s.client.Subscribe(ctx, changesChannel(collection))
	// Wait for the subscription to be confirmed so no write is missed
	// between the initial snapshot and the first notification.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, wrap("subscribe", err)
	}

	initial, err := s.snapshot(ctx, collection)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.cancels[id] = cancel
	s.mu.Unlock()

	go s.watch(subCtx, pubsub, collection, fn, initial)

	return func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.mu.Unlock()
		cancel()
	}, nil
}

// watch delivers initial, then refetches the collection whenever a change is
// announced. Notifications queued while a refetch runs collapse into one.
func (s *Storage) watch(ctx context.Context, pubsub *redis.PubSub, collection model.Collection, fn storage.SnapshotFunc, initial model.Snapshot) {
	defer pubsub.Close()
	fn(initial)

	ch := pubsub.Channel()
	var retry <-chan time.Time

	refresh := func() {
		snap, err := s.snapshot(ctx, collection)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("snapshot refresh failed",
				slog.String("collection", string(collection)),
				slog.String("error", err.Error()),
			)
			retry = time.After(s.cfg.ResubscribeDelay)
			return
		}
		retry = nil
		fn(snap)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			drain(ch)
			refresh()
		case <-retry:
			refresh()
		}
	}
}

func drain(ch <-chan *redis.Message) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *Storage) snapshot(ctx context.Context, collection model.Collection) (model.Snapshot, error) {
	snap := model.Snapshot{Collection: collection}
	var err error
	switch collection {
	case model.CollectionTournaments:
		snap.Tournaments, err = s.ListTournaments(ctx)
	case model.CollectionClubs:
		snap.Clubs, err = s.ListClubs(ctx)
	case model.CollectionUsers:
		snap.Users, err = s.ListUsers(ctx)
	}
	return snap, err
}

// Document helpers

func (s *Storage) saveDoc(ctx context.Context, collection model.Collection, key, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.SAdd(ctx, collectionIndexKey(collection), key)
		pipe.Publish(ctx, changesChannel(collection), id)
		return nil
	})
	return err
}

func (s *Storage) deleteDoc(ctx context.Context, collection model.Collection, key, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, collectionIndexKey(collection), key)
		pipe.Publish(ctx, changesChannel(collection), id)
		return nil
	})
	return err
}

func getDoc[T any](ctx context.Context, client redis.Cmdable, key string, notFound error) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func listDocs[T any](ctx context.Context, client redis.Cmdable, collection model.Collection) ([]*T, error) {
	keys, err := client.SMembers(ctx, collectionIndexKey(collection)).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]*T, 0, len(keys))
	if len(keys) == 0 {
		return docs, nil
	}

	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Deleted since the index was read
		}
		var doc T
		if err := json.Unmarshal([]byte(str), &doc); err != nil {
			continue // Skip invalid data
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// wrap passes domain errors through and marks everything else as a remote failure
func wrap(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return model.NewRemoteError(op, err)
}

func isDomainError(err error) bool {
	return errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrConflict) ||
		errors.Is(err, model.ErrValidation) ||
		errors.Is(err, model.ErrRemote)
}
