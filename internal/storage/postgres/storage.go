package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/storage"
)

// Storage is a PostgreSQL-backed implementation of the storage interface.
//
// Every document lives in one JSONB table keyed by (collection, id). Writes
// raise a NOTIFY inside their transaction, so listeners only hear about
// committed changes.
type Storage struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	listeners map[int]*pq.Listener
	nextSub   int
}

// Connect opens a pooled database handle and verifies it with a ping
func Connect(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, model.NewRemoteError("open", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, model.NewRemoteError("ping", err)
	}
	return db, nil
}

// New connects, migrates and returns a ready storage instance
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	s := NewWithDB(db, cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB creates a storage on an existing handle. cfg.URL is still needed
// for LISTEN connections.
func NewWithDB(db *sql.DB, cfg Config, logger *slog.Logger) *Storage {
	return &Storage{
		db:        db,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "postgres_storage")),
		listeners: make(map[int]*pq.Listener),
	}
}

// Close stops all listeners and closes the database handle
func (s *Storage) Close() error {
	s.mu.Lock()
	for id, l := range s.listeners {
		_ = l.Close()
		delete(s.listeners, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Tournament operations

func (s *Storage) ListTournaments(ctx context.Context) ([]*model.Tournament, error) {
	ts, err := listDocs[model.Tournament](ctx, s.db, model.CollectionTournaments)
	if err != nil {
		return nil, wrap("list tournaments", err)
	}
	storage.SortTournaments(ts)
	return ts, nil
}

func (s *Storage) GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	t, err := getDoc[model.Tournament](ctx, s.db, model.CollectionTournaments, string(id), model.ErrTournamentNotFound, false)
	return t, wrap("get tournament", err)
}

func (s *Storage) CreateTournament(ctx context.Context, t *model.Tournament) error {
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, version, body, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			model.CollectionTournaments, string(t.ID), t.Version, body, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
				return model.ErrAlreadyExists
			}
			return err
		}
		return notify(ctx, tx, model.CollectionTournaments)
	})
	return wrap("create tournament", err)
}

func (s *Storage) UpdateTournament(ctx context.Context, id model.TournamentID, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	t, err := s.updateTournament(ctx, id, nil, patch, at)
	return t, wrap("update tournament", err)
}

func (s *Storage) UpdateTournamentIfVersion(ctx context.Context, id model.TournamentID, version int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	t, err := s.updateTournament(ctx, id, &version, patch, at)
	return t, wrap("update tournament", err)
}

// updateTournament locks the row with SELECT ... FOR UPDATE, so concurrent
// writers serialise and each merges into the latest committed state.
func (s *Storage) updateTournament(ctx context.Context, id model.TournamentID, version *int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error) {
	var updated *model.Tournament
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getDoc[model.Tournament](ctx, tx, model.CollectionTournaments, string(id), model.ErrTournamentNotFound, true)
		if err != nil {
			return err
		}
		if version != nil && t.Version != *version {
			return model.ErrVersionConflict
		}

		patch.Apply(t)
		t.Version++
		t.UpdatedAt = at

		body, err := json.Marshal(t)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET body = $3, version = $4, updated_at = $5
			 WHERE collection = $1 AND id = $2`,
			model.CollectionTournaments, string(id), body, t.Version, at)
		if err != nil {
			return err
		}
		updated = t
		return notify(ctx, tx, model.CollectionTournaments)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Storage) DeleteTournament(ctx context.Context, id model.TournamentID) error {
	return wrap("delete tournament", s.deleteDoc(ctx, model.CollectionTournaments, string(id)))
}

// Club operations

func (s *Storage) ListClubs(ctx context.Context) ([]*model.Club, error) {
	clubs, err := listDocs[model.Club](ctx, s.db, model.CollectionClubs)
	if err != nil {
		return nil, wrap("list clubs", err)
	}
	storage.SortClubs(clubs)
	return clubs, nil
}

func (s *Storage) GetClub(ctx context.Context, id model.ClubID) (*model.Club, error) {
	club, err := getDoc[model.Club](ctx, s.db, model.CollectionClubs, string(id), model.ErrClubNotFound, false)
	return club, wrap("get club", err)
}

func (s *Storage) SaveClub(ctx context.Context, club *model.Club) error {
	return wrap("save club", s.saveDoc(ctx, model.CollectionClubs, string(club.ID), club, club.CreatedAt, club.UpdatedAt))
}

func (s *Storage) DeleteClub(ctx context.Context, id model.ClubID) error {
	return wrap("delete club", s.deleteDoc(ctx, model.CollectionClubs, string(id)))
}

// User operations

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := listDocs[model.User](ctx, s.db, model.CollectionUsers)
	if err != nil {
		return nil, wrap("list users", err)
	}
	storage.SortUsers(users)
	return users, nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	user, err := getDoc[model.User](ctx, s.db, model.CollectionUsers, string(id), model.ErrUserNotFound, false)
	return user, wrap("get user", err)
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	return wrap("save user", s.saveDoc(ctx, model.CollectionUsers, string(user.ID), user, user.CreatedAt, user.UpdatedAt))
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	// The conditional upsert only overwrites rows owned by the same user
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (username, user_id, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (username) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
		 WHERE credentials.user_id = EXCLUDED.user_id`,
		strings.ToLower(creds.Username), string(creds.UserID), creds.PasswordHash, creds.CreatedAt, creds.UpdatedAt)
	if err != nil {
		return wrap("save credentials", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("save credentials", err)
	}
	if n == 0 {
		return model.ErrAlreadyExists
	}
	return nil
}

func (s *Storage) GetCredentials(ctx context.Context, username string) (*model.Credentials, error) {
	var creds model.Credentials
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT username, user_id, password_hash, created_at, updated_at
		 FROM credentials WHERE username = $1`,
		strings.ToLower(username)).
		Scan(&creds.Username, &userID, &creds.PasswordHash, &creds.CreatedAt, &creds.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCredentialsNotFound
		}
		return nil, wrap("get credentials", err)
	}
	creds.UserID = model.UserID(userID)
	return &creds, nil
}

// Subscriptions

func (s *Storage) Subscribe(ctx context.Context, collection model.Collection, fn storage.SnapshotFunc) (func(), error) {
	if err := storage.ValidateCollection(collection); err != nil {
		return nil, err
	}

	listener := pq.NewListener(s.cfg.URL, s.cfg.MinReconnectInterval, s.cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				s.logger.Warn("listener event",
					slog.Int("event", int(ev)),
					slog.String("error", err.Error()),
				)
			}
		})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, wrap("listen", err)
	}

	initial, err := s.snapshot(ctx, collection)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = listener
	s.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	go s.watch(subCtx, listener, collection, fn, initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			s.mu.Lock()
			if _, ok := s.listeners[id]; ok {
				delete(s.listeners, id)
				_ = listener.Close()
			}
			s.mu.Unlock()
		})
	}, nil
}

// watch refetches the collection when a matching notification arrives. A nil
// notification means the listener reconnected and may have missed changes.
func (s *Storage) watch(ctx context.Context, listener *pq.Listener, collection model.Collection, fn storage.SnapshotFunc, initial model.Snapshot) {
	fn(initial)

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
			retry = time.After(s.cfg.MinReconnectInterval)
			return
		}
		retry = nil
		fn(snap)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-listener.Notify:
			if !ok {
				return
			}
			if n != nil && n.Extra != string(collection) {
				continue
			}
			refresh()
		case <-retry:
			refresh()
		case <-time.After(90 * time.Second):
			go func() { _ = listener.Ping() }()
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

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) saveDoc(ctx context.Context, collection model.Collection, id string, doc any, createdAt, updatedAt time.Time) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, body, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (collection, id) DO UPDATE
			 SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at, version = documents.version + 1`,
			collection, id, body, createdAt, updatedAt)
		if err != nil {
			return err
		}
		return notify(ctx, tx, collection)
	})
}

func (s *Storage) deleteDoc(ctx context.Context, collection model.Collection, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}
		return notify(ctx, tx, collection)
	})
}

func notify(ctx context.Context, tx *sql.Tx, collection model.Collection) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(collection))
	return err
}

func getDoc[T any](ctx context.Context, q querier, collection model.Collection, id string, notFound error, forUpdate bool) (*T, error) {
	query := `SELECT body FROM documents WHERE collection = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var body []byte
	if err := q.QueryRowContext(ctx, query, collection, id).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}

	var doc T
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func listDocs[T any](ctx context.Context, q querier, collection model.Collection) ([]*T, error) {
	rows, err := q.QueryContext(ctx, `SELECT body FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*T, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal(body, &doc); err != nil {
			continue // Skip invalid data
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// wrap passes domain errors through and marks everything else as a remote failure
func wrap(op string, err error) error {
	if err == nil ||
		errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrConflict) ||
		errors.Is(err, model.ErrValidation) ||
		errors.Is(err, model.ErrRemote) {
		return err
	}
	return model.NewRemoteError(op, err)
}
