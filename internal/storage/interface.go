package storage

import (
	"context"
	"time"

	"github.com/mcoot/doublesclub/internal/model"
)

// SnapshotFunc receives the full content of a collection after it changes
type SnapshotFunc func(snap model.Snapshot)

// Storage defines the interface for data persistence.
//
// Reads return copies the caller may modify freely. Every successful write
// causes subscribers of the written collection to receive a fresh snapshot.
type Storage interface {
	// Tournament operations
	ListTournaments(ctx context.Context) ([]*model.Tournament, error)
	GetTournament(ctx context.Context, id model.TournamentID) (*model.Tournament, error)
	CreateTournament(ctx context.Context, t *model.Tournament) error
	// UpdateTournament merges patch into the stored tournament unconditionally.
	// Concurrent whole-array updates race and the last writer wins.
	UpdateTournament(ctx context.Context, id model.TournamentID, patch model.TournamentPatch, at time.Time) (*model.Tournament, error)
	// UpdateTournamentIfVersion merges patch only when the stored version
	// still equals version, otherwise returns model.ErrVersionConflict.
	UpdateTournamentIfVersion(ctx context.Context, id model.TournamentID, version int64, patch model.TournamentPatch, at time.Time) (*model.Tournament, error)
	DeleteTournament(ctx context.Context, id model.TournamentID) error

	// Club operations
	ListClubs(ctx context.Context) ([]*model.Club, error)
	GetClub(ctx context.Context, id model.ClubID) (*model.Club, error)
	SaveClub(ctx context.Context, club *model.Club) error
	DeleteClub(ctx context.Context, id model.ClubID) error

	// User operations
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	SaveUser(ctx context.Context, user *model.User) error

	// Credential operations. Credentials are never part of a snapshot.
	SaveCredentials(ctx context.Context, creds *model.Credentials) error
	GetCredentials(ctx context.Context, username string) (*model.Credentials, error)

	// Subscribe delivers the current snapshot of collection and then a new
	// one after every change, until the returned func is called or ctx ends.
	// Snapshots that pile up undelivered are coalesced; only the latest is kept.
	Subscribe(ctx context.Context, collection model.Collection, fn SnapshotFunc) (func(), error)
}
