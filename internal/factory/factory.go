package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/doublesclub/internal/api/handler"
	"github.com/mcoot/doublesclub/internal/coordinator"
	"github.com/mcoot/doublesclub/internal/dependencies/clock"
	"github.com/mcoot/doublesclub/internal/dependencies/idgen"
	"github.com/mcoot/doublesclub/internal/dependencies/random"
	"github.com/mcoot/doublesclub/internal/push"
	"github.com/mcoot/doublesclub/internal/services/auth"
	"github.com/mcoot/doublesclub/internal/services/club"
	"github.com/mcoot/doublesclub/internal/services/scheduler"
	"github.com/mcoot/doublesclub/internal/services/tournament"
	"github.com/mcoot/doublesclub/internal/storage"
	"github.com/mcoot/doublesclub/internal/storage/memory"
	pgstorage "github.com/mcoot/doublesclub/internal/storage/postgres"
	redisstorage "github.com/mcoot/doublesclub/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	IDs    idgen.Generator

	// Services
	Scheduler            *scheduler.Service
	AuthService          *auth.Service
	ClubController       *club.Controller
	TournamentController *tournament.Controller

	// Sync and push
	Coordinator *coordinator.Coordinator
	Sessions    *handler.Sessions
	HubManager  *push.HubManager
	Relay       *push.Relay

	closer io.Closer
}

// Close releases the storage backend and closes every push hub
func (a *App) Close() error {
	a.Coordinator.Stop()
	a.HubManager.Close()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
}

// New creates a new application with all dependencies wired. The
// coordinator is not started.
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	var closer io.Closer
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		mem := memory.New()
		store, closer = mem, mem
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig, logger)
		if err != nil {
			return nil, err
		}
		store, closer = redisStore, redisStore
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(*cfg.PostgresConfig, logger)
		if err != nil {
			return nil, err
		}
		store, closer = pgStore, pgStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	app := newWithDependencies(store, clock.New(), random.New(), idgen.New(), authCfg, logger)
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	ids idgen.Generator,
	authCfg auth.Config,
	logger *slog.Logger,
) *App {
	sched := scheduler.New(clk, rnd, ids)
	authService := auth.New(store, clk, ids, authCfg, logger)
	clubController := club.NewController(store, clk, ids, logger)
	tournamentController := tournament.NewController(store, sched, clk, ids, logger)
	coord := coordinator.New(store, tournamentController, logger)
	hubManager := push.NewHubManager(logger)
	relay := push.NewRelay(hubManager, logger)
	coord.OnTournaments(relay.HandleTournaments)

	return &App{
		Storage:              store,
		Clock:                clk,
		Random:               rnd,
		IDs:                  ids,
		Scheduler:            sched,
		AuthService:          authService,
		ClubController:       clubController,
		TournamentController: tournamentController,
		Coordinator:          coord,
		Sessions:             handler.NewSessions(coord, authService, clk, logger),
		HubManager:           hubManager,
		Relay:                relay,
	}
}
