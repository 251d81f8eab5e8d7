package housekeeping

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// HubCleaner drops push hubs nobody is watching
type HubCleaner interface {
	CleanupEmptyHubs() int
}

// SessionCleaner drops expired login sessions
type SessionCleaner interface {
	CleanExpiredSessions() int
}

// Config holds the job intervals
type Config struct {
	HubCleanupInterval     time.Duration
	SessionCleanupInterval time.Duration
}

// DefaultConfig returns default housekeeping configuration
func DefaultConfig() Config {
	return Config{
		HubCleanupInterval:     5 * time.Minute,
		SessionCleanupInterval: 15 * time.Minute,
	}
}

// Scheduler runs periodic cleanup jobs
type Scheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
}

// New creates a Scheduler with one job per cleaner. Jobs do not run until
// Start is called.
func New(cfg Config, hubs HubCleaner, sessions SessionCleaner, logger *slog.Logger) (*Scheduler, error) {
	defaults := DefaultConfig()
	if cfg.HubCleanupInterval <= 0 {
		cfg.HubCleanupInterval = defaults.HubCleanupInterval
	}
	if cfg.SessionCleanupInterval <= 0 {
		cfg.SessionCleanupInterval = defaults.SessionCleanupInterval
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		sched:  sched,
		logger: logger.With(slog.String("component", "housekeeping")),
	}

	if hubs != nil {
		if err := s.every(cfg.HubCleanupInterval, "hub_cleanup", hubs.CleanupEmptyHubs); err != nil {
			return nil, err
		}
	}
	if sessions != nil {
		if err := s.every(cfg.SessionCleanupInterval, "session_cleanup", sessions.CleanExpiredSessions); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) every(interval time.Duration, name string, fn func() int) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if removed := fn(); removed > 0 {
				s.logger.Info("housekeeping job removed items",
					slog.String("job", name),
					slog.Int("removed", removed))
			}
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("housekeeping started", slog.Int("jobs", len(s.sched.Jobs())))
}

// Shutdown stops the scheduler and waits for running jobs
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
