package handler

import (
	"log/slog"
	"sync"

	"github.com/mcoot/doublesclub/internal/coordinator"
	"github.com/mcoot/doublesclub/internal/dependencies/clock"
	"github.com/mcoot/doublesclub/internal/notify"
	"github.com/mcoot/doublesclub/internal/services/auth"
)

// Sessions binds each auth session to a coordinator session and a
// notification inbox the client drains
type Sessions struct {
	coord  *coordinator.Coordinator
	auth   *auth.Service
	clock  clock.Clock
	logger *slog.Logger
	log    notify.Sink

	mu      sync.Mutex
	inboxes map[string]*notify.Inbox
}

// NewSessions creates an empty registry
func NewSessions(coord *coordinator.Coordinator, authService *auth.Service, clock clock.Clock, logger *slog.Logger) *Sessions {
	logger = logger.With(slog.String("component", "sessions"))
	return &Sessions{
		coord:   coord,
		auth:    authService,
		clock:   clock,
		logger:  logger,
		log:     notify.NewLogSink(logger),
		inboxes: make(map[string]*notify.Inbox),
	}
}

// For returns the coordinator session and inbox for an auth token
func (s *Sessions) For(token string) (*coordinator.Session, *notify.Inbox) {
	s.mu.Lock()
	inbox, ok := s.inboxes[token]
	if !ok {
		inbox = notify.NewInbox(s.clock, notify.DefaultInboxSize)
		s.inboxes[token] = inbox
	}
	s.mu.Unlock()
	return s.coord.Session(token, notify.Multi{inbox, s.log}), inbox
}

// End drops the coordinator session and inbox for a token
func (s *Sessions) End(token string) {
	s.mu.Lock()
	delete(s.inboxes, token)
	s.mu.Unlock()
	s.coord.EndSession(token)
}

// Len returns the number of bound sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inboxes)
}

// CleanExpiredSessions expires auth sessions and then drops every bound
// session whose token no longer validates. Returns the number of auth
// sessions removed.
func (s *Sessions) CleanExpiredSessions() int {
	removed := s.auth.CleanExpiredSessions()

	s.mu.Lock()
	var stale []string
	for token := range s.inboxes {
		if _, err := s.auth.ValidateSession(token); err != nil {
			stale = append(stale, token)
		}
	}
	s.mu.Unlock()

	for _, token := range stale {
		s.End(token)
	}
	if len(stale) > 0 {
		s.logger.Info("dropped stale sessions", slog.Int("count", len(stale)))
	}
	return removed
}
