package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/doublesclub/internal/api/handler"
	"github.com/mcoot/doublesclub/internal/api/middleware"
	"github.com/mcoot/doublesclub/internal/coordinator"
	"github.com/mcoot/doublesclub/internal/push"
	"github.com/mcoot/doublesclub/internal/services/auth"
	"github.com/mcoot/doublesclub/internal/services/club"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	ClubController *club.Controller
	Coordinator    *coordinator.Coordinator
	HubManager     *push.HubManager
	Sessions       *handler.Sessions
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	userHandler := handler.NewUserHandler(cfg.AuthService, cfg.Sessions)
	clubHandler := handler.NewClubHandler(cfg.ClubController, cfg.Coordinator, cfg.HubManager, cfg.Logger)
	tournamentHandler := handler.NewTournamentHandler(cfg.AuthService, cfg.ClubController, cfg.Coordinator, cfg.Sessions)
	notificationHandler := handler.NewNotificationHandler(cfg.Sessions)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// User routes (no auth required for registering/logging in)
	api.HandleFunc("/users/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", userHandler.Login).Methods(http.MethodPost)

	// Protected user routes
	users := api.PathPrefix("/users").Subrouter()
	users.Use(authMiddleware)
	users.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)
	users.HandleFunc("/logout", userHandler.Logout).Methods(http.MethodPost)

	// Club routes (all require auth)
	clubs := api.PathPrefix("/clubs").Subrouter()
	clubs.Use(authMiddleware)
	clubs.HandleFunc("", clubHandler.Create).Methods(http.MethodPost)
	clubs.HandleFunc("", clubHandler.List).Methods(http.MethodGet)
	clubs.HandleFunc("/{club_id}", clubHandler.Get).Methods(http.MethodGet)
	clubs.HandleFunc("/{club_id}/join", clubHandler.Join).Methods(http.MethodPost)
	clubs.HandleFunc("/{club_id}/leave", clubHandler.Leave).Methods(http.MethodPost)
	clubs.HandleFunc("/{club_id}/activate", clubHandler.Activate).Methods(http.MethodPost)
	clubs.HandleFunc("/{club_id}/leaderboard", clubHandler.Leaderboard).Methods(http.MethodGet)
	clubs.HandleFunc("/{club_id}/players/{user_id}/stats", clubHandler.PlayerStats).Methods(http.MethodGet)
	clubs.HandleFunc("/{club_id}/events", clubHandler.Events).Methods(http.MethodGet)
	clubs.HandleFunc("/{club_id}/ws", clubHandler.WebSocket).Methods(http.MethodGet)

	// Tournament routes (all require auth)
	tournaments := api.PathPrefix("/tournaments").Subrouter()
	tournaments.Use(authMiddleware)
	tournaments.HandleFunc("", tournamentHandler.Create).Methods(http.MethodPost)
	tournaments.HandleFunc("", tournamentHandler.List).Methods(http.MethodGet)
	tournaments.HandleFunc("/{tournament_id}", tournamentHandler.Get).Methods(http.MethodGet)
	tournaments.HandleFunc("/{tournament_id}", tournamentHandler.Update).Methods(http.MethodPatch)
	tournaments.HandleFunc("/{tournament_id}", tournamentHandler.Delete).Methods(http.MethodDelete)
	tournaments.HandleFunc("/{tournament_id}/complete", tournamentHandler.Complete).Methods(http.MethodPost)
	tournaments.HandleFunc("/{tournament_id}/reopen", tournamentHandler.Reopen).Methods(http.MethodPost)
	tournaments.HandleFunc("/{tournament_id}/ranking", tournamentHandler.Ranking).Methods(http.MethodGet)

	// Match and score routes
	tournaments.HandleFunc("/{tournament_id}/matches", tournamentHandler.AddMatch).Methods(http.MethodPost)
	tournaments.HandleFunc("/{tournament_id}/matches/{match_id}", tournamentHandler.DeleteMatch).Methods(http.MethodDelete)
	tournaments.HandleFunc("/{tournament_id}/matches/{match_id}/score", tournamentHandler.SetScore).Methods(http.MethodPut)
	tournaments.HandleFunc("/{tournament_id}/matches/{match_id}/pending", tournamentHandler.SetPending).Methods(http.MethodPut)
	tournaments.HandleFunc("/{tournament_id}/matches/{match_id}/pending", tournamentHandler.DiscardPending).Methods(http.MethodDelete)
	tournaments.HandleFunc("/{tournament_id}/pending", tournamentHandler.ListPending).Methods(http.MethodGet)
	tournaments.HandleFunc("/{tournament_id}/save", tournamentHandler.Save).Methods(http.MethodPost)

	// Notifications (auth required)
	notifications := api.PathPrefix("/notifications").Subrouter()
	notifications.Use(authMiddleware)
	notifications.HandleFunc("", notificationHandler.Drain).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Coordinator)).Methods(http.MethodGet)

	return r
}

// healthHandler reports ok once the coordinator mirror is loaded
func healthHandler(coord *coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if coord != nil && !coord.Started() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"starting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
