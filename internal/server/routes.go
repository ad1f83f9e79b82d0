package server

import (
	"log/slog"
	"net/http"

	"starfront-server/internal/middleware"
	serverHandlers "starfront-server/internal/server/handlers"
	"starfront-server/internal/shared/cookies"
)

type Routes struct {
	game   serverHandlers.GameReader
	socket http.Handler
	health *serverHandlers.HealthHandler
	tokens middleware.TokenValidator
	policy cookies.Policy
}

func NewRoutes(game serverHandlers.GameReader, socket http.Handler, health *serverHandlers.HealthHandler, tokens middleware.TokenValidator, policy cookies.Policy) *Routes {
	return &Routes{
		game:   game,
		socket: socket,
		health: health,
		tokens: tokens,
		policy: policy,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()
	requireAuth := middleware.JWTMiddleware(r.tokens)
	gameHandler := serverHandlers.NewGameHandler(r.game)
	sessionHandler := serverHandlers.NewSessionHandler(r.tokens, r.policy)

	// Public endpoints
	mux.Handle("/api/server/health", r.health)
	mux.HandleFunc("/api/invasions", gameHandler.GetInvasions)

	// Protected endpoints (authenticated users)
	mux.Handle("/api/state", requireAuth(http.HandlerFunc(gameHandler.GetState)))
	mux.Handle("/api/players/me", requireAuth(http.HandlerFunc(gameHandler.GetMe)))

	// Cookie exchange for browsers
	mux.HandleFunc("/auth/session", sessionHandler.Login)
	mux.HandleFunc("/auth/logout", sessionHandler.Logout)

	// Socket authenticates before the upgrade
	mux.Handle("/ws", r.socket)

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/invasions"},
		"protected_endpoints", []string{"/api/state", "/api/players/me"},
		"auth_endpoints", []string{"/auth/session", "/auth/logout"},
		"socket_endpoints", []string{"/ws"},
	)

	return mux
}
