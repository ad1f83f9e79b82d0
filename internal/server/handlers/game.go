package handlers

import (
	"log/slog"
	"net/http"

	"starfront-server/internal/invasion"
	"starfront-server/internal/middleware"
	"starfront-server/internal/player"
	"starfront-server/internal/shared/errors"
	"starfront-server/internal/shared/response"
	"starfront-server/internal/world"
)

// GameReader is the read side of the world the REST endpoints expose.
type GameReader interface {
	GetState(playerID string) world.State
	GetPlayer(playerID string) (*player.Player, error)
	ActiveInvasions() []invasion.State
}

type GameHandler struct {
	game GameReader
}

func NewGameHandler(game GameReader) *GameHandler {
	return &GameHandler{game: game}
}

// GetState serves the map as seen by the authenticated player.
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "state", "remote_addr", r.RemoteAddr)
	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	response.Success(w, http.StatusOK, h.game.GetState(claims.PlayerID))
}

// GetMe serves the authenticated player's record. The player must have
// connected at least once since the server started.
func (h *GameHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me", "remote_addr", r.RemoteAddr)
	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	logger = logger.With("player_id", claims.PlayerID, "username", claims.Username)
	p, err := h.game.GetPlayer(claims.PlayerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	logger.Debug("User info requested")
	response.Success(w, http.StatusOK, p)
}

func (h *GameHandler) GetInvasions(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "invasions", "remote_addr", r.RemoteAddr)
	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	response.Success(w, http.StatusOK, map[string]interface{}{
		"invasions": h.game.ActiveInvasions(),
	})
}
