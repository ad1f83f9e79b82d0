package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"starfront-server/internal/middleware"
	"starfront-server/internal/shared/cookies"
	"starfront-server/internal/shared/errors"
	"starfront-server/internal/shared/response"
)

// SessionHandler moves an externally issued token into the http-only auth
// cookie so browsers can open the socket without exposing it to scripts.
type SessionHandler struct {
	tokens middleware.TokenValidator
	policy cookies.Policy
	now    func() time.Time
}

func NewSessionHandler(tokens middleware.TokenValidator, policy cookies.Policy) *SessionHandler {
	return &SessionHandler{tokens: tokens, policy: policy, now: time.Now}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "session", "remote_addr", r.RemoteAddr)
	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		response.Error(w, r, logger, errors.Unauthorized("bearer token required"))
		return
	}
	raw = strings.TrimSpace(raw)

	claims, err := h.tokens.ValidateJWT(raw)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	ttl := time.Hour
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(h.now())
	}
	h.policy.SetAuthCookie(w, raw, ttl)

	logger.Info("Session cookie issued", "player_id", claims.PlayerID)
	response.Success(w, http.StatusOK, map[string]interface{}{
		"player_id": claims.PlayerID,
		"username":  claims.Username,
	})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout", "remote_addr", r.RemoteAddr)
	logger.Debug("Logout requested")

	h.policy.ClearAuthCookie(w)

	response.Success(w, http.StatusOK, map[string]interface{}{"message": "Logged out"})
	logger.Info("User logged out successfully")
}
