package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"starfront-server/internal/auth"
	"starfront-server/internal/shared/cookies"
	"starfront-server/internal/shared/errors"
	"starfront-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

// TokenValidator resolves a raw token into player claims.
type TokenValidator interface {
	ValidateJWT(token string) (*auth.Claims, error)
}

// TokenFromRequest looks for a token in the auth cookie, then the bearer
// header, then the token query parameter. Browsers cannot set headers on a
// socket upgrade, hence the query fallback.
func TokenFromRequest(r *http.Request) string {
	if token := cookies.AuthToken(r); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// Authenticate validates the request token and returns its claims.
func Authenticate(tokens TokenValidator, r *http.Request) (*auth.Claims, error) {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil, errors.Unauthorized("authentication required")
	}
	return tokens.ValidateJWT(raw)
}

func JWTMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := slog.With(
				"middleware", "jwt",
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			logger.Debug("Processing JWT authentication")

			// Validate JWT token from cookie, header or query
			claims, err := Authenticate(tokens, r)
			if err != nil {
				response.Error(w, r, logger, err)
				return
			}

			// Add user info to request context
			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			logger.Debug("JWT authentication successful",
				"player_id", claims.PlayerID,
				"username", claims.Username)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper to get user from context
func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
