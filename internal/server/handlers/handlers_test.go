package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"starfront-server/internal/auth"
	"starfront-server/internal/invasion"
	"starfront-server/internal/middleware"
	"starfront-server/internal/player"
	"starfront-server/internal/shared/cookies"
	"starfront-server/internal/shared/errors"
	"starfront-server/internal/world"
)

type fakeGame struct {
	players   map[string]*player.Player
	invasions []invasion.State
}

func (f *fakeGame) GetState(playerID string) world.State {
	return world.State{Phase: world.PhaseRunning, Radius: 4, Player: f.players[playerID]}
}

func (f *fakeGame) GetPlayer(playerID string) (*player.Player, error) {
	p, ok := f.players[playerID]
	if !ok {
		return nil, errors.NotFound("player not found")
	}
	return p, nil
}

func (f *fakeGame) ActiveInvasions() []invasion.State { return f.invasions }

func withClaims(r *http.Request, playerID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserContextKey, &auth.Claims{PlayerID: playerID})
	return r.WithContext(ctx)
}

func TestGetStateUsesAuthenticatedPlayer(t *testing.T) {
	game := &fakeGame{players: map[string]*player.Player{"p-1": {ID: "p-1", Username: "vega"}}}
	h := NewGameHandler(game)

	rec := httptest.NewRecorder()
	h.GetState(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/state", nil), "p-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var state world.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Player == nil || state.Player.Username != "vega" || state.Radius != 4 {
		t.Fatalf("unexpected state %+v", state)
	}

	rec = httptest.NewRecorder()
	h.GetState(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without claims, got %d", rec.Code)
	}
}

func TestGetMe(t *testing.T) {
	h := NewGameHandler(&fakeGame{players: map[string]*player.Player{}})

	rec := httptest.NewRecorder()
	h.GetMe(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/players/me", nil), "ghost"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown player, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetMe(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/players/me", nil), "ghost"))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestGetInvasions(t *testing.T) {
	h := NewGameHandler(&fakeGame{invasions: []invasion.State{{ID: "inv-1", SourceHexKey: "2,1"}}})

	rec := httptest.NewRecorder()
	h.GetInvasions(rec, httptest.NewRequest(http.MethodGet, "/api/invasions", nil))

	var body struct {
		Invasions []invasion.State `json:"invasions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Invasions) != 1 || body.Invasions[0].SourceHexKey != "2,1" {
		t.Fatalf("unexpected invasions %+v", body.Invasions)
	}
}

func TestHealthReportsStoreStatus(t *testing.T) {
	healthy := NewHealthHandler("memory", func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))

	var resp HealthResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Store != "connected" || resp.Backend != "memory" {
		t.Fatalf("unexpected health %+v", resp)
	}

	broken := NewHealthHandler("postgres", func(context.Context) error { return stderrors.New("connection refused") })
	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server/health", nil))
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Store != "disconnected" {
		t.Fatalf("expected disconnected store, got %+v", resp)
	}
}

func TestSessionLoginSetsCookie(t *testing.T) {
	tokens, err := auth.NewTokens("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	h := NewSessionHandler(tokens, cookies.Policy{SameSite: http.SameSiteLaxMode})

	signed, _ := tokens.GenerateJWT("p-9", "lyra")
	req := httptest.NewRequest(http.MethodPost, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	set := rec.Result().Cookies()
	if len(set) != 1 || set[0].Name != cookies.AuthTokenName || set[0].Value != signed || set[0].MaxAge <= 0 {
		t.Fatalf("unexpected cookies %+v", set)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusUnauthorized || len(rec.Result().Cookies()) != 0 {
		t.Fatalf("forged token must not set a cookie, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}
}
