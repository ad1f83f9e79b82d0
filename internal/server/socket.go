package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"starfront-server/internal/combat"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/middleware"
	"starfront-server/internal/mining"
	"starfront-server/internal/player"
	"starfront-server/internal/shared/config"
	"starfront-server/internal/shared/errors"
	"starfront-server/internal/shared/response"
	"starfront-server/internal/world"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Game is the world surface a socket session drives.
type Game interface {
	Connect(ctx context.Context, playerID, username string) (*player.Player, error)
	Disconnect(playerID string)
	MovePlayer(playerID string, target hexmap.Coord) (*player.Player, error)
	ColonizeSystem(playerID string, target hexmap.Coord) (world.CellView, error)
	DevelopColony(playerID string, target hexmap.Coord) (world.CellView, error)
	GetPlanetarySystem(ctx context.Context, target hexmap.Coord) (hexmap.PlanetarySystem, error)
	StartPvPCombat(playerID, targetID string) (combat.Snapshot, error)
	StartBotCombat(playerID string) (combat.Snapshot, error)
	StartInvasionCombat(playerID string) (combat.Snapshot, error)
	ApplyControl(playerID string, c combat.Control) bool
	FireWeapon(playerID, weaponID string) bool
	GetCombat(playerID string) (combat.Snapshot, error)
	EndCombat(playerID string) (combat.Result, error)
	StartMining(playerID string) (mining.Snapshot, error)
	SetMiningControl(playerID string, c mining.Control) bool
	ExitMining(playerID string) (world.MiningOutcome, error)
	GetState(playerID string) world.State
	GetPlayer(playerID string) (*player.Player, error)
	TrainSkill(playerID, skill string) (*player.Player, error)
	DepositCargo(ctx context.Context, playerID string) (player.StationStorage, error)
	ActiveInvasions() []invasion.State
}

const (
	intentMove           = "move"
	intentColonize       = "colonize"
	intentDevelop        = "develop"
	intentSystem         = "get_system"
	intentStartPvP       = "start_pvp"
	intentStartBot       = "start_bot"
	intentStartInvasion  = "start_invasion"
	intentControl        = "control"
	intentFire           = "fire"
	intentGetCombat      = "get_combat"
	intentEndCombat      = "end_combat"
	intentStartMining    = "start_mining"
	intentMiningControl  = "mining_control"
	intentExitMining     = "exit_mining"
	intentGetState       = "get_state"
	intentGetPlayer      = "get_player"
	intentTrainSkill     = "train_skill"
	intentDepositCargo   = "deposit_cargo"
	intentListInvasions  = "list_invasions"
	messageWelcome       = "welcome"
	messageResult        = "result"
	malformedReason      = "malformed message"
	unknownIntentMessage = "unknown intent"
)

// intent is a client message. Only the fields its type uses are read.
type intent struct {
	Type     string       `json:"type"`
	ID       string       `json:"id,omitempty"`
	Target   hexmap.Coord `json:"target"`
	TargetID string       `json:"targetId,omitempty"`
	WeaponID string       `json:"weaponId,omitempty"`
	Skill    string       `json:"skill,omitempty"`
	Thrust   float64      `json:"thrust"`
	Turn     float64      `json:"turn"`
	Strafe   float64      `json:"strafe"`
	Boost    bool         `json:"boost"`
	Firing   bool         `json:"firing"`
}

type result struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Intent string `json:"intent,omitempty"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type SocketHandler struct {
	game     Game
	hub      *Hub
	tokens   middleware.TokenValidator
	limits   config.RateLimitConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewSocketHandler(game Game, hub *Hub, tokens middleware.TokenValidator, limits config.RateLimitConfig, frontendURL string, logger *slog.Logger) *SocketHandler {
	return &SocketHandler{
		game:   game,
		hub:    hub,
		tokens: tokens,
		limits: limits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(frontendURL),
		},
		logger: logger.With("component", "socket"),
	}
}

// originChecker accepts the configured frontend, same-host pages and
// non-browser clients that send no Origin.
func originChecker(frontendURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == frontendURL {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

func (h *SocketHandler) controlLimiter() *rate.Limiter {
	if !h.limits.Enabled || h.limits.ControlsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(h.limits.ControlsPerSecond), h.limits.ControlBurst)
}

func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("operation", "serve", "remote_addr", r.RemoteAddr)

	claims, err := middleware.Authenticate(h.tokens, r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	logger = logger.With("player_id", claims.PlayerID)

	if _, err := h.game.Connect(r.Context(), claims.PlayerID, claims.Username); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Socket upgrade failed", "error", err)
		h.game.Disconnect(claims.PlayerID)
		return
	}

	c := newClient(claims.PlayerID, conn, h.controlLimiter())
	if prev := h.hub.register(c); prev != nil {
		logger.Info("Replacing existing socket")
		prev.close()
	}
	go c.writePump()
	logger.Info("Player socket connected", "online", h.hub.Online())

	h.reply(c, result{Type: messageWelcome, OK: true, Data: h.game.GetState(claims.PlayerID)})
	h.readPump(c, logger)

	c.close()
	if h.hub.unregister(c) {
		h.game.Disconnect(claims.PlayerID)
	}
	logger.Info("Player socket disconnected")
}

func (h *SocketHandler) readPump(c *client, logger *slog.Logger) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Socket read ended", "error", err)
			}
			return
		}

		var in intent
		if err := json.Unmarshal(payload, &in); err != nil {
			logger.Debug("Discarding malformed message", "error", err)
			h.reply(c, result{Type: messageResult, OK: false, Reason: malformedReason})
			continue
		}

		if h.streamed(c, in) {
			continue
		}

		data, err := h.dispatch(c.playerID, in)
		res := result{Type: messageResult, ID: in.ID, Intent: in.Type, OK: err == nil, Data: data}
		if err != nil {
			response.LogError(logger.With("intent", in.Type), err)
			res.Reason = errors.PublicMessage(err)
			res.Data = nil
		}
		if !h.reply(c, res) {
			return
		}
	}
}

// streamed handles the high-rate inputs. They get no reply and are dropped
// silently when the connection is over its budget.
func (h *SocketHandler) streamed(c *client, in intent) bool {
	switch in.Type {
	case intentControl:
		if c.limiter.Allow() {
			h.game.ApplyControl(c.playerID, combat.Control{Thrust: in.Thrust, Turn: in.Turn, Strafe: in.Strafe, Boost: in.Boost})
		}
	case intentFire:
		if c.limiter.Allow() {
			h.game.FireWeapon(c.playerID, in.WeaponID)
		}
	case intentMiningControl:
		if c.limiter.Allow() {
			h.game.SetMiningControl(c.playerID, mining.Control{Thrust: in.Thrust, Turn: in.Turn, Strafe: in.Strafe, Firing: in.Firing})
		}
	default:
		return false
	}
	return true
}

func (h *SocketHandler) dispatch(playerID string, in intent) (any, error) {
	ctx := context.Background()

	switch in.Type {
	case intentMove:
		return h.game.MovePlayer(playerID, in.Target)
	case intentColonize:
		return h.game.ColonizeSystem(playerID, in.Target)
	case intentDevelop:
		return h.game.DevelopColony(playerID, in.Target)
	case intentSystem:
		return h.game.GetPlanetarySystem(ctx, in.Target)
	case intentStartPvP:
		return h.game.StartPvPCombat(playerID, in.TargetID)
	case intentStartBot:
		return h.game.StartBotCombat(playerID)
	case intentStartInvasion:
		return h.game.StartInvasionCombat(playerID)
	case intentGetCombat:
		return h.game.GetCombat(playerID)
	case intentEndCombat:
		return h.game.EndCombat(playerID)
	case intentStartMining:
		return h.game.StartMining(playerID)
	case intentExitMining:
		return h.game.ExitMining(playerID)
	case intentGetState:
		return h.game.GetState(playerID), nil
	case intentGetPlayer:
		return h.game.GetPlayer(playerID)
	case intentTrainSkill:
		return h.game.TrainSkill(playerID, in.Skill)
	case intentDepositCargo:
		return h.game.DepositCargo(ctx, playerID)
	case intentListInvasions:
		return h.game.ActiveInvasions(), nil
	default:
		return nil, errors.Validationf("%s %q", unknownIntentMessage, in.Type)
	}
}

func (h *SocketHandler) reply(c *client, res result) bool {
	data, err := json.Marshal(res)
	if err != nil {
		h.logger.Error("Failed to encode reply", "player_id", c.playerID, "intent", res.Intent, "error", err)
		return true
	}
	return c.push(frame{kind: websocket.TextMessage, data: data})
}
