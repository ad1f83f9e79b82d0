package mining

import (
	"fmt"
	"log/slog"
	"starfront-server/internal/sessions"
	"sync"
	"time"
)

// Manager runs one fixed-interval loop per mining session. Sessions run until
// Exit.
type Manager struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	loops          *sessions.Registry
	tick           time.Duration
	broadcastEvery uint64
	logger         *slog.Logger
}

func NewManager(tick time.Duration, broadcastEvery int, logger *slog.Logger) *Manager {
	if broadcastEvery <= 0 {
		broadcastEvery = 1
	}
	logger = logger.With("component", "mining_manager")
	return &Manager{
		sessions:       make(map[string]*Session),
		loops:          sessions.NewRegistry(logger),
		tick:           tick,
		broadcastEvery: uint64(broadcastEvery),
		logger:         logger,
	}
}

// Start runs s, calling onSnapshot from the loop goroutine every
// broadcastEvery ticks.
func (m *Manager) Start(s *Session, onSnapshot func(Snapshot)) error {
	m.mu.Lock()
	if _, exists := m.sessions[s.ID()]; exists {
		m.mu.Unlock()
		return fmt.Errorf("mining session %s already running", s.ID())
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	dt := m.tick.Seconds()
	err := m.loops.Start(s.ID(), m.tick, func(tick uint64) bool {
		s.Step(dt)
		if onSnapshot != nil && tick%m.broadcastEvery == 0 {
			onSnapshot(s.Snapshot())
		}
		return s.Ended()
	})
	if err != nil {
		m.remove(s.ID())
		return err
	}

	m.logger.Info("Mining started", "operation", "start", "session_id", s.ID(), "player_id", s.PlayerID(), "hex_key", s.HexKey())
	return nil
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Exit ends the session, stops its loop and returns the collected minerals.
// The bool is false when the session was unknown or already ended.
func (m *Manager) Exit(id string) (map[string]int, bool) {
	s, ok := m.Get(id)
	if !ok {
		return nil, false
	}
	collected, ended := s.Exit()
	m.loops.Stop(id)
	m.remove(id)
	if ended {
		m.logger.Info("Mining ended", "operation", "exit", "session_id", id, "player_id", s.PlayerID())
	}
	return collected, ended
}

func (m *Manager) Shutdown() {
	m.loops.StopAll()
	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
}
