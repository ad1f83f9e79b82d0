package combat

import (
	"fmt"
	"log/slog"
	"starfront-server/internal/sessions"
	"sync"
	"time"
)

// Hooks are called from the session loop goroutine with no session lock
// held. OnEnd runs exactly once for a session that ends on its own.
type Hooks struct {
	OnSnapshot func(Snapshot)
	OnEnd      func(Result)
}

// Manager runs one fixed-interval loop per combat session.
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
	logger = logger.With("component", "combat_manager")
	return &Manager{
		sessions:       make(map[string]*Session),
		loops:          sessions.NewRegistry(logger),
		tick:           tick,
		broadcastEvery: uint64(broadcastEvery),
		logger:         logger,
	}
}

func (m *Manager) Start(s *Session, hooks Hooks) error {
	m.mu.Lock()
	if _, exists := m.sessions[s.ID()]; exists {
		m.mu.Unlock()
		return fmt.Errorf("combat session %s already running", s.ID())
	}
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	dt := m.tick.Seconds()
	err := m.loops.Start(s.ID(), m.tick, func(tick uint64) bool {
		result, ended := s.Step(dt)
		if hooks.OnSnapshot != nil && (ended || tick%m.broadcastEvery == 0) {
			hooks.OnSnapshot(s.Snapshot())
		}
		if !ended {
			return s.Ended()
		}

		m.remove(s.ID())
		m.logger.Info("Combat ended", "operation", "step", "session_id", s.ID(), "type", result.Type, "winner", result.Winner, "reason", result.Reason)
		if hooks.OnEnd != nil {
			hooks.OnEnd(result)
		}
		return true
	})
	if err != nil {
		m.remove(s.ID())
		return err
	}

	m.logger.Info("Combat started", "operation", "start", "session_id", s.ID(), "type", s.Type(), "hex_key", s.HexKey())
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

// Active returns every running session.
func (m *Manager) Active() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// End finishes a session and tears its loop down. It does not call OnEnd; the
// caller owns the returned result. The bool is false when the session was
// unknown or had already ended.
func (m *Manager) End(id string, reason EndReason) (Result, bool) {
	s, ok := m.Get(id)
	if !ok {
		return Result{}, false
	}
	result, ended := s.Finish(reason)
	m.loops.Stop(id)
	m.remove(id)
	if ended {
		m.logger.Info("Combat finished", "operation", "end", "session_id", id, "reason", reason)
	}
	return result, ended
}

// Shutdown stops every loop and waits for them to exit.
func (m *Manager) Shutdown() {
	m.loops.StopAll()
	m.mu.Lock()
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
}
