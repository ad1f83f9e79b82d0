// Package invasion tracks hostile incursions anchored at collapsed colonies.
package invasion

import (
	"log/slog"
	"sort"
	"starfront-server/internal/hexmap"
	"time"

	"github.com/google/uuid"
)

// Engine is not safe for concurrent use; the world serializes access.
type Engine struct {
	byID     map[string]*State
	bySource map[string]string
	byHex    map[string]map[string]struct{}
	logger   *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		byID:     make(map[string]*State),
		bySource: make(map[string]string),
		byHex:    make(map[string]map[string]struct{}),
		logger:   logger.With("component", "invasion_engine"),
	}
}

// Start anchors a new invasion at source. Only neighbors accepted by onMap
// receive invaders; a nil onMap accepts all six. It returns nil when an
// active invasion already anchors that hex.
func (e *Engine) Start(source hexmap.Coord, now time.Time, onMap func(hexmap.Coord) bool) *State {
	key := source.Key()
	if _, exists := e.bySource[key]; exists {
		return nil
	}

	state := &State{
		ID:                uuid.NewString(),
		SourceHexKey:      key,
		SourceCoordinates: source,
		EnemyCountPerHex:  make(map[string]int, 6),
		StartTime:         now,
		Phase:             PhaseActive,
	}
	for _, n := range source.Neighbors() {
		// edge colonies have fewer than six neighbors to defend
		if onMap != nil && !onMap(n) {
			continue
		}
		nk := n.Key()
		state.NeighborHexKeys = append(state.NeighborHexKeys, nk)
		state.EnemyCountPerHex[nk] = EnemiesPerHex
	}

	e.index(state)
	e.logger.Info("Invasion started", "operation", "start", "invasion_id", state.ID, "source_hex", key)

	clone := state.Clone()
	return &clone
}

func (e *Engine) index(s *State) {
	e.byID[s.ID] = s
	e.bySource[s.SourceHexKey] = s.ID
	e.addHex(s.SourceHexKey, s.ID)
	for _, k := range s.NeighborHexKeys {
		e.addHex(k, s.ID)
	}
}

func (e *Engine) addHex(hexKey, id string) {
	set, ok := e.byHex[hexKey]
	if !ok {
		set = make(map[string]struct{})
		e.byHex[hexKey] = set
	}
	set[id] = struct{}{}
}

func (e *Engine) unindex(s *State) {
	delete(e.byID, s.ID)
	if e.bySource[s.SourceHexKey] == s.ID {
		delete(e.bySource, s.SourceHexKey)
	}
	keys := append([]string{s.SourceHexKey}, s.NeighborHexKeys...)
	for _, k := range keys {
		if set, ok := e.byHex[k]; ok {
			delete(set, s.ID)
			if len(set) == 0 {
				delete(e.byHex, k)
			}
		}
	}
}

// Decrement removes count enemies from hexKey, never below zero. Returns the
// new count, or false when the invasion or hex is unknown.
func (e *Engine) Decrement(id, hexKey string, count int) (int, bool) {
	s, ok := e.byID[id]
	if !ok {
		return 0, false
	}
	current, ok := s.EnemyCountPerHex[hexKey]
	if !ok {
		return 0, false
	}
	s.EnemyCountPerHex[hexKey] = max(0, current-count)
	return s.EnemyCountPerHex[hexKey], true
}

// Increment returns count enemies to hexKey, capped at EnemiesPerHex.
func (e *Engine) Increment(id, hexKey string, count int) (int, bool) {
	s, ok := e.byID[id]
	if !ok {
		return 0, false
	}
	current, ok := s.EnemyCountPerHex[hexKey]
	if !ok {
		return 0, false
	}
	s.EnemyCountPerHex[hexKey] = min(EnemiesPerHex, current+count)
	return s.EnemyCountPerHex[hexKey], true
}

func IsCleared(s *State) bool {
	for _, n := range s.EnemyCountPerHex {
		if n > 0 {
			return false
		}
	}
	return true
}

// IsCleared reports whether the invasion with id has no enemies left.
func (e *Engine) IsCleared(id string) bool {
	s, ok := e.byID[id]
	return ok && IsCleared(s)
}

// Clear ends the invasion anchored at sourceHexKey and removes it from the
// active set. The caller restores the source threat.
func (e *Engine) Clear(sourceHexKey string) (*State, bool) {
	id, ok := e.bySource[sourceHexKey]
	if !ok {
		return nil, false
	}
	s := e.byID[id]
	s.Phase = PhaseCleared
	e.unindex(s)

	e.logger.Info("Invasion cleared", "operation", "clear", "invasion_id", s.ID, "source_hex", sourceHexKey)
	clone := s.Clone()
	return &clone, true
}

func (e *Engine) Get(id string) (*State, bool) {
	s, ok := e.byID[id]
	if !ok {
		return nil, false
	}
	clone := s.Clone()
	return &clone, true
}

func (e *Engine) BySource(sourceHexKey string) (*State, bool) {
	id, ok := e.bySource[sourceHexKey]
	if !ok {
		return nil, false
	}
	return e.Get(id)
}

// ByHex returns every active invasion touching hexKey as source or neighbor.
func (e *Engine) ByHex(hexKey string) []State {
	set := e.byHex[hexKey]
	out := make([]State, 0, len(set))
	for id := range set {
		out = append(out, e.byID[id].Clone())
	}
	sortStates(out)
	return out
}

func (e *Engine) Active() []State {
	out := make([]State, 0, len(e.byID))
	for _, s := range e.byID {
		out = append(out, s.Clone())
	}
	sortStates(out)
	return out
}

// Restore replaces the active set with persisted invasions. Cleared entries
// and duplicate sources are skipped.
func (e *Engine) Restore(states []State) {
	e.byID = make(map[string]*State)
	e.bySource = make(map[string]string)
	e.byHex = make(map[string]map[string]struct{})

	for _, st := range states {
		if st.Phase == PhaseCleared || st.ID == "" {
			continue
		}
		if _, dup := e.bySource[st.SourceHexKey]; dup {
			e.logger.Warn("Skipping duplicate invasion", "operation", "restore", "invasion_id", st.ID, "source_hex", st.SourceHexKey)
			continue
		}
		clone := st.Clone()
		if clone.Phase == "" {
			clone.Phase = PhaseActive
		}
		e.index(&clone)
	}
}

func sortStates(states []State) {
	sort.Slice(states, func(i, j int) bool {
		if !states[i].StartTime.Equal(states[j].StartTime) {
			return states[i].StartTime.Before(states[j].StartTime)
		}
		return states[i].ID < states[j].ID
	})
}
