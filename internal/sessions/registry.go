// Package sessions runs one fixed-interval loop per live session.
package sessions

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// StepFunc advances a session by one tick. Returning true ends the loop.
type StepFunc func(tick uint64) bool

type loop struct {
	id       string
	interval time.Duration
	step     StepFunc
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (l *loop) cancel() {
	l.once.Do(func() { close(l.quit) })
}

func (l *loop) run(onExit func()) {
	defer close(l.done)
	defer onExit()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-l.quit:
			return
		case <-ticker.C:
			tick++
			if l.step(tick) {
				return
			}
		}
	}
}

// Registry owns the running loops by session id.
type Registry struct {
	mu     sync.Mutex
	loops  map[string]*loop
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		loops:  make(map[string]*loop),
		logger: logger,
	}
}

// Start launches a loop calling step every interval until step returns true
// or Stop is called.
func (r *Registry) Start(id string, interval time.Duration, step StepFunc) error {
	if interval <= 0 {
		return fmt.Errorf("session %s: interval must be positive", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.loops[id]; exists {
		return fmt.Errorf("session %s is already running", id)
	}

	l := &loop{
		id:       id,
		interval: interval,
		step:     step,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.loops[id] = l
	go l.run(func() { r.remove(l) })

	r.logger.Debug("Session loop started", "session_id", id, "interval", interval)
	return nil
}

func (r *Registry) remove(l *loop) {
	l.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loops[l.id] == l {
		delete(r.loops, l.id)
	}
}

// Stop cancels the loop for id. It never blocks on the loop and is safe to
// call from inside the loop's own step. Reports whether a loop was running.
func (r *Registry) Stop(id string) bool {
	r.mu.Lock()
	l, ok := r.loops[id]
	if ok {
		delete(r.loops, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	l.cancel()
	r.logger.Debug("Session loop stopped", "session_id", id)
	return true
}

func (r *Registry) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loops[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loops)
}

// StopAll cancels every loop and waits for them to exit.
func (r *Registry) StopAll() {
	r.mu.Lock()
	loops := make([]*loop, 0, len(r.loops))
	for _, l := range r.loops {
		loops = append(loops, l)
	}
	r.loops = make(map[string]*loop)
	r.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}
	for _, l := range loops {
		<-l.done
	}
}
