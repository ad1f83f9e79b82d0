package persistence

import (
	"context"
	"log/slog"
	"starfront-server/internal/hexmap"
	"starfront-server/internal/invasion"
	"starfront-server/internal/player"
	"starfront-server/internal/shared/config"
	"sync"
	"time"
)

// SaveFunc writes one aggregate.
type SaveFunc func(ctx context.Context) error

type saveJob struct {
	key     string
	version uint64
	fn      SaveFunc
}

// Saver runs writes on a background worker so tick loops never wait on the
// store. Jobs are coalesced by key: only the latest dispatched version of an
// aggregate is written, and a failing write is abandoned as soon as a newer
// version is queued.
type Saver struct {
	store   Store
	retries int
	backoff time.Duration
	warnAt  int
	logger  *slog.Logger

	mu       sync.Mutex
	order    []string
	pending  map[string]saveJob
	versions map[string]uint64
	inflight bool
	closed   bool

	wake   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSaver(store Store, cfg config.StoreConfig, logger *slog.Logger) *Saver {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Saver{
		store:    store,
		retries:  max(cfg.SaveRetries, 0),
		backoff:  cfg.RetryBackoff,
		warnAt:   cfg.QueueSize,
		logger:   logger.With("component", "saver"),
		pending:  make(map[string]saveJob),
		versions: make(map[string]uint64),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	if s.backoff <= 0 {
		s.backoff = 100 * time.Millisecond
	}
	go s.run()
	return s
}

// Dispatch queues fn under key, replacing any queued write for the same key.
func (s *Saver) Dispatch(key string, fn SaveFunc) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("Save dispatched after close, dropping", "operation", "dispatch", "key", key)
		return
	}
	s.versions[key]++
	// a re-dispatched key keeps its queue position
	if _, queued := s.pending[key]; !queued {
		s.order = append(s.order, key)
	}
	s.pending[key] = saveJob{key: key, version: s.versions[key], fn: fn}
	backlog := len(s.order)
	s.mu.Unlock()

	if s.warnAt > 0 && backlog > s.warnAt {
		s.logger.Warn("Save backlog growing", "operation", "dispatch", "backlog", backlog)
	}

	// wake is buffered; a pending wake already covers this job
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Saver) SavePlayer(p *player.Player) {
	snapshot := p.Clone()
	s.Dispatch("player:"+snapshot.ID, func(ctx context.Context) error {
		return s.store.SavePlayer(ctx, snapshot)
	})
}

// SaveWorld expects cells that are no longer shared with the live map.
func (s *Saver) SaveWorld(world World) {
	s.Dispatch("world", func(ctx context.Context) error {
		return s.store.SaveWorld(ctx, world)
	})
}

func (s *Saver) SaveInvasions(states []invasion.State) {
	snapshot := make([]invasion.State, len(states))
	for i := range states {
		snapshot[i] = states[i].Clone()
	}
	s.Dispatch("invasions", func(ctx context.Context) error {
		return s.store.SaveInvasions(ctx, snapshot)
	})
}

func (s *Saver) SavePlanetarySystem(system hexmap.PlanetarySystem) {
	system.Planets = append([]hexmap.Planet(nil), system.Planets...)
	s.Dispatch("system:"+system.HexKey, func(ctx context.Context) error {
		return s.store.SavePlanetarySystem(ctx, system)
	})
}

func (s *Saver) SaveStationStorage(storage player.StationStorage) {
	snapshot := storage.Clone()
	s.Dispatch("storage:"+snapshot.ID, func(ctx context.Context) error {
		return s.store.SaveStationStorage(ctx, snapshot)
	})
}

// Flush blocks until every queued write has been attempted or ctx ends.
func (s *Saver) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		idle := len(s.order) == 0 && !s.inflight
		s.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops accepting writes and drains the queue. Writes still running
// when ctx ends are cancelled.
func (s *Saver) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(ctx)
	s.cancel()
	<-s.done
	if err != nil {
		s.logger.Error("Saver closed with pending writes", "operation", "close", "error", err)
	}
	return err
}

func (s *Saver) run() {
	defer close(s.done)
	for {
		job, ok := s.next()
		if !ok {
			select {
			case <-s.ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}
		s.execute(job)

		s.mu.Lock()
		s.inflight = false
		s.mu.Unlock()
	}
}

func (s *Saver) next() (saveJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return saveJob{}, false
	}
	key := s.order[0]
	s.order = s.order[1:]
	job := s.pending[key]
	delete(s.pending, key)
	s.inflight = true
	return job, true
}

func (s *Saver) superseded(job saveJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[job.key] > job.version
}

func (s *Saver) execute(job saveJob) {
	logger := s.logger.With("operation", "save", "key", job.key)
	delay := s.backoff

	for attempt := 0; ; attempt++ {
		err := job.fn(s.ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Save succeeded after retry", "attempts", attempt+1)
			}
			return
		}

		if attempt >= s.retries {
			logger.Error("Save failed, giving up", "attempts", attempt+1, "error", err)
			return
		}
		// the queued version will write newer state anyway
		if s.superseded(job) {
			logger.Debug("Save failed but a newer version is queued", "error", err)
			return
		}
		logger.Warn("Save failed, retrying", "attempt", attempt+1, "backoff", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Error("Save abandoned on shutdown", "error", err)
			return
		case <-timer.C:
		}
		delay *= 2
	}
}
