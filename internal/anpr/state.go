package anpr

import (
	"sync"
	"sync/atomic"
)

// snapshot is the immutable triple published to readers. Engine and config
// always describe each other; a new snapshot replaces the old one whole.
type snapshot struct {
	engine Engine
	config Config
	valid  bool
}

// State owns the currently active engine and its configuration. Reads are
// lock-free; reconfiguration is serialized and publishes atomically, so a
// reader never observes an engine paired with a mismatched configuration.
//
// Engines replaced by a swap are not closed while the process lives:
// in-flight requests may still hold a reference to them.
type State struct {
	factory Factory
	current atomic.Pointer[snapshot]
	writeMu sync.Mutex
}

// NewState creates a State that builds engines with the given factory.
// The initial state is invalid until Reconfigure succeeds.
func NewState(factory Factory) *State {
	s := &State{factory: factory}
	s.current.Store(&snapshot{})
	return s
}

// Reconfigure attempts to construct an engine from cfg and, on success,
// atomically publishes the new (engine, config, valid) triple. On failure
// the previous state is left untouched and the reason is returned.
//
// A region-only change on an engine that supports in-place region switching
// skips the rebuild.
func (s *State) Reconfigure(cfg Config) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if !cfg.Credentials.Complete() {
		return ErrInvalidCredentials
	}

	prev := s.current.Load()
	if prev.valid && regionOnlyChange(prev.config, cfg) {
		if err := prev.engine.SetRegion(cfg.Region); err == nil {
			s.current.Store(&snapshot{engine: prev.engine, config: cfg, valid: true})
			return nil
		}
		// Fall through to a full rebuild.
	}

	engine, err := s.factory(cfg)
	if err != nil {
		return err
	}

	s.current.Store(&snapshot{engine: engine, config: cfg, valid: true})
	return nil
}

// Current returns the latest published engine, its configuration and the
// validity flag. Cheap and non-blocking.
func (s *State) Current() (Engine, Config, bool) {
	snap := s.current.Load()
	return snap.engine, snap.config, snap.valid
}

// Valid reports whether a configuration has produced a working engine.
func (s *State) Valid() bool {
	return s.current.Load().valid
}

func regionOnlyChange(old, new Config) bool {
	old.Region = new.Region
	return old == new
}
