package session

import (
	"context"
	"sync"
	"time"

	"github.com/stickynet/sticky-net/pkg/logging"
)

// Snapshotter persists conversation state between process lifetimes. Load
// returns (nil, nil) when no snapshot exists.
type Snapshotter interface {
	Save(ctx context.Context, state *State) error
	Load(ctx context.Context, id string) (*State, error)
}

// Store owns all live conversation state. Each conversation id is strictly
// serialized: the per-entry lock is held for a whole turn, including any
// model calls, so turns for one id queue rather than interleave. Distinct ids
// proceed concurrently.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	snapshots Snapshotter
	logger    *logging.Logger
	now       func() time.Time
}

type entry struct {
	mu     sync.Mutex
	state  *State
	loaded bool
}

// NewStore creates a store. snapshots may be nil for purely in-memory use.
func NewStore(snapshots Snapshotter, logger *logging.Logger) *Store {
	if logger == nil {
		panic("session: logger is required")
	}
	return &Store{
		entries:   make(map[string]*entry),
		snapshots: snapshots,
		logger:    logger.Component("session_store"),
		now:       time.Now,
	}
}

// WithTurn runs fn with exclusive ownership of the conversation's state,
// creating it on first touch (after consulting the snapshot store). When fn
// succeeds the updated state is snapshotted; snapshot failures are logged and
// dropped, never surfaced to the turn.
func (s *Store) WithTurn(ctx context.Context, id string, fn func(state *State) error) error {
	e := s.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		e.state = s.load(ctx, id)
		e.loaded = true
	}

	if err := fn(e.state); err != nil {
		return err
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(ctx, e.state); err != nil {
			s.logger.Warn("session snapshot save failed",
				"conversation_id", id,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// Peek returns a point-in-time look at a conversation's state via fn, without
// creating state for unknown ids.
func (s *Store) Peek(id string, fn func(state *State)) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded || e.state == nil {
		return false
	}
	fn(e.state)
	return true
}

// Forget drops a conversation's in-memory entry. Snapshots are left to their
// TTL.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// Release drops a conversation's in-memory entry once a durable snapshot
// exists to answer its next message. Without a snapshotter the entry stays
// resident: dropping it would restart a completed conversation from scratch.
func (s *Store) Release(id string) {
	if s.snapshots == nil {
		return
	}
	s.Forget(id)
}

func (s *Store) entry(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	return e
}

func (s *Store) load(ctx context.Context, id string) *State {
	if s.snapshots != nil {
		state, err := s.snapshots.Load(ctx, id)
		if err != nil {
			s.logger.Warn("session snapshot load failed, starting fresh",
				"conversation_id", id,
				"error", err.Error(),
			)
		} else if state != nil {
			return state
		}
	}
	return NewState(id, s.now())
}
