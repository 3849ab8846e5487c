// Package resume remembers where a suspended URI should continue playing.
// Entries outlive the session that wrote them, so a client can Restore a
// URI after the player was disposed or the daemon restarted.
package resume

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// State is the saved playback position for one URI.
type State struct {
	Position  time.Duration
	UpdatedAt time.Time
}

// Store persists resume states keyed by URI. Get returns (nil, nil) when
// nothing is stored.
type Store interface {
	Put(ctx context.Context, uri string, state *State) error
	Get(ctx context.Context, uri string) (*State, error)
	Delete(ctx context.Context, uri string) error
	Close() error
}

// NewStore creates a resume store for the backend ("sqlite" or "memory").
// The sqlite backend keeps resume.sqlite in dir; without a dir positions
// only live as long as the process.
func NewStore(backend, dir string) (Store, error) {
	switch backend {
	case "", "sqlite":
		if dir != "" {
			return NewSqliteStore(filepath.Join(dir, "resume.sqlite"))
		}
		return NewMemoryStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown resume store backend %q (want sqlite or memory)", backend)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	byURI map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURI: make(map[string]State)}
}

func (s *MemoryStore) Put(_ context.Context, uri string, state *State) error {
	s.mu.Lock()
	s.byURI[uri] = *state
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, uri string) (*State, error) {
	s.mu.RLock()
	st, ok := s.byURI[uri]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *MemoryStore) Delete(_ context.Context, uri string) error {
	s.mu.Lock()
	delete(s.byURI, uri)
	s.mu.Unlock()
	return nil
}

// Close forgets every position.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	clear(s.byURI)
	s.mu.Unlock()
	return nil
}
