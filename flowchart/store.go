package flowchart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a jurisdiction has no active flow chart
var ErrNotFound = errors.New("flow chart not found")

// Store persists versioned flow chart definitions, one active version per jurisdiction
type Store interface {
	// Put saves def as the new active version for its jurisdiction and returns the version number
	Put(ctx context.Context, def *Definition) (int, error)
	Active(ctx context.Context, jurisdiction string) (*Definition, error)
	ListActive(ctx context.Context) ([]*Definition, error)
	Deactivate(ctx context.Context, jurisdiction string) error
}

// InMemoryStore implements Store in memory
type InMemoryStore struct {
	versions map[string][]*Definition
	active   map[string]int
	mu       sync.RWMutex
}

// NewInMemoryStore creates a new in-memory flow chart store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		versions: make(map[string][]*Definition),
		active:   make(map[string]int),
	}
}

// Put appends a new version of def and makes it active
func (s *InMemoryStore) Put(ctx context.Context, def *Definition) (int, error) {
	if def.Jurisdiction == "" {
		return 0, fmt.Errorf("flow chart %s has no jurisdiction", def.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := clone(def)
	stored.Version = len(s.versions[def.Jurisdiction]) + 1
	s.versions[def.Jurisdiction] = append(s.versions[def.Jurisdiction], stored)
	s.active[def.Jurisdiction] = stored.Version
	return stored.Version, nil
}

// Active returns the active definition of a jurisdiction
func (s *InMemoryStore) Active(ctx context.Context, jurisdiction string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.active[jurisdiction]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jurisdiction)
	}
	return clone(s.versions[jurisdiction][version-1]), nil
}

// ListActive returns the active definitions ordered by jurisdiction
func (s *InMemoryStore) ListActive(ctx context.Context) ([]*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs := make([]*Definition, 0, len(s.active))
	for jurisdiction, version := range s.active {
		defs = append(defs, clone(s.versions[jurisdiction][version-1]))
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Jurisdiction < defs[j].Jurisdiction
	})
	return defs, nil
}

// Deactivate clears the active version of a jurisdiction. Older versions are kept.
func (s *InMemoryStore) Deactivate(ctx context.Context, jurisdiction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[jurisdiction]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jurisdiction)
	}
	delete(s.active, jurisdiction)
	return nil
}

// clone copies a definition so callers cannot mutate stored versions
func clone(def *Definition) *Definition {
	c := *def
	c.Nodes = make([]Node, len(def.Nodes))
	for i, n := range def.Nodes {
		if n.Edges != nil {
			edges := make(map[string]string, len(n.Edges))
			for k, v := range n.Edges {
				edges[k] = v
			}
			n.Edges = edges
		}
		c.Nodes[i] = n
	}
	return &c
}
