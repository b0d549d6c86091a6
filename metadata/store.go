package metadata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when an item does not exist
	ErrNotFound = errors.New("item not found")
	// ErrExists is returned when adding an item whose ID is taken
	ErrExists = errors.New("item already exists")
)

// Store manages item persistence and retrieval
type Store interface {
	// Add a new item
	Add(ctx context.Context, item *Item) error

	// Get an item by ID
	Get(ctx context.Context, id string) (*Item, error)

	// List items ordered by creation time, at most max items starting at offset start
	List(ctx context.Context, start, max int) ([]*Item, error)

	// Delete an item
	Delete(ctx context.Context, id string) error
}

// InMemoryStore implements Store using an in-memory map
type InMemoryStore struct {
	items map[string]*Item
	mu    sync.RWMutex
}

// NewInMemoryStore creates a new in-memory item store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[string]*Item),
	}
}

// Add adds a new item and sets its timestamps
func (s *InMemoryStore) Add(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return fmt.Errorf("%w: %s", ErrExists, item.ID)
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.ID] = item
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore) Get(_ context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return item, nil
}

// List returns a page of items ordered by creation time
func (s *InMemoryStore) List(_ context.Context, start, max int) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Item, 0, len(s.items))
	for _, item := range s.items {
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	if start < 0 {
		start = 0
	}
	if start >= len(all) {
		return []*Item{}, nil
	}
	end := len(all)
	if max > 0 && start+max < end {
		end = start + max
	}
	return all[start:end], nil
}

// Delete removes an item
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(s.items, id)
	return nil
}
