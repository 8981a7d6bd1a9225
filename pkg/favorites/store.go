// Package favorites keeps the process-wide set of favorited addresses.
//
// The set is loaded once when the Store is opened and written back in full
// after every toggle, as a JSON array under StoreKey.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"acctview/pkg/models"
)

// StoreKey is the logical key the favorites live under.
const StoreKey = "accounts:favorites"

var ErrEmptyAddress = errors.New("empty address")

// Backend is a key/value persistence layer. Load returns nil data and no
// error for a key that was never saved.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Store is the favorites set. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	set     models.AddressSet
}

// Open loads the persisted set from backend.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	data, err := backend.Load(ctx, StoreKey)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	var list []string
	if len(data) > 0 {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode favorites: %w", err)
		}
	}
	return &Store{backend: backend, set: models.NewAddressSet(list...)}, nil
}

// Get returns a copy of the current set.
func (s *Store) Get() models.AddressSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Clone()
}

func (s *Store) IsFavorite(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set.Has(address)
}

// Toggle flips the membership of address and persists the set. When saving
// fails the flip is undone and the error returned.
func (s *Store) Toggle(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrEmptyAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, was := s.set[address]
	if was {
		delete(s.set, address)
	} else {
		s.set[address] = struct{}{}
	}

	if err := s.persist(ctx); err != nil {
		if was {
			s.set[address] = struct{}{}
		} else {
			delete(s.set, address)
		}
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	list := make([]string, 0, len(s.set))
	for a := range s.set {
		list = append(list, a)
	}
	sort.Strings(list)
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.backend.Save(ctx, StoreKey, data)
}
