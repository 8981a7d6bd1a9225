// Package accounts is the account source backed by the config file.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"acctview/pkg/config"
	"acctview/pkg/models"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("account already exists")
)

// PersistFunc writes the account list back to storage.
type PersistFunc func([]config.AccountConfig) error

// Source holds the known accounts and notifies listeners when they change.
type Source struct {
	mu       sync.RWMutex
	accounts []config.AccountConfig
	persist  PersistFunc
	changes  chan struct{}
}

// NewSource builds a source from config entries. persist may be nil.
func NewSource(entries []config.AccountConfig, persist PersistFunc) *Source {
	return &Source{
		accounts: slices.Clone(entries),
		persist:  persist,
		changes:  make(chan struct{}, 1),
	}
}

// List returns the accounts in keystore order.
func (s *Source) List(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = models.Account{Address: a.Address, Name: a.Name, Tags: slices.Clone(a.Tags)}
	}
	return out, nil
}

// Changes signals after every successful mutation. Signals coalesce: a
// reader that falls behind sees one pending signal, not one per mutation.
func (s *Source) Changes() <-chan struct{} {
	return s.changes
}

// Add appends a new account.
func (s *Source) Add(acc models.Account) error {
	acc.Address = strings.TrimSpace(acc.Address)
	if acc.Address == "" {
		return fmt.Errorf("add account: empty address")
	}
	return s.mutate(func(list []config.AccountConfig) ([]config.AccountConfig, error) {
		if indexOf(list, acc.Address) >= 0 {
			return nil, fmt.Errorf("add %s: %w", acc.Address, ErrDuplicate)
		}
		return append(list, config.AccountConfig{Address: acc.Address, Name: acc.Name, Tags: acc.Tags}), nil
	})
}

// Remove deletes an account.
func (s *Source) Remove(address string) error {
	return s.mutate(func(list []config.AccountConfig) ([]config.AccountConfig, error) {
		i := indexOf(list, address)
		if i < 0 {
			return nil, fmt.Errorf("remove %s: %w", address, ErrNotFound)
		}
		return slices.Delete(list, i, i+1), nil
	})
}

// Rename changes the display name of an account.
func (s *Source) Rename(address, name string) error {
	return s.mutate(func(list []config.AccountConfig) ([]config.AccountConfig, error) {
		i := indexOf(list, address)
		if i < 0 {
			return nil, fmt.Errorf("rename %s: %w", address, ErrNotFound)
		}
		list[i].Name = name
		return list, nil
	})
}

// SetTags replaces the tags of an account.
func (s *Source) SetTags(address string, tags []string) error {
	return s.mutate(func(list []config.AccountConfig) ([]config.AccountConfig, error) {
		i := indexOf(list, address)
		if i < 0 {
			return nil, fmt.Errorf("tag %s: %w", address, ErrNotFound)
		}
		list[i].Tags = slices.Clone(tags)
		return list, nil
	})
}

// Entries returns the current list as config entries.
func (s *Source) Entries() []config.AccountConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts)
}

// mutate applies fn to a copy of the list, persists it, and only then
// publishes it.
func (s *Source) mutate(fn func([]config.AccountConfig) ([]config.AccountConfig, error)) error {
	s.mu.Lock()
	next, err := fn(slices.Clone(s.accounts))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("persist accounts: %w", err)
		}
	}
	s.accounts = next
	s.mu.Unlock()

	select {
	case s.changes <- struct{}{}:
	default:
	}
	return nil
}

func indexOf(list []config.AccountConfig, address string) int {
	return slices.IndexFunc(list, func(a config.AccountConfig) bool { return a.Address == address })
}
