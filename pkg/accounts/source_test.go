package accounts

import (
	"context"
	"errors"
	"testing"

	"acctview/pkg/config"
	"acctview/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drained(s *Source) bool {
	select {
	case <-s.Changes():
		return true
	default:
		return false
	}
}

func TestListKeepsOrder(t *testing.T) {
	s := NewSource([]config.AccountConfig{{Address: "b", Name: "B"}, {Address: "a", Name: "A", Tags: []string{"x"}}}, nil)
	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Account{{Address: "b", Name: "B"}, {Address: "a", Name: "A", Tags: []string{"x"}}}, list)
}

func TestMutationsNotify(t *testing.T) {
	var saved []config.AccountConfig
	s := NewSource(nil, func(list []config.AccountConfig) error {
		saved = list
		return nil
	})

	require.NoError(t, s.Add(models.Account{Address: " a ", Name: "A"}))
	require.NoError(t, s.Add(models.Account{Address: "b"}))
	assert.True(t, drained(s))
	assert.False(t, drained(s), "signals coalesce")

	require.NoError(t, s.Rename("b", "Bee"))
	require.NoError(t, s.SetTags("a", []string{"cold"}))
	require.NoError(t, s.Remove("a"))
	assert.True(t, drained(s))

	assert.Equal(t, []config.AccountConfig{{Address: "b", Name: "Bee"}}, saved)
	assert.Equal(t, saved, s.Entries())
}

func TestMutationErrors(t *testing.T) {
	s := NewSource([]config.AccountConfig{{Address: "a"}}, nil)

	assert.ErrorIs(t, s.Add(models.Account{Address: "a"}), ErrDuplicate)
	assert.ErrorIs(t, s.Remove("zz"), ErrNotFound)
	assert.ErrorIs(t, s.Rename("zz", "n"), ErrNotFound)
	assert.ErrorIs(t, s.SetTags("zz", nil), ErrNotFound)
	assert.Error(t, s.Add(models.Account{Address: "  "}))
	assert.False(t, drained(s))
}

func TestPersistFailureKeepsList(t *testing.T) {
	s := NewSource([]config.AccountConfig{{Address: "a"}}, func([]config.AccountConfig) error {
		return errors.New("read-only")
	})
	assert.Error(t, s.Remove("a"))
	list, _ := s.List(context.Background())
	assert.Len(t, list, 1)
	assert.False(t, drained(s))
}
