package sorter

import (
	"math/rand"
	"strconv"
	"testing"

	"acctview/pkg/models"

	"github.com/stretchr/testify/assert"
)

func accs(addrs ...string) []models.Account {
	out := make([]models.Account, len(addrs))
	for i, a := range addrs {
		out[i] = models.Account{Address: a, Name: "name-" + a}
	}
	return out
}

func TestSortFavoritesFirst(t *testing.T) {
	res := Sort(accs("Q", "P", "R", "S"), models.NewAddressSet("S", "P"))

	assert.Equal(t, []string{"P", "S", "Q", "R"}, res.Addresses)
	assert.True(t, res.Accounts[0].IsFavorite)
	assert.True(t, res.Accounts[1].IsFavorite)
	assert.False(t, res.Accounts[2].IsFavorite)
	assert.Equal(t, "name-Q", res.Accounts[2].Account.Name)
}

func TestSortEmpty(t *testing.T) {
	res := Sort(nil, nil)
	assert.Empty(t, res.Accounts)
	assert.Empty(t, res.Addresses)
}

func TestSortFavoriteNotInAccounts(t *testing.T) {
	res := Sort(accs("A", "B"), models.NewAddressSet("Z"))
	assert.Equal(t, []string{"A", "B"}, res.Addresses)
}

func TestSortPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := rng.Intn(20)
		var addrs []string
		favs := models.AddressSet{}
		for i := 0; i < n; i++ {
			a := strconv.Itoa(round) + "-" + strconv.Itoa(i)
			addrs = append(addrs, a)
			if rng.Intn(3) == 0 {
				favs[a] = struct{}{}
			}
		}
		res := Sort(accs(addrs...), favs)
		assert.Len(t, res.Addresses, n)

		seenNonFav := false
		lastFav, lastRest := -1, -1
		pos := map[string]int{}
		for i, a := range addrs {
			pos[a] = i
		}
		for i, a := range res.Addresses {
			assert.Equal(t, a, res.Accounts[i].Account.Address)
			if favs.Has(a) {
				assert.False(t, seenNonFav, "favorite %s after non-favorite", a)
				assert.Greater(t, pos[a], lastFav)
				lastFav = pos[a]
			} else {
				seenNonFav = true
				assert.Greater(t, pos[a], lastRest)
				lastRest = pos[a]
			}
		}
	}
}
