package viewmodel

import (
	"math/big"
	"testing"

	"acctview/pkg/models"
	"acctview/pkg/sorter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinScenario(t *testing.T) {
	accounts := []models.Account{{Address: "P"}, {Address: "Q"}, {Address: "R"}}
	sorted := sorter.Sort(accounts, models.NewAddressSet("P"))

	dels := []*models.Delegation{nil, nil, {AccountDelegated: "Z", Amount: big.NewInt(100), Conviction: models.ConvictionLocked1x}}
	rows := Join(sorted.Accounts, dels, nil)

	require.Len(t, rows, 3)
	assert.Equal(t, "P", rows[0].Account.Address)
	assert.True(t, rows[0].IsFavorite)
	assert.Nil(t, rows[0].Delegation)
	assert.Nil(t, rows[1].Delegation)
	require.NotNil(t, rows[2].Delegation)
	assert.Equal(t, "R", rows[2].Account.Address)
	assert.Equal(t, "Z", rows[2].Delegation.AccountDelegated)
	assert.Equal(t, int64(100), rows[2].Delegation.Amount.Int64())
}

func TestJoinShortFactsLeaveTailAbsent(t *testing.T) {
	sorted := []models.SortedAccount{{Account: models.Account{Address: "a"}}, {Account: models.Account{Address: "b"}}}
	d := &models.Delegation{AccountDelegated: "x"}
	p := &models.ProxyInfo{}

	rows := Join(sorted, []*models.Delegation{d}, []*models.ProxyInfo{p})
	assert.Same(t, d, rows[0].Delegation)
	assert.Same(t, p, rows[0].Proxy)
	assert.Nil(t, rows[1].Delegation)
	assert.Nil(t, rows[1].Proxy)
}

func TestWithProxiesAndBalancesCopy(t *testing.T) {
	rows := Join([]models.SortedAccount{{Account: models.Account{Address: "a"}}}, nil, nil)
	p := &models.ProxyInfo{}

	withP := WithProxies(rows, []*models.ProxyInfo{p})
	assert.Nil(t, rows[0].Proxy)
	assert.Same(t, p, withP[0].Proxy)

	withB := WithBalances(withP, func(addr string) (*big.Int, bool) {
		return big.NewInt(9), addr == "a"
	})
	assert.Nil(t, withP[0].Balance)
	assert.Equal(t, int64(9), withB[0].Balance.Int64())
}

func TestVisible(t *testing.T) {
	rows := Join([]models.SortedAccount{
		{Account: models.Account{Address: "a1", Name: "Alice"}},
		{Account: models.Account{Address: "b1", Name: "Bob", Tags: []string{"ledger"}}},
	}, nil, nil)

	assert.Equal(t, []string{"a1", "b1"}, Visible(rows, ""))
	assert.Equal(t, []string{"b1"}, Visible(rows, "LEDG"))
	assert.Empty(t, Visible(rows, "carol"))
	assert.Equal(t, []string{"a1", "b1"}, Addresses(rows))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, models.StatusPending, Status(false, 0))
	assert.Equal(t, models.StatusEmpty, Status(true, 0))
	assert.Equal(t, models.StatusReady, Status(true, 2))
}
