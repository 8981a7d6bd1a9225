// Package viewmodel joins sorted accounts with their resolved chain facts.
package viewmodel

import (
	"math/big"

	"acctview/pkg/models"
)

// Join pairs sorted[i] with delegations[i] and proxies[i]. Slots past the end
// of a fact list are absent.
func Join(sorted []models.SortedAccount, delegations []*models.Delegation, proxies []*models.ProxyInfo) []models.AugmentedAccount {
	out := make([]models.AugmentedAccount, len(sorted))
	for i, acc := range sorted {
		out[i] = models.AugmentedAccount{SortedAccount: acc}
		if i < len(delegations) {
			out[i].Delegation = delegations[i]
		}
		if i < len(proxies) {
			out[i].Proxy = proxies[i]
		}
	}
	return out
}

// WithProxies returns a copy of rows with proxies joined positionally.
func WithProxies(rows []models.AugmentedAccount, proxies []*models.ProxyInfo) []models.AugmentedAccount {
	out := make([]models.AugmentedAccount, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Proxy = nil
		if i < len(proxies) {
			out[i].Proxy = proxies[i]
		}
	}
	return out
}

// WithBalances returns a copy of rows with balances filled from lookup.
func WithBalances(rows []models.AugmentedAccount, lookup func(string) (*big.Int, bool)) []models.AugmentedAccount {
	out := make([]models.AugmentedAccount, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Balance = nil
		if b, ok := lookup(out[i].Account.Address); ok {
			out[i].Balance = b
		}
	}
	return out
}

// Visible lists the addresses of rows matching filter, in order.
func Visible(rows []models.AugmentedAccount, filter string) []string {
	var out []string
	for _, r := range rows {
		if r.Account.Matches(filter) {
			out = append(out, r.Account.Address)
		}
	}
	return out
}

// Addresses lists row addresses in order.
func Addresses(rows []models.AugmentedAccount) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Account.Address
	}
	return out
}

// Status distinguishes the initial load from a loaded but empty list.
func Status(hasOutput bool, rows int) models.ViewStatus {
	switch {
	case !hasOutput:
		return models.StatusPending
	case rows == 0:
		return models.StatusEmpty
	}
	return models.StatusReady
}
