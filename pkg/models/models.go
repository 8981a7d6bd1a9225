package models

import (
	"math/big"
	"strings"
)

// Account is one entry of the account source (keystore).
type Account struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Tags    []string `json:"tags,omitempty"`
}

// SortedAccount is an account as placed by the sorter.
type SortedAccount struct {
	Account    Account `json:"account"`
	IsFavorite bool    `json:"is_favorite"`
}

// Delegation is the voting weight an account has committed to another account.
type Delegation struct {
	AccountDelegated string     `json:"account_delegated"`
	Amount           *big.Int   `json:"amount"`
	Conviction       Conviction `json:"conviction"`
}

// ProxyDefinition grants Delegate the right to act for the account.
type ProxyDefinition struct {
	Delegate  string    `json:"delegate"`
	ProxyType ProxyType `json:"proxy_type"`
	Delay     uint64    `json:"delay,omitempty"`
}

// ProxyInfo is the normalized proxy state of one account.
type ProxyInfo struct {
	Definitions []ProxyDefinition `json:"definitions"`
	Deposit     *big.Int          `json:"deposit"`
}

// AugmentedAccount is one row of the view model.
type AugmentedAccount struct {
	SortedAccount
	Delegation *Delegation `json:"delegation,omitempty"`
	Proxy      *ProxyInfo  `json:"proxy,omitempty"`
	Balance    *big.Int    `json:"balance,omitempty"`
}

// ViewStatus tells a renderer which message to show.
type ViewStatus string

const (
	StatusPending ViewStatus = "pending"
	StatusEmpty   ViewStatus = "empty"
	StatusReady   ViewStatus = "ready"
)

// Snapshot is the immutable view handed to renderers.
type Snapshot struct {
	Status     ViewStatus         `json:"status"`
	Stale      bool               `json:"stale"`
	Accounts   []AugmentedAccount `json:"accounts"`
	Filter     string             `json:"filter"`
	Total      *big.Int           `json:"total,omitempty"`
	Generation uint64             `json:"generation"`
}

// Visible returns the accounts matching the snapshot filter. Accounts is left untouched.
func (s Snapshot) Visible() []AugmentedAccount {
	out := make([]AugmentedAccount, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.Account.Matches(s.Filter) {
			out = append(out, a)
		}
	}
	return out
}

// Matches reports whether the account name, address or one of its tags
// contains filter, ignoring case.
func (a Account) Matches(filter string) bool {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" {
		return true
	}
	if strings.Contains(strings.ToLower(a.Name), f) || strings.Contains(strings.ToLower(a.Address), f) {
		return true
	}
	for _, t := range a.Tags {
		if strings.Contains(strings.ToLower(t), f) {
			return true
		}
	}
	return false
}

// AddressSet is a set of addresses.
type AddressSet map[string]struct{}

// NewAddressSet builds a set from a list, dropping duplicates.
func NewAddressSet(addrs ...string) AddressSet {
	s := make(AddressSet, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

func (s AddressSet) Has(addr string) bool {
	_, ok := s[addr]
	return ok
}

// Clone returns an independent copy.
func (s AddressSet) Clone() AddressSet {
	out := make(AddressSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// CheckResult holds the probe result of one RPC endpoint.
type CheckResult struct {
	URL        string   `json:"url"`
	Status     string   `json:"status"` // "ok" or "error"
	Modules    []string `json:"modules,omitempty"`
	Delegation bool     `json:"delegation"`
	Proxy      bool     `json:"proxy"`
	LatencyMs  int64    `json:"latency_ms,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ChainResult holds test results for a specific chain.
type ChainResult struct {
	Name string        `json:"name"`
	RPCs []CheckResult `json:"rpcs"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string        `json:"config_path"`
	ValidStructure  bool          `json:"valid_structure"`
	StructureErrors []string      `json:"structure_errors,omitempty"`
	AccountCount    int           `json:"account_count"`
	ChainCount      int           `json:"chain_count"`
	Chains          []ChainResult `json:"chains,omitempty"`
}
