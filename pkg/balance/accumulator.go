package balance

import (
	"fmt"
	"math/big"
	"sync"
)

// Policy selects which ledger entries the published total covers.
type Policy string

const (
	// PolicyAll sums every address ever reported in the session.
	PolicyAll Policy = "all"
	// PolicyListed sums addresses currently in the account list.
	PolicyListed Policy = "listed"
	// PolicyVisible sums addresses that also match the current filter.
	PolicyVisible Policy = "visible"
)

// ParsePolicy maps a config value to a Policy. Empty is PolicyAll.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAll:
		return PolicyAll, nil
	case PolicyListed, PolicyVisible:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown balance total policy %q", s)
}

type entry struct {
	value *big.Int
	seq   uint64
}

// Accumulator is the session balance ledger: the latest balance per address
// and their running sum.
type Accumulator struct {
	mu     sync.RWMutex
	ledger map[string]entry
	total  *big.Int
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{
		ledger: make(map[string]entry),
		total:  new(big.Int),
	}
}

// Report stores balance for address, replacing whatever was there.
func (a *Accumulator) Report(address string, balance *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apply(address, balance, a.ledger[address].seq)
}

// ReportAt stores balance for address unless a report with a higher seq was
// already applied. It returns whether the report was applied.
func (a *Accumulator) ReportAt(address string, balance *big.Int, seq uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if old, ok := a.ledger[address]; ok && seq < old.seq {
		return false
	}
	a.apply(address, balance, seq)
	return true
}

// apply updates one entry and the total in place. Other entries are untouched.
func (a *Accumulator) apply(address string, balance *big.Int, seq uint64) {
	v := new(big.Int)
	if balance != nil {
		v.Set(balance)
	}
	if old, ok := a.ledger[address]; ok {
		a.total.Sub(a.total, old.value)
	}
	a.total.Add(a.total, v)
	a.ledger[address] = entry{value: v, seq: seq}
}

// Total is the sum of every entry, nil before the first report.
func (a *Accumulator) Total() *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.ledger) == 0 {
		return nil
	}
	return new(big.Int).Set(a.total)
}

// Sum adds up the entries of the given addresses, nil before the first report.
func (a *Accumulator) Sum(addresses []string) *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.ledger) == 0 {
		return nil
	}
	sum := new(big.Int)
	for _, addr := range addresses {
		if e, ok := a.ledger[addr]; ok {
			sum.Add(sum, e.value)
		}
	}
	return sum
}

// Get returns a copy of the balance reported for address.
func (a *Accumulator) Get(address string) (*big.Int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.ledger[address]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(e.value), true
}

// Len is the number of addresses reported so far.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.ledger)
}

// Reset clears the ledger. Called when the session ends.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ledger = make(map[string]entry)
	a.total = new(big.Int)
}
