// Package resolver tracks batch queries keyed by an address list.
//
// Every query started with Begin gets a generation token. Only the result
// carrying the current token is applied; anything older was issued for an
// address list that has since been replaced and is discarded.
package resolver

import "slices"

// State of a batch.
type State int

const (
	// Idle: nothing was ever requested.
	Idle State = iota
	// Pending: a query is in flight for the current keys.
	Pending
	// Ready: values are aligned with the current keys.
	Ready
	// Unsupported: the chain lacks the capability; every slot is absent.
	Unsupported
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Unsupported:
		return "unsupported"
	}
	return "idle"
}

// Batch holds the latest batch result for one kind of fact.
// It is not safe for concurrent use; the session loop owns it.
type Batch[T any] struct {
	gen    uint64
	state  State
	keys   []string
	values []T
	failed bool
}

// Begin starts a query for keys and returns its generation token.
func (b *Batch[T]) Begin(keys []string) uint64 {
	b.gen++
	b.state = Pending
	b.keys = slices.Clone(keys)
	b.values = nil
	b.failed = false
	return b.gen
}

// MarkUnsupported settles keys as "no data" without a query. It also
// supersedes any query in flight.
func (b *Batch[T]) MarkUnsupported(keys []string) {
	b.gen++
	b.state = Unsupported
	b.keys = slices.Clone(keys)
	b.values = make([]T, len(keys))
	b.failed = false
}

// Resolve applies values for generation gen. It returns false when gen is
// not the current generation or when values is not index-aligned with the keys.
func (b *Batch[T]) Resolve(gen uint64, values []T) bool {
	if !b.IsCurrent(gen) || len(values) != len(b.keys) {
		return false
	}
	b.state = Ready
	b.values = values
	return true
}

// Fail settles generation gen with every slot absent. Returns false for a stale gen.
func (b *Batch[T]) Fail(gen uint64) bool {
	if !b.IsCurrent(gen) {
		return false
	}
	b.state = Ready
	b.values = make([]T, len(b.keys))
	b.failed = true
	return true
}

// IsCurrent reports whether gen is the generation of the query in flight.
func (b *Batch[T]) IsCurrent(gen uint64) bool {
	return b.state == Pending && gen == b.gen
}

// State is the lifecycle state of the current generation.
func (b *Batch[T]) State() State { return b.state }

// Generation is the token of the latest query issued with Begin.
func (b *Batch[T]) Generation() uint64 { return b.gen }

// Failed reports whether the current values stand in for a failed query.
func (b *Batch[T]) Failed() bool { return b.failed }

// Settled reports whether values are available (Ready or Unsupported).
func (b *Batch[T]) Settled() bool {
	return b.state == Ready || b.state == Unsupported
}

// Keys returns the address list the current values are aligned with.
func (b *Batch[T]) Keys() []string { return b.keys }

// Values returns the settled values, nil while pending.
func (b *Batch[T]) Values() []T {
	if !b.Settled() {
		return nil
	}
	return b.values
}

// AlignedWith reports whether settled values are index-aligned with keys.
func (b *Batch[T]) AlignedWith(keys []string) bool {
	return b.Settled() && slices.Equal(b.keys, keys)
}
