package session

import "acctview/pkg/models"

// EventType defines the type of event flowing through the session loop.
type EventType string

const (
	EventFavoritesChanged    EventType = "favorites_changed"
	EventFilterChanged       EventType = "filter_changed"
	EventDelegationsResolved EventType = "delegations_resolved"
	EventProxiesResolved     EventType = "proxies_resolved"
	EventSnapshotPublished   EventType = "snapshot_published"
)

// Event is an input to the session loop or, for EventSnapshotPublished, an
// output to subscribers carrying a models.Snapshot.
type Event struct {
	Type EventType
	Data interface{}
}

// Subscriber is a channel that receives published snapshots.
type Subscriber chan Event

// batchResult is what a query goroutine posts back. gen is the token the
// batch was issued with.
type batchResult[T any] struct {
	gen    uint64
	values []T
	err    error
}

type (
	delegationResult = batchResult[*models.Delegation]
	proxyResult      = batchResult[*models.ProxyInfo]
)
