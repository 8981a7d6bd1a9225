package watcher

import "time"

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventBalanceUpdated EventType = "balance_updated"
	EventBalanceFailed  EventType = "balance_failed"
	EventStatusUpdated  EventType = "status_updated"
)

// Event represents a polling event.
type Event struct {
	Type EventType
	Data interface{}
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

// BalanceUpdate is the Data of EventBalanceUpdated and EventBalanceFailed.
type BalanceUpdate struct {
	Address string
	Round   uint64
	Applied bool
	Err     error
}

// RoundStatus is the Data of EventStatusUpdated, sent after every poll round.
type RoundStatus struct {
	Round    uint64
	Polled   int
	Failed   int
	Finished time.Time
}
