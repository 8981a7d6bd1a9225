// Package watcher polls account balances and feeds them to the session.
package watcher

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"acctview/pkg/models"

	"github.com/rs/zerolog"
)

var DefaultInterval = 30 * time.Second

// BalanceSource fetches the balance of one address.
type BalanceSource interface {
	Balance(ctx context.Context, address string) (*big.Int, error)
}

// AccountLister lists the accounts to poll.
type AccountLister interface {
	List(ctx context.Context) ([]models.Account, error)
}

// Reporter receives balances. seq is the poll round; a report for a round
// older than the stored one is refused.
type Reporter interface {
	ReportBalanceAt(address string, value *big.Int, seq uint64) bool
}

// Watcher polls every listed account once per interval.
type Watcher struct {
	source   BalanceSource
	accounts AccountLister
	reporter Reporter
	interval time.Duration
	log      zerolog.Logger

	round   atomic.Uint64
	trigger chan struct{}

	subscribers []Subscriber
	mu          sync.RWMutex
	stopChan    chan struct{}
	stopOnce    sync.Once
	cancel      context.CancelFunc
	loop        sync.WaitGroup
}

// NewWatcher creates a Watcher. A non-positive interval means DefaultInterval.
func NewWatcher(source BalanceSource, accounts AccountLister, reporter Reporter, interval time.Duration, log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		source:   source,
		accounts: accounts,
		reporter: reporter,
		interval: interval,
		log:      log.With().Str("component", "watcher").Logger(),
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (w *Watcher) notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Start begins the polling loop.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.loop.Add(1)
	go func() {
		defer w.loop.Done()
		w.pollingLoop(ctx)
	}()
}

// Stop cancels the round in flight and returns once the polling loop has
// exited, so no report is made after Stop. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.mu.RLock()
		cancel := w.cancel
		w.mu.RUnlock()
		if cancel != nil {
			cancel()
		}
	})
	w.loop.Wait()
}

// Refresh asks for a poll round now. Requests coalesce.
func (w *Watcher) Refresh() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Round is the number of the last round started.
func (w *Watcher) Round() uint64 {
	return w.round.Load()
}

func (w *Watcher) pollingLoop(ctx context.Context) {
	w.Poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Poll(ctx)
		case <-w.trigger:
			w.Poll(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Poll runs one round: every account is fetched concurrently and reported
// with the round number as sequence.
func (w *Watcher) Poll(ctx context.Context) RoundStatus {
	round := w.round.Add(1)
	status := RoundStatus{Round: round}

	accounts, err := w.accounts.List(ctx)
	if err != nil {
		w.log.Error().Err(err).Uint64("round", round).Msg("Failed to list accounts")
		status.Finished = time.Now()
		w.notify(Event{Type: EventStatusUpdated, Data: status})
		return status
	}

	var wg sync.WaitGroup
	var failed atomic.Int64
	for _, acc := range accounts {
		wg.Add(1)
		go func(address string) {
			defer wg.Done()
			value, err := w.source.Balance(ctx, address)
			if err != nil {
				failed.Add(1)
				w.log.Warn().Err(err).Str("address", address).Uint64("round", round).Msg("Balance fetch failed")
				w.notify(Event{Type: EventBalanceFailed, Data: BalanceUpdate{Address: address, Round: round, Err: err}})
				return
			}
			applied := w.reporter.ReportBalanceAt(address, value, round)
			w.notify(Event{Type: EventBalanceUpdated, Data: BalanceUpdate{Address: address, Round: round, Applied: applied}})
		}(acc.Address)
	}
	wg.Wait()

	status.Polled = len(accounts)
	status.Failed = int(failed.Load())
	status.Finished = time.Now()
	w.log.Debug().Uint64("round", round).Int("polled", status.Polled).Int("failed", status.Failed).Msg("Poll round finished")
	w.notify(Event{Type: EventStatusUpdated, Data: status})
	return status
}
