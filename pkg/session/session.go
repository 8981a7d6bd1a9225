// Package session merges accounts, favorites and chain facts into one view.
//
// A Session owns every derived structure and mutates it from a single
// goroutine (Run). Everything else talks to it by posting events. Batch
// queries run concurrently and post their results back tagged with the
// generation they were issued for; results for a superseded address list
// are dropped on arrival.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"acctview/pkg/balance"
	"acctview/pkg/chain"
	"acctview/pkg/metrics"
	"acctview/pkg/models"
	"acctview/pkg/resolver"
	"acctview/pkg/sorter"
	"acctview/pkg/viewmodel"
	"acctview/pkg/wire"

	"github.com/rs/zerolog"
)

// AccountSource lists the known accounts and signals when they change.
type AccountSource interface {
	List(ctx context.Context) ([]models.Account, error)
	Changes() <-chan struct{}
}

// FavoritesStore is the persisted favorites set.
type FavoritesStore interface {
	Get() models.AddressSet
	Toggle(ctx context.Context, address string) error
}

// DataSource performs the batch chain lookups. Each call is one round trip
// and returns one element per address, in order.
type DataSource interface {
	Capabilities(ctx context.Context) (chain.Capabilities, error)
	VotingOf(ctx context.Context, addrs []string) ([]json.RawMessage, error)
	Proxies(ctx context.Context, addrs []string) ([]json.RawMessage, error)
}

// Options tune a Session. Zero values are usable.
type Options struct {
	Policy  balance.Policy
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
	Ledger  *balance.Accumulator
}

type versions struct {
	accounts  uint64
	favorites uint64
}

// Session is the account view of one running program.
type Session struct {
	accounts  AccountSource
	favorites FavoritesStore
	source    DataSource
	ledger    *balance.Accumulator
	policy    balance.Policy
	log       zerolog.Logger
	metrics   *metrics.Metrics

	events  chan Event
	refresh chan struct{}
	done    chan struct{}

	mu          sync.RWMutex
	snapshot    models.Snapshot
	caps        chain.Capabilities
	subscribers []Subscriber

	// Loop state. Only touched by Run.
	shape       wire.ProxyShape
	list        []models.Account
	loaded      bool
	version     versions
	sortedAt    versions
	sortedOnce  bool
	sorted      sorter.Result
	issued      []string
	issuedOnce  bool
	delegations resolver.Batch[*models.Delegation]
	proxies     resolver.Batch[*models.ProxyInfo]
	view        []models.AugmentedAccount
	hasView     bool
	filter      string
	published   uint64
}

// New builds a session. source may be nil when no chain is reachable, in
// which case delegation and proxy facts are unsupported.
func New(accounts AccountSource, favorites FavoritesStore, source DataSource, opts Options) *Session {
	s := &Session{
		accounts:  accounts,
		favorites: favorites,
		source:    source,
		ledger:    opts.Ledger,
		policy:    opts.Policy,
		metrics:   opts.Metrics,
		events:    make(chan Event, 64),
		refresh:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		snapshot:  models.Snapshot{Status: models.StatusPending},
	}
	if s.ledger == nil {
		s.ledger = balance.New()
	}
	if s.policy == "" {
		s.policy = balance.PolicyAll
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "session").Logger()
	} else {
		s.log = zerolog.Nop()
	}
	return s
}

// Subscribe adds a new subscriber and returns a channel to receive snapshots.
func (s *Session) Subscribe() Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(Subscriber, 100)
	select {
	case <-s.done:
		close(ch)
	default:
		s.subscribers = append(s.subscribers, ch)
	}
	return ch
}

// Unsubscribe removes a subscriber.
func (s *Session) Unsubscribe(ch Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (s *Session) notify(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub <- event:
		default:
			// slow subscriber, it picks up a later snapshot
		}
	}
}

// Snapshot returns the last published view.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Capabilities returns what the chain was detected to serve.
func (s *Session) Capabilities() chain.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caps
}

// Done is closed when Run has returned and the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) post(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) poke() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// ToggleFavorite flips address in the favorites store and re-sorts the view.
// The store is updated before it returns.
func (s *Session) ToggleFavorite(ctx context.Context, address string) error {
	if err := s.favorites.Toggle(ctx, address); err != nil {
		return err
	}
	s.post(Event{Type: EventFavoritesChanged, Data: address})
	return nil
}

// SetFilter changes the free-text filter. Accounts are never removed by it.
func (s *Session) SetFilter(filter string) {
	s.post(Event{Type: EventFilterChanged, Data: filter})
}

// ReportBalance stores the latest balance of address. Last write wins.
// Reports after the session ended are ignored.
func (s *Session) ReportBalance(address string, value *big.Int) {
	if !s.report(func() bool { s.ledger.Report(address, value); return true }) {
		return
	}
	s.metrics.BalanceReports.Inc()
	s.poke()
}

// ReportBalanceAt stores balance unless a report with a higher seq for the
// same address was already applied or the session ended.
func (s *Session) ReportBalanceAt(address string, value *big.Int, seq uint64) bool {
	if !s.report(func() bool { return s.ledger.ReportAt(address, value, seq) }) {
		s.metrics.BalanceDropped.Inc()
		s.log.Debug().Str("address", address).Uint64("seq", seq).Msg("Dropped balance report")
		return false
	}
	s.metrics.BalanceReports.Inc()
	s.poke()
	return true
}

// report applies a ledger write unless teardown has run. The read lock
// orders it against teardown's reset.
func (s *Session) report(apply func() bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	select {
	case <-s.done:
		return false
	default:
	}
	return apply()
}

// Start runs the session loop in the background.
func (s *Session) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Run detects chain capabilities, loads the accounts and then processes
// events until ctx is cancelled. On return the balance ledger is cleared and
// subscriber channels are closed.
func (s *Session) Run(ctx context.Context) {
	defer s.teardown()

	s.detect(ctx)
	s.reload(ctx)
	s.recompute(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.accounts.Changes():
			s.reload(ctx)
			s.recompute(ctx)
		case <-s.refresh:
			s.publish()
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.done)
	s.ledger.Reset()
	for _, sub := range s.subscribers {
		close(sub)
	}
	s.subscribers = nil
}

func (s *Session) handle(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventFavoritesChanged:
		s.version.favorites++
		s.recompute(ctx)
	case EventFilterChanged:
		s.filter, _ = ev.Data.(string)
		s.publish()
	case EventDelegationsResolved:
		s.settleDelegations(ev.Data.(delegationResult))
	case EventProxiesResolved:
		s.settleProxies(ev.Data.(proxyResult))
	default:
		s.log.Warn().Str("type", string(ev.Type)).Msg("Unknown event")
	}
}

func (s *Session) detect(ctx context.Context) {
	var caps chain.Capabilities
	if s.source != nil {
		var err error
		caps, err = s.source.Capabilities(ctx)
		switch {
		case errors.Is(err, chain.ErrArity):
			s.log.Warn().Err(err).Int("add_proxy_args", caps.AddProxyArgs).Msg("Proxy arity unknown, using fallback")
		case err != nil:
			s.log.Warn().Err(err).Msg("Capability detection failed, chain facts disabled")
			caps = chain.Capabilities{}
		}
	}
	s.shape = wire.ShapeForArity(caps.AddProxyArgs)
	s.log.Info().
		Bool("delegation", caps.Delegation).
		Bool("proxy", caps.Proxy).
		Str("proxy_shape", s.shape.String()).
		Msg("Chain capabilities detected")

	s.mu.Lock()
	s.caps = caps
	s.mu.Unlock()
}

func (s *Session) reload(ctx context.Context) {
	list, err := s.accounts.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list accounts")
		return
	}
	s.list = list
	s.loaded = true
	s.version.accounts++
}

// recompute re-sorts when accounts or favorites moved on, re-issues the
// batch queries when the sorted address list changed, then publishes.
func (s *Session) recompute(ctx context.Context) {
	if !s.loaded {
		s.publish()
		return
	}
	if !s.sortedOnce || s.sortedAt != s.version {
		s.sorted = sorter.Sort(s.list, s.favorites.Get())
		s.sortedAt = s.version
		s.sortedOnce = true
		s.metrics.Accounts.Set(float64(len(s.sorted.Addresses)))
	}
	if !s.issuedOnce || !slices.Equal(s.issued, s.sorted.Addresses) {
		s.issue(ctx, s.sorted.Addresses)
	}
	s.publish()
}

func (s *Session) issue(ctx context.Context, addrs []string) {
	s.issued = slices.Clone(addrs)
	s.issuedOnce = true
	caps := s.Capabilities()

	switch {
	case !caps.Delegation:
		s.delegations.MarkUnsupported(addrs)
	case len(addrs) == 0:
		s.delegations.Resolve(s.delegations.Begin(addrs), []*models.Delegation{})
	default:
		gen := s.delegations.Begin(addrs)
		s.metrics.BatchQueries.WithLabelValues(metrics.KindDelegation).Inc()
		go s.queryDelegations(ctx, gen, s.issued)
	}

	switch {
	case !caps.Proxy:
		s.proxies.MarkUnsupported(addrs)
	case len(addrs) == 0:
		s.proxies.Resolve(s.proxies.Begin(addrs), []*models.ProxyInfo{})
	default:
		gen := s.proxies.Begin(addrs)
		s.metrics.BatchQueries.WithLabelValues(metrics.KindProxy).Inc()
		go s.queryProxies(ctx, gen, s.shape, s.issued)
	}
}

func (s *Session) queryDelegations(ctx context.Context, gen uint64, addrs []string) {
	res := delegationResult{gen: gen}
	raw, err := s.source.VotingOf(ctx, addrs)
	if err == nil {
		res.values, err = wire.DecodeVoting(raw)
	}
	res.err = err
	s.post(Event{Type: EventDelegationsResolved, Data: res})
}

func (s *Session) queryProxies(ctx context.Context, gen uint64, shape wire.ProxyShape, addrs []string) {
	res := proxyResult{gen: gen}
	raw, err := s.source.Proxies(ctx, addrs)
	if err == nil {
		res.values, err = wire.DecodeProxies(shape, raw)
	}
	res.err = err
	s.post(Event{Type: EventProxiesResolved, Data: res})
}

func (s *Session) settleDelegations(res delegationResult) {
	if settle(s, &s.delegations, res, metrics.KindDelegation) {
		s.publish()
	}
}

func (s *Session) settleProxies(res proxyResult) {
	if settle(s, &s.proxies, res, metrics.KindProxy) {
		s.publish()
	}
}

// settle applies a batch result if it is still current. A failed or
// misaligned batch leaves every slot absent for that generation.
func settle[T any](s *Session, b *resolver.Batch[T], res batchResult[T], kind string) bool {
	if !b.IsCurrent(res.gen) {
		s.metrics.BatchStale.WithLabelValues(kind).Inc()
		s.log.Debug().Str("kind", kind).Uint64("gen", res.gen).Msg("Discarded stale batch result")
		return false
	}
	err := res.err
	if err == nil && !b.Resolve(res.gen, res.values) {
		err = fmt.Errorf("got %d results for %d addresses", len(res.values), len(b.Keys()))
	}
	if err != nil {
		b.Fail(res.gen)
		s.metrics.BatchFailures.WithLabelValues(kind).Inc()
		s.log.Error().Err(err).Str("kind", kind).Uint64("gen", res.gen).Msg("Batch query failed")
	}
	return true
}

// publish derives a snapshot from the current loop state.
func (s *Session) publish() {
	var rows []models.AugmentedAccount
	stale := false

	switch {
	case s.loaded && s.delegations.AlignedWith(s.sorted.Addresses):
		s.view = viewmodel.Join(s.sorted.Accounts, s.delegations.Values(), nil)
		s.hasView = true
		rows = s.view
	case s.hasView:
		rows = s.view
		stale = true
	}

	if s.hasView {
		if keys := viewmodel.Addresses(rows); s.proxies.AlignedWith(keys) {
			rows = viewmodel.WithProxies(rows, s.proxies.Values())
		}
		rows = viewmodel.WithBalances(rows, s.ledger.Get)
	}

	s.published++
	snap := models.Snapshot{
		Status:     viewmodel.Status(s.hasView, len(rows)),
		Stale:      stale,
		Accounts:   rows,
		Filter:     s.filter,
		Total:      s.total(rows),
		Generation: s.published,
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	s.metrics.Snapshots.Inc()
	s.notify(Event{Type: EventSnapshotPublished, Data: snap})
}

func (s *Session) total(rows []models.AugmentedAccount) *big.Int {
	switch s.policy {
	case balance.PolicyListed:
		return s.ledger.Sum(viewmodel.Addresses(rows))
	case balance.PolicyVisible:
		return s.ledger.Sum(viewmodel.Visible(rows, s.filter))
	}
	return s.ledger.Total()
}
