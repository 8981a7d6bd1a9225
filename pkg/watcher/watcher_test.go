package watcher

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"acctview/pkg/balance"
	"acctview/pkg/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBalanceSource struct {
	mock.Mock
}

func (m *MockBalanceSource) Balance(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(address)
	v, _ := args.Get(0).(*big.Int)
	return v, args.Error(1)
}

type staticAccounts []models.Account

func (s staticAccounts) List(context.Context) ([]models.Account, error) {
	return s, nil
}

type failingAccounts struct{}

func (failingAccounts) List(context.Context) ([]models.Account, error) {
	return nil, errors.New("keystore locked")
}

type ledgerReporter struct {
	*balance.Accumulator
}

func (r ledgerReporter) ReportBalanceAt(address string, value *big.Int, seq uint64) bool {
	return r.Accumulator.ReportAt(address, value, seq)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	w := NewWatcher(new(MockBalanceSource), staticAccounts{}, ledgerReporter{balance.New()}, 0, zerolog.Nop())
	assert.Equal(t, DefaultInterval, w.interval)

	sub := w.Subscribe()
	assert.NotNil(t, sub)

	w.mu.RLock()
	assert.Equal(t, 1, len(w.subscribers))
	w.mu.RUnlock()

	w.Unsubscribe(sub)
	w.mu.RLock()
	assert.Equal(t, 0, len(w.subscribers))
	w.mu.RUnlock()
}

func TestPollReportsEveryAccount(t *testing.T) {
	src := new(MockBalanceSource)
	src.On("Balance", "a").Return(big.NewInt(10), nil)
	src.On("Balance", "b").Return(nil, errors.New("timeout"))
	src.On("Balance", "c").Return(big.NewInt(5), nil)

	ledger := balance.New()
	w := NewWatcher(src, staticAccounts{{Address: "a"}, {Address: "b"}, {Address: "c"}}, ledgerReporter{ledger}, time.Hour, zerolog.Nop())
	sub := w.Subscribe()

	status := w.Poll(context.Background())
	assert.Equal(t, uint64(1), status.Round)
	assert.Equal(t, 3, status.Polled)
	assert.Equal(t, 1, status.Failed)
	assert.Equal(t, int64(15), ledger.Total().Int64())

	var updated, failed, statuses int
	for i := 0; i < 4; i++ {
		ev := <-sub
		switch ev.Type {
		case EventBalanceUpdated:
			updated++
			assert.True(t, ev.Data.(BalanceUpdate).Applied)
		case EventBalanceFailed:
			failed++
			assert.Equal(t, "b", ev.Data.(BalanceUpdate).Address)
		case EventStatusUpdated:
			statuses++
		}
	}
	assert.Equal(t, 2, updated)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, statuses)
	src.AssertExpectations(t)
}

func TestLateAnswerFromOlderRoundDropped(t *testing.T) {
	ledger := balance.New()
	r := ledgerReporter{ledger}
	require.True(t, r.ReportBalanceAt("a", big.NewInt(20), 2))

	src := new(MockBalanceSource)
	src.On("Balance", "a").Return(big.NewInt(99), nil)
	w := NewWatcher(src, staticAccounts{{Address: "a"}}, r, time.Hour, zerolog.Nop())

	// round 1 answers after round 2 was stored
	w.Poll(context.Background())
	v, _ := ledger.Get("a")
	assert.Equal(t, int64(20), v.Int64())

	w.Poll(context.Background())
	v, _ = ledger.Get("a")
	assert.Equal(t, int64(99), v.Int64())
}

func TestPollListFailure(t *testing.T) {
	w := NewWatcher(new(MockBalanceSource), failingAccounts{}, ledgerReporter{balance.New()}, time.Hour, zerolog.Nop())
	status := w.Poll(context.Background())
	assert.Equal(t, 0, status.Polled)
	assert.Equal(t, uint64(1), w.Round())
}

type countingSource struct {
	mu    sync.Mutex
	calls int
}

func (c *countingSource) Balance(context.Context, string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return big.NewInt(1), nil
}

func (c *countingSource) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestStartPollsAndRefreshes(t *testing.T) {
	src := &countingSource{}
	w := NewWatcher(src, staticAccounts{{Address: "a"}}, ledgerReporter{balance.New()}, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	require.Eventually(t, func() bool { return src.count() == 1 }, time.Second, 5*time.Millisecond)
	w.Refresh()
	require.Eventually(t, func() bool { return src.count() == 2 }, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()
}

// blockingSource answers only once the round's context is cancelled.
type blockingSource struct {
	entered chan struct{}
}

func (b *blockingSource) Balance(ctx context.Context, _ string) (*big.Int, error) {
	b.entered <- struct{}{}
	<-ctx.Done()
	return big.NewInt(3), nil
}

type recordingReporter struct {
	stopped atomic.Bool
	late    atomic.Int64
}

func (r *recordingReporter) ReportBalanceAt(string, *big.Int, uint64) bool {
	if r.stopped.Load() {
		r.late.Add(1)
	}
	return true
}

func TestStopWaitsForRoundInFlight(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}, 1)}
	rep := &recordingReporter{}
	w := NewWatcher(src, staticAccounts{{Address: "a"}}, rep, time.Hour, zerolog.Nop())

	w.Start(context.Background())
	<-src.entered

	w.Stop()
	rep.stopped.Store(true)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rep.late.Load())
}
