package payouts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugs-network/trivia_layer/internal/scoreboard"
	"github.com/hugs-network/trivia_layer/pkg/logger"
	"github.com/hugs-network/trivia_layer/services/rewards"
	"github.com/hugs-network/trivia_layer/services/trivia"
)

type fakeRewarder struct {
	mu       sync.Mutex
	requests []rewards.RewardRequest
	results  []rewards.RewardResult
}

func (f *fakeRewarder) PayReward(_ context.Context, req rewards.RewardRequest) rewards.RewardResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return rewards.RewardResult{OK: true, TxHash: "HASH"}
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *scoreboard.Store, *fakeRewarder) {
	t.Helper()
	store, err := scoreboard.Open(context.Background(), scoreboard.DriverSQLite, ":memory:", 5)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rw := &fakeRewarder{}
	d := New(Config{Amount: 5, Token: "HUGS", MaxAttempts: 2}, store, store, rw, logger.Discard())
	return d, store, rw
}

func TestSettlePaysLinkedWinner(t *testing.T) {
	d, store, rw := newTestDispatcher(t)
	ctx := context.Background()
	require.NoError(t, store.LinkAddress(ctx, "@alice", "rJrRMgiRgrU6hDF4pgu5DXQdWyPbY35ErN"))

	st := d.Settle(ctx, trivia.Winner{RoundID: "r1", Handle: "@Alice"})
	assert.True(t, st.OK)
	assert.Equal(t, "HASH", st.TxHash)

	require.Len(t, rw.requests, 1)
	assert.Equal(t, "rJrRMgiRgrU6hDF4pgu5DXQdWyPbY35ErN", rw.requests[0].Address)
	assert.Equal(t, 5.0, rw.requests[0].Amount)
	assert.Equal(t, "HUGS", rw.requests[0].Token)

	p, err := store.GetPayout(ctx, st.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, scoreboard.PayoutPaid, p.Status)
	assert.Equal(t, 1, p.Attempts)
	assert.Equal(t, "HASH", p.TxHash)
}

func TestSettleWithoutAddressStaysPending(t *testing.T) {
	d, store, rw := newTestDispatcher(t)
	ctx := context.Background()

	st := d.Settle(ctx, trivia.Winner{RoundID: "r1", Handle: "@bob"})
	assert.False(t, st.OK)
	assert.Equal(t, ErrNoAddress, st.Error)
	assert.Empty(t, rw.requests)

	p, err := store.GetPayout(ctx, st.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, scoreboard.PayoutPending, p.Status)
	assert.Zero(t, p.Attempts)

	require.NoError(t, store.LinkAddress(ctx, "@bob", "rLUEXYuLiQptky37CqLcm9USQpPiz5rkpD"))
	report, err := d.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryReport{Attempted: 1, Paid: 1}, report)

	p, err = store.GetPayout(ctx, st.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, scoreboard.PayoutPaid, p.Status)
	assert.Equal(t, "rLUEXYuLiQptky37CqLcm9USQpPiz5rkpD", p.Address)
}

func TestFailedPayoutRetriedUntilMaxAttempts(t *testing.T) {
	d, store, rw := newTestDispatcher(t)
	ctx := context.Background()
	require.NoError(t, store.LinkAddress(ctx, "@carol", "rJrRMgiRgrU6hDF4pgu5DXQdWyPbY35ErN"))

	failure := rewards.RewardResult{Error: rewards.CodeNoTrustLine}
	rw.results = []rewards.RewardResult{failure, failure, failure}

	st := d.Settle(ctx, trivia.Winner{RoundID: "r1", Handle: "@carol"})
	assert.False(t, st.OK)
	assert.Equal(t, "no_trustline", st.Error)

	report, err := d.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryReport{Attempted: 1, Failed: 1}, report)

	report, err = d.Retry(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted, "attempts exhausted")

	p, err := store.GetPayout(ctx, st.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, scoreboard.PayoutFailed, p.Status)
	assert.Equal(t, 2, p.Attempts)
	assert.Equal(t, "no_trustline", p.LastError)
	assert.Len(t, rw.requests, 2)
}

// slowRewarder blocks every payment until release is closed.
type slowRewarder struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newSlowRewarder() *slowRewarder {
	return &slowRewarder{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (s *slowRewarder) PayReward(ctx context.Context, _ rewards.RewardRequest) rewards.RewardResult {
	s.calls.Add(1)
	s.entered <- struct{}{}
	<-s.release
	return rewards.RewardResult{OK: true, TxHash: "HASH"}
}

func (s *slowRewarder) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-s.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("payment never started")
	}
}

func newSlowDispatcher(t *testing.T) (*Dispatcher, *scoreboard.Store, *slowRewarder) {
	t.Helper()
	store, err := scoreboard.Open(context.Background(), scoreboard.DriverSQLite, ":memory:", 5)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rw := newSlowRewarder()
	d := New(Config{Amount: 5, Token: "HUGS", MaxAttempts: 3}, store, store, rw, logger.Discard())
	return d, store, rw
}

func TestRetryDuringSettleDoesNotPayTwice(t *testing.T) {
	d, store, rw := newSlowDispatcher(t)
	ctx := context.Background()
	require.NoError(t, store.LinkAddress(ctx, "@alice", "rJrRMgiRgrU6hDF4pgu5DXQdWyPbY35ErN"))

	done := make(chan trivia.Settlement, 1)
	go func() { done <- d.Settle(ctx, trivia.Winner{RoundID: "r1", Handle: "@alice"}) }()
	rw.waitEntered(t)

	report, err := d.Retry(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)

	close(rw.release)
	st := <-done
	assert.True(t, st.OK)
	assert.EqualValues(t, 1, rw.calls.Load())

	p, err := store.GetPayout(ctx, st.PayoutID)
	require.NoError(t, err)
	assert.Equal(t, scoreboard.PayoutPaid, p.Status)
	assert.Equal(t, 1, p.Attempts)
}

func TestOverlappingRetriesPayOnce(t *testing.T) {
	d, store, rw := newSlowDispatcher(t)
	ctx := context.Background()
	_, err := store.CreatePayout(ctx, scoreboard.Payout{
		ID: "p1", RoundID: "r1", Username: "@carol", Address: "rJrRMgiRgrU6hDF4pgu5DXQdWyPbY35ErN",
		Amount: 5, Token: "HUGS", Status: scoreboard.PayoutFailed, Attempts: 1,
	})
	require.NoError(t, err)

	first := make(chan RetryReport, 1)
	go func() {
		report, _ := d.Retry(ctx)
		first <- report
	}()
	rw.waitEntered(t)

	second, err := d.Retry(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Attempted)

	close(rw.release)
	assert.Equal(t, RetryReport{Attempted: 1, Paid: 1}, <-first)
	assert.EqualValues(t, 1, rw.calls.Load())
}

// staleStore replays a retry listing taken before another pass settled it.
type staleStore struct {
	Store
	due []scoreboard.Payout
}

func (s staleStore) ListRetryable(context.Context, int, int) ([]scoreboard.Payout, error) {
	return s.due, nil
}

func TestRetrySkipsPayoutClaimedElsewhere(t *testing.T) {
	d, store, rw := newTestDispatcher(t)
	ctx := context.Background()
	_, err := store.CreatePayout(ctx, scoreboard.Payout{
		ID: "p1", RoundID: "r1", Username: "@erin", Address: "rJrRMgiRgrU6hDF4pgu5DXQdWyPbY35ErN",
		Amount: 5, Token: "HUGS", Status: scoreboard.PayoutPending,
	})
	require.NoError(t, err)

	listed, err := store.ListRetryable(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	report, err := d.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryReport{Attempted: 1, Paid: 1}, report)

	stale := New(Config{Amount: 5, Token: "HUGS"}, staleStore{Store: store, due: listed}, store, rw, logger.Discard())
	report, err = stale.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, RetryReport{Skipped: 1}, report)
	assert.Len(t, rw.requests, 1)
}

type brokenStore struct{ Store }

func (brokenStore) CreatePayout(context.Context, scoreboard.Payout) (scoreboard.Payout, error) {
	return scoreboard.Payout{}, errors.New("db down")
}

func (brokenStore) ListRetryable(context.Context, int, int) ([]scoreboard.Payout, error) {
	return nil, errors.New("db down")
}

func TestStoreFailureReported(t *testing.T) {
	rw := &fakeRewarder{}
	d := New(Config{}, brokenStore{}, nil, rw, logger.Discard())

	st := d.Settle(context.Background(), trivia.Winner{RoundID: "r1", Handle: "@dan"})
	assert.False(t, st.OK)
	assert.Equal(t, ErrStore, st.Error)
	assert.Empty(t, rw.requests)

	_, err := d.Retry(context.Background())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Stop(ctx))

	bad := New(Config{Schedule: "whenever"}, nil, nil, nil, logger.Discard())
	assert.Error(t, bad.Start(ctx))
}
