package client

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtask/synchat/internal/chat/message"
	"github.com/wtask/synchat/internal/clock"
	"github.com/wtask/synchat/internal/metrics"
)

// requesterFunc - adapts function to Requester.
type requesterFunc func() error

func (f requesterFunc) RequestSync() error {
	return f()
}

func newTestCoordinator(t *testing.T, requester Requester, cfgs ...CoordinatorCfg) (*Coordinator, *Inbox, *clock.Clock, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	clk := clock.New(clock.WithSource(fc), clock.WithOrigin(100))
	inbox := NewInbox()
	c, err := NewCoordinator(requester, inbox, clk, append([]CoordinatorCfg{WithTicker(fc)}, cfgs...)...)
	require.NoError(t, err)
	return c, inbox, clk, fc
}

func TestNewCoordinator_Errors(t *testing.T) {
	inbox, clk := NewInbox(), clock.New()
	noop := requesterFunc(func() error { return nil })

	_, err := NewCoordinator(nil, inbox, clk)
	assert.Error(t, err)
	_, err = NewCoordinator(noop, nil, clk)
	assert.Error(t, err)
	_, err = NewCoordinator(noop, inbox, nil)
	assert.Error(t, err)
	_, err = NewCoordinator(noop, inbox, clk, WithPeriod(0))
	assert.Error(t, err)
	_, err = NewCoordinator(noop, inbox, clk, WithTimeout(-time.Second))
	assert.Error(t, err)
	_, err = NewCoordinator(noop, inbox, clk, WithTicker(nil))
	assert.Error(t, err)

	c, err := NewCoordinator(noop, inbox, clk)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.period)
	assert.Equal(t, time.Second, c.timeout)
}

func TestCoordinator_RoundAdjusts(t *testing.T) {
	var (
		inbox *Inbox
		fc    *clockwork.FakeClock
	)
	requester := requesterFunc(func() error {
		fc.Advance(2 * time.Second)
		inbox.Push(message.SyncReply(205))
		return nil
	})
	c, inbox, clk, fc := newTestCoordinator(t, requester)
	adjusted := testutil.ToFloat64(metrics.SyncRounds.WithLabelValues("adjusted"))

	r := c.Round(context.Background())
	require.NoError(t, r.Err)
	assert.Equal(t, OutcomeAdjusted, r.Outcome)
	assert.Equal(t, 100.0, r.TSend)
	assert.Equal(t, 102.0, r.TRecv)
	assert.Equal(t, 205.0, r.ServerTime)
	assert.InDelta(t, 2.0, r.Estimate.RTT, 1e-9)
	assert.InDelta(t, 104.0, r.Estimate.Offset, 1e-9)
	assert.InDelta(t, 104.0, clk.Offset(), 1e-9)
	assert.InDelta(t, 206.0, clk.NowSynced(), 1e-9)
	assert.Zero(t, inbox.Len(), "reply is consumed by the round")
	assert.Equal(t, adjusted+1, testutil.ToFloat64(metrics.SyncRounds.WithLabelValues("adjusted")))
	assert.InDelta(t, 104.0, testutil.ToFloat64(metrics.ClockOffset), 1e-9)
}

func TestCoordinator_RoundNoReply(t *testing.T) {
	requested := make(chan struct{}, 1)
	c, inbox, clk, fc := newTestCoordinator(t, requesterFunc(func() error {
		requested <- struct{}{}
		return nil
	}))
	clk.Apply(10, 20, 10)
	before := clk.Offset()

	done := make(chan Round, 1)
	go func() {
		done <- c.Round(context.Background())
	}()
	<-requested
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)

	var r Round
	select {
	case r = <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "round did not time out")
	}
	assert.Equal(t, OutcomeNoReply, r.Outcome)
	assert.NoError(t, r.Err)
	assert.Equal(t, before, clk.Offset(), "offset unchanged")

	// late reply is left to the general consumer
	inbox.Push(message.SyncReply(999))
	assert.Equal(t, 1, inbox.Len())
	assert.Equal(t, before, clk.Offset())
}

func TestCoordinator_RoundInvalidServerTime(t *testing.T) {
	replies := []message.Message{
		{Type: message.KindSyncReply},
		message.SyncReply(math.NaN()),
		message.SyncReply(math.Inf(1)),
	}
	for _, reply := range replies {
		reply := reply
		var inbox *Inbox
		c, inbox, clk, _ := newTestCoordinator(t, requesterFunc(func() error {
			inbox.Push(reply)
			return nil
		}))
		r := c.Round(context.Background())
		assert.Equal(t, OutcomeInvalidServerTime, r.Outcome)
		assert.ErrorIs(t, r.Err, clock.ErrInvalidServerTime)
		assert.Zero(t, clk.Offset())
		assert.Zero(t, inbox.Len())
	}
}

func TestCoordinator_RoundSendFailed(t *testing.T) {
	failure := errors.New("broken pipe")
	c, _, clk, _ := newTestCoordinator(t, requesterFunc(func() error {
		return failure
	}))
	r := c.Round(context.Background())
	assert.Equal(t, OutcomeSendFailed, r.Outcome)
	assert.ErrorIs(t, r.Err, failure)
	assert.Zero(t, clk.Offset())
}

func TestCoordinator_RoundKeepsOtherMessages(t *testing.T) {
	var inbox *Inbox
	c, inbox, _, _ := newTestCoordinator(t, requesterFunc(func() error {
		inbox.Push(message.Chat("bob", "first", nil))
		inbox.Push(message.SyncReply(50))
		inbox.Push(message.Info("bob left"))
		return nil
	}))
	r := c.Round(context.Background())
	require.Equal(t, OutcomeAdjusted, r.Outcome)

	require.Equal(t, 2, inbox.Len())
	m, _ := inbox.TryPop()
	assert.Equal(t, "first", m.Text)
	m, _ = inbox.TryPop()
	assert.Equal(t, "bob left", m.Text)
}

func TestCoordinator_Run(t *testing.T) {
	var (
		inbox *Inbox
		fc    *clockwork.FakeClock
	)
	requests := 0
	rounds := make(chan Round, 4)
	c, inbox, clk, fc := newTestCoordinator(t,
		requesterFunc(func() error {
			requests++
			inbox.Push(message.SyncReply(fc.Since(time.Unix(1700000000, 0)).Seconds() + 1000))
			return nil
		}),
		WithPeriod(5*time.Second),
		WithReporter(func(r Round) { rounds <- r }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() {
		stopped <- c.Run(ctx)
	}()

	for i := 1; i <= 2; i++ {
		wait, waitCancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, fc.BlockUntilContext(wait, 1))
		waitCancel()
		fc.Advance(5 * time.Second)
		select {
		case r := <-rounds:
			assert.Equal(t, OutcomeAdjusted, r.Outcome)
		case <-time.After(time.Second):
			require.FailNow(t, "no round reported")
		}
	}
	assert.Equal(t, 2, requests)
	assert.InDelta(t, 900.0, clk.Offset(), 1e-9, "server runs 900 seconds ahead")

	cancel()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		require.FailNow(t, "Run did not stop")
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "adjusted", OutcomeAdjusted.String())
	assert.Equal(t, "no_reply", OutcomeNoReply.String())
	assert.Equal(t, "invalid_server_time", OutcomeInvalidServerTime.String())
	assert.Equal(t, "send_failed", OutcomeSendFailed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
