package client

import (
	"context"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// RunOptions - tuning of the interactive session.
type RunOptions struct {
	SyncPeriod   time.Duration
	SyncTimeout  time.Duration
	ClockRefresh time.Duration
	Source       clockwork.Clock
}

// Run - drives connected client until input ends or ctx is done.
// Receiver, consumer, sync coordinator and optional clock refresher run concurrently.
// Losing the server does not end the session: the disconnect is shown and later
// sends report their errors inline. The inbox is drained on exit.
func (c *Client) Run(ctx context.Context, input io.Reader, terminal *Terminal, opts RunOptions) error {
	if _, err := c.connection(); err != nil {
		return err
	}
	source := opts.Source
	if source == nil {
		source = clockwork.NewRealClock()
	}
	cfgs := []CoordinatorCfg{WithTicker(source), WithReporter(ReportTo(terminal))}
	if opts.SyncPeriod > 0 {
		cfgs = append(cfgs, WithPeriod(opts.SyncPeriod))
	}
	if opts.SyncTimeout > 0 {
		cfgs = append(cfgs, WithTimeout(opts.SyncTimeout))
	}
	coordinator, err := NewCoordinator(c, c.inbox, c.clock, cfgs...)
	if err != nil {
		return errors.Wrap(err, "create sync coordinator failed")
	}
	coordinator.logger = c.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		Consume(context.Background(), c.inbox, terminal)
	}()

	g.Go(func() error {
		return c.Receive(gctx)
	})
	g.Go(func() error {
		return coordinator.Run(gctx)
	})
	if opts.ClockRefresh > 0 {
		g.Go(func() error {
			return RefreshClocks(gctx, source, opts.ClockRefresh, c.clock, terminal)
		})
	}
	go func() {
		// input reader is not cancelable, it is abandoned when the session ends first
		err := ReadInput(gctx, input, c, c.clock, terminal)
		if err != nil {
			c.logger.WithError(err).Warn("input stopped")
		}
		cancel()
	}()

	err = g.Wait()
	c.inbox.Close()
	<-consumed
	return err
}
