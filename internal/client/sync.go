package client

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wtask/synchat/internal/chat/message"
	"github.com/wtask/synchat/internal/clock"
	"github.com/wtask/synchat/internal/metrics"
)

// Outcome - result kind of single sync round.
type Outcome int

const (
	// OutcomeAdjusted - reply arrived in time, offset replaced.
	OutcomeAdjusted Outcome = iota
	// OutcomeNoReply - no reply before the deadline, offset unchanged.
	OutcomeNoReply
	// OutcomeInvalidServerTime - reply carried no usable server time, offset unchanged.
	OutcomeInvalidServerTime
	// OutcomeSendFailed - request could not be sent, offset unchanged.
	OutcomeSendFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdjusted:
		return "adjusted"
	case OutcomeNoReply:
		return "no_reply"
	case OutcomeInvalidServerTime:
		return "invalid_server_time"
	case OutcomeSendFailed:
		return "send_failed"
	default:
		return "unknown"
	}
}

// Round - report of single sync round.
type Round struct {
	Outcome    Outcome
	TSend      float64
	TRecv      float64
	ServerTime float64
	Estimate   clock.Estimate
	Err        error
}

// Requester - sends sync requests to the server.
type Requester interface {
	RequestSync() error
}

// Reporter - receives every finished round.
type Reporter func(Round)

// Coordinator - periodically estimates the offset of the server clock.
type Coordinator struct {
	requester Requester
	inbox     *Inbox
	clock     *clock.Clock
	source    clockwork.Clock
	period    time.Duration
	timeout   time.Duration
	report    Reporter
	logger    logrus.FieldLogger
}

// CoordinatorCfg - configures a Coordinator.
type CoordinatorCfg func(*Coordinator) error

// WithPeriod - sets the interval between rounds.
func WithPeriod(period time.Duration) CoordinatorCfg {
	return func(c *Coordinator) error {
		if period <= 0 {
			return errors.Errorf("invalid sync period (%v)", period)
		}
		c.period = period
		return nil
	}
}

// WithTimeout - sets how long a round waits for the reply.
func WithTimeout(timeout time.Duration) CoordinatorCfg {
	return func(c *Coordinator) error {
		if timeout <= 0 {
			return errors.Errorf("invalid sync timeout (%v)", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

// WithTicker - sets the time source driving rounds and deadlines.
func WithTicker(source clockwork.Clock) CoordinatorCfg {
	return func(c *Coordinator) error {
		if source == nil {
			return errors.New("time source is nil")
		}
		c.source = source
		return nil
	}
}

// WithReporter - sets the round reporter.
func WithReporter(report Reporter) CoordinatorCfg {
	return func(c *Coordinator) error {
		c.report = report
		return nil
	}
}

// NewCoordinator - creates a Coordinator running rounds every 5 seconds with 1 second deadline.
func NewCoordinator(requester Requester, inbox *Inbox, clk *clock.Clock, cfgs ...CoordinatorCfg) (*Coordinator, error) {
	if requester == nil || inbox == nil || clk == nil {
		return nil, errors.New("requester, inbox and clock are required")
	}
	c := &Coordinator{
		requester: requester,
		inbox:     inbox,
		clock:     clk,
		source:    clockwork.NewRealClock(),
		period:    5 * time.Second,
		timeout:   time.Second,
		logger:    logger,
	}
	for _, cfg := range cfgs {
		if err := cfg(c); err != nil {
			return nil, errors.Wrap(err, "apply Coordinator cfg failed")
		}
	}
	return c, nil
}

// Run - runs a round every period until ctx is done. The first round starts one period after the call.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := c.source.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			c.Round(ctx)
		}
	}
}

func isSyncReply(m message.Message) bool {
	return m.Type == message.KindSyncReply
}

// Round - sends one request and applies Cristian's estimate if the reply arrives before the deadline.
// A late reply is left to the general consumer.
func (c *Coordinator) Round(ctx context.Context) Round {
	pending := c.inbox.Expect(isSyncReply)
	defer pending.Cancel()

	r := Round{TSend: c.clock.NowLocal()}
	if err := c.requester.RequestSync(); err != nil {
		r.Outcome, r.Err = OutcomeSendFailed, err
		return c.finish(r)
	}

	deadline := c.source.NewTimer(c.timeout)
	defer deadline.Stop()
	select {
	case reply := <-pending.C():
		r.TRecv = c.clock.NowLocal()
		if reply.ServerTime == nil {
			r.Outcome, r.Err = OutcomeInvalidServerTime, clock.ErrInvalidServerTime
			return c.finish(r)
		}
		r.ServerTime = *reply.ServerTime
		e, err := c.clock.Apply(r.TSend, r.ServerTime, r.TRecv)
		if err != nil {
			r.Outcome, r.Err = OutcomeInvalidServerTime, err
			return c.finish(r)
		}
		r.Outcome, r.Estimate = OutcomeAdjusted, e
	case <-deadline.Chan():
		r.Outcome = OutcomeNoReply
	case <-ctx.Done():
		r.Outcome, r.Err = OutcomeNoReply, ctx.Err()
	}
	return c.finish(r)
}

func (c *Coordinator) finish(r Round) Round {
	metrics.SyncRounds.WithLabelValues(r.Outcome.String()).Inc()
	fields := logrus.Fields{"outcome": r.Outcome.String(), "t_send": r.TSend}
	if r.Outcome == OutcomeAdjusted {
		metrics.ClockOffset.Set(r.Estimate.Offset)
		metrics.SyncRTT.Observe(r.Estimate.RTT)
		fields["rtt"] = r.Estimate.RTT
		fields["offset"] = r.Estimate.Offset
	}
	entry := c.logger.WithFields(fields)
	if r.Err != nil {
		entry = entry.WithError(r.Err)
	}
	entry.Debug("sync round finished")
	if c.report != nil {
		c.report(r)
	}
	return r
}
