// Package clock implements local process clock with simulated drift and
// an offset estimated against a reference clock with Cristian's algorithm.
//
// All readings are Unix seconds as float64, the same unit the wire protocol uses.
package clock

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
)

// ErrInvalidServerTime - reference time is not a finite number, the estimate is discarded.
var ErrInvalidServerTime = errors.New("invalid server time")

// Clock - local time source with adjustable offset.
type Clock struct {
	source      clockwork.Clock
	originReal  time.Time
	originLocal float64
	hasOrigin   bool
	drift       float64

	mu     sync.Mutex
	offset float64
}

// Option - configures a Clock.
type Option func(*Clock)

// WithSource - sets the real time source.
func WithSource(source clockwork.Clock) Option {
	return func(c *Clock) {
		c.source = source
	}
}

// WithDrift - sets the simulated drift rate: 0.001 makes the local clock
// gain one millisecond per real second.
func WithDrift(rate float64) Option {
	return func(c *Clock) {
		c.drift = rate
	}
}

// WithOrigin - sets the local reading at creation time, the real time is used by default.
func WithOrigin(local float64) Option {
	return func(c *Clock) {
		c.originLocal = local
		c.hasOrigin = true
	}
}

// New - creates a Clock with zero offset.
func New(options ...Option) *Clock {
	c := &Clock{
		source: clockwork.NewRealClock(),
	}
	for _, option := range options {
		option(c)
	}
	c.originReal = c.source.Now()
	if !c.hasOrigin {
		c.originLocal = Seconds(c.originReal)
	}
	return c
}

// NowLocal - returns drifted local time.
func (c *Clock) NowLocal() float64 {
	elapsed := c.source.Since(c.originReal).Seconds()
	return c.originLocal + elapsed*(1+c.drift)
}

// NowSynced - returns local time corrected by the current offset.
func (c *Clock) NowSynced() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.NowLocal() + c.offset
}

// Offset - returns the current offset.
func (c *Clock) Offset() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// Estimate - single Cristian's estimate.
type Estimate struct {
	RTT    float64
	Offset float64
}

// Cristian - estimates the offset of a reference clock assuming symmetric one-way delay.
// tSend and tRecv are local readings around the exchange, serverTime is the reference reading.
func Cristian(tSend, serverTime, tRecv float64) Estimate {
	rtt := tRecv - tSend
	return Estimate{
		RTT:    rtt,
		Offset: serverTime + rtt/2 - tRecv,
	}
}

// Apply - replaces the offset with a fresh estimate. Estimates are not smoothed,
// the last successful exchange wins.
func (c *Clock) Apply(tSend, serverTime, tRecv float64) (Estimate, error) {
	if math.IsNaN(serverTime) || math.IsInf(serverTime, 0) {
		return Estimate{}, ErrInvalidServerTime
	}
	e := Cristian(tSend, serverTime, tRecv)
	c.mu.Lock()
	c.offset = e.Offset
	c.mu.Unlock()
	return e, nil
}

// Seconds - converts t to Unix seconds.
func Seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
}

// Time - converts Unix seconds to time.Time.
func Time(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}
