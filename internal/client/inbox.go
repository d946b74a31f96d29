package client

import (
	"context"
	"sync"

	"github.com/wtask/synchat/internal/chat/message"
)

// Inbox - single queue of inbound messages shared by the general consumer
// and the sync coordinator.
//
// The coordinator never takes messages out of the queue: it registers a claim
// with Expect before sending its request, and the receiver hands the first
// matching message to the claim instead of queueing it. Everything else stays
// in arrival order for the general consumer.
type Inbox struct {
	mu     sync.Mutex
	items  []message.Message
	wake   chan struct{}
	claim  *Pending
	closed bool
}

// Pending - outstanding claim for one message.
type Pending struct {
	inbox *Inbox
	match func(message.Message) bool
	c     chan message.Message
}

// NewInbox - builds empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{wake: make(chan struct{})}
}

// Push - delivers message to the outstanding claim if it matches, or appends it to the queue.
func (q *Inbox) Push(m message.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if p := q.claim; p != nil && p.match(m) {
		q.claim = nil
		p.c <- m
		return
	}
	q.items = append(q.items, m)
	close(q.wake)
	q.wake = make(chan struct{})
}

// Pop - removes and returns the oldest queued message, waits while the queue is empty.
func (q *Inbox) Pop(ctx context.Context) (message.Message, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			m := q.items[0]
			q.items[0] = message.Message{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return m, nil
		}
		if q.closed {
			q.mu.Unlock()
			return message.Message{}, ErrInboxClosed
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return message.Message{}, ctx.Err()
		}
	}
}

// TryPop - removes and returns the oldest queued message if any.
func (q *Inbox) TryPop() (message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return message.Message{}, false
	}
	m := q.items[0]
	q.items[0] = message.Message{}
	q.items = q.items[1:]
	return m, true
}

// Len - returns number of queued messages.
func (q *Inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close - wakes waiting consumers, they get ErrInboxClosed once the queue is drained.
// Messages pushed after Close are dropped.
func (q *Inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.wake)
}

// Expect - registers claim for the next pushed message satisfying match.
// Messages queued before the claim are not considered. Only one claim may be
// outstanding, a new one replaces the previous.
func (q *Inbox) Expect(match func(message.Message) bool) *Pending {
	p := &Pending{
		inbox: q,
		match: match,
		c:     make(chan message.Message, 1),
	}
	q.mu.Lock()
	q.claim = p
	q.mu.Unlock()
	return p
}

// C - delivers the claimed message, at most once.
func (p *Pending) C() <-chan message.Message {
	return p.c
}

// Cancel - releases the claim, later matching messages go to the queue.
func (p *Pending) Cancel() {
	q := p.inbox
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claim == p {
		q.claim = nil
	}
}
