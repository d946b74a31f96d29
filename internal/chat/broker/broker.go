package broker

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wtask/synchat/internal/chat/message"
	"github.com/wtask/synchat/internal/metrics"
)

// Broker - chat connections keeper and message router
type Broker struct {
	writeTimeout time.Duration
	logger       logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	clients *registry
}

// Delivery - result of single broadcast pass.
type Delivery struct {
	// Attempted - number of peers from the snapshot a send was tried for.
	Attempted int
	// Failed - peers which did not take the record, they are already unregistered.
	Failed []*Peer
}

type brokerOption func(b *Broker) error

func setup(b *Broker, options ...brokerOption) error {
	if b == nil {
		return nil
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		if err := option(b); err != nil {
			return err
		}
	}
	return nil
}

// New - builds Broker with needed options.
func New(options ...brokerOption) (*Broker, error) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Broker{
		writeTimeout: 10 * time.Second,
		logger:       logrus.StandardLogger(),
		ctx:          ctx,
		cancel:       cancel,
		clients:      newRegistry(),
	}

	if err := setup(b, options...); err != nil {
		cancel()
		return nil, err
	}

	return b, nil
}

// Quit - puts Broker under stop condition, new connections are refused after that.
// Kept connections are left to their owners.
func (b *Broker) Quit() {
	b.cancel()
}

// KeepConnection - registers connection. Registering known connection is no-op
// which returns the same peer.
func (b *Broker) KeepConnection(conn net.Conn) (*Peer, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	if b.ctx.Err() != nil {
		return nil, ErrUnderStopCondition
	}
	p, added := b.clients.add(newPeer(conn, b.writeTimeout))
	if added {
		metrics.ConnectionsCurrent.Inc()
	}
	return p, nil
}

// DropConnection - unregisters connection, returns false when it was not registered.
func (b *Broker) DropConnection(conn net.Conn) bool {
	if !b.clients.remove(conn) {
		return false
	}
	metrics.ConnectionsCurrent.Dec()
	return true
}

// Peers - returns copy of currently registered peers.
func (b *Broker) Peers() []*Peer {
	return b.clients.snapshot()
}

// Len - returns number of registered peers.
func (b *Broker) Len() int {
	return len(b.clients.snapshot())
}

// SendMessage - sends message to single peer.
func (b *Broker) SendMessage(p *Peer, msg message.Message) error {
	record, err := message.Encode(msg)
	if err != nil {
		return errors.Wrap(err, "encode message failed")
	}
	return p.Send(record)
}

// Broadcast - tries to send a message to every peer registered at call time, except excluded.
// Failed peers do not affect the rest; they are unregistered after the whole pass.
// Be careful placing method into goroutine since clients will become to receive unordered messages.
func (b *Broker) Broadcast(msg message.Message, excluded net.Conn) Delivery {
	record, err := message.Encode(msg)
	if err != nil {
		b.logger.WithError(err).Error("broadcast dropped")
		return Delivery{}
	}
	metrics.Broadcasts.WithLabelValues(string(msg.Type)).Inc()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		delivery Delivery
	)
	for _, p := range b.clients.snapshot() {
		if excluded != nil && p.conn == excluded {
			continue
		}
		delivery.Attempted++
		wg.Add(1)
		go func(p *Peer) {
			defer wg.Done()
			if err := p.Send(record); err != nil {
				b.logger.WithError(err).WithFields(logrus.Fields{
					"peer":   p.ID.String(),
					"remote": p.Remote,
				}).Info("delivery failed")
				mu.Lock()
				delivery.Failed = append(delivery.Failed, p)
				mu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	for _, p := range delivery.Failed {
		b.DropConnection(p.conn)
		metrics.DeliveryFailures.Inc()
	}
	return delivery
}
