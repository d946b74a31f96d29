package broker

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Peer - registered connection on the server side.
type Peer struct {
	ID     uuid.UUID
	Remote string

	conn         net.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
	broken       bool
}

func newPeer(conn net.Conn, writeTimeout time.Duration) *Peer {
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &Peer{
		ID:           uuid.New(),
		Remote:       remote,
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// Conn - returns underlying connection.
func (p *Peer) Conn() net.Conn {
	return p.conn
}

// Send - writes complete record to the peer.
// Writes are serialized, so records of concurrent senders never interleave.
// After the first failure the peer refuses further records with ErrPeerBroken.
func (p *Peer) Send(record []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broken {
		return ErrPeerBroken
	}
	if p.writeTimeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
			p.broken = true
			return errors.Wrap(err, "set write deadline failed")
		}
	}
	if _, err := p.conn.Write(record); err != nil {
		p.broken = true
		return errors.Wrapf(err, "write to %s failed", p.Remote)
	}
	return nil
}
