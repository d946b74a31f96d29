package broker

import (
	"net"
	"sync"
)

// registry - set of live peers keyed by connection identity.
// Nothing but add, remove and snapshot touches the set.
type registry struct {
	mu   sync.Mutex
	list map[net.Conn]*Peer
}

func newRegistry() *registry {
	return &registry{
		list: make(map[net.Conn]*Peer),
	}
}

// add - registers peer; returns already registered peer and false for known connection.
func (r *registry) add(p *Peer) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kept, ok := r.list[p.conn]; ok {
		return kept, false
	}
	r.list[p.conn] = p
	return p, true
}

// remove - unregisters connection, no-op when absent.
func (r *registry) remove(conn net.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.list[conn]; !ok {
		return false
	}
	delete(r.list, conn)
	return true
}

// snapshot - copies current peers out, so callers never hold the lock during IO.
func (r *registry) snapshot() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers := make([]*Peer, 0, len(r.list))
	for _, p := range r.list {
		peers = append(peers, p)
	}
	return peers
}
