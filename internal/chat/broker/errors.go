package broker

import "github.com/pkg/errors"

var (
	// ErrUnderStopCondition - returns in case if Broker is under stop condition
	// and will not accept any new connections, so you should close such connection by your own.
	ErrUnderStopCondition = errors.New("broker.Broker: under stop condition")

	// ErrNilConn - returns on attempt to keep nil connection.
	ErrNilConn = errors.New("broker.Broker: connection is nil")

	// ErrPeerBroken - an earlier write to the peer failed and may have left a partial record,
	// nothing else is written to such peer.
	ErrPeerBroken = errors.New("broker.Peer: broken by failed write")
)
