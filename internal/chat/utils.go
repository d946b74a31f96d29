package chat

import (
	"fmt"
	"net"

	"github.com/wtask/synchat/internal/chat/broker"
	"github.com/wtask/synchat/internal/chat/message"
)

// joinNotice - formats notice about new client.
func joinNotice(p *broker.Peer) message.Message {
	return message.Info(fmt.Sprintf("%s joined", p.Remote))
}

// leaveNotice - formats notice about gone client.
func leaveNotice(p *broker.Peer) message.Message {
	return message.Info(fmt.Sprintf("%s left", p.Remote))
}

// disableCoalescing - turns Nagle's algorithm off for TCP connections, so small records leave immediately.
func disableCoalescing(conn net.Conn) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	return tcp.SetNoDelay(true)
}
