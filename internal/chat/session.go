package chat

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/wtask/synchat/internal/chat/broker"
	"github.com/wtask/synchat/internal/chat/message"
	"github.com/wtask/synchat/internal/clock"
	chatlog "github.com/wtask/synchat/internal/log"
	"github.com/wtask/synchat/internal/metrics"
)

type sessionState int

const (
	stateJoining sessionState = iota
	stateActive
	stateLeaving
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateJoining:
		return "joining"
	case stateActive:
		return "active"
	case stateLeaving:
		return "leaving"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// session - drives single connection: join, read loop, leave.
// The connection is owned by the session exclusively.
type session struct {
	server *Server
	conn   net.Conn
	peer   *broker.Peer
	state  sessionState
	logger logrus.FieldLogger
}

func newSession(s *Server, conn net.Conn) *session {
	return &session{
		server: s,
		conn:   conn,
		state:  stateJoining,
		logger: s.logger.WithField("remote", conn.RemoteAddr().String()),
	}
}

func (s *session) run(ctx context.Context) {
	for s.state != stateClosed {
		s.logger.WithField("state", s.state).Trace("session state")
		switch s.state {
		case stateJoining:
			s.join()
		case stateActive:
			s.serve(ctx)
		case stateLeaving:
			s.leave()
		}
	}
}

func (s *session) join() {
	b := s.server.broker
	peer, err := b.KeepConnection(s.conn)
	if err != nil {
		s.logger.WithError(err).Info("connection refused")
		s.conn.Close()
		s.state = stateClosed
		return
	}
	s.peer = peer
	s.logger = s.logger.WithField("peer", peer.ID.String())
	s.logger.Info("joined")
	b.Broadcast(joinNotice(peer), s.conn)
	s.state = stateActive
}

func (s *session) serve(ctx context.Context) {
	// unblocks pending read on shutdown
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})
	defer stop()

	d := message.NewDecoder(s.conn)
	for {
		m, err := d.Next()
		if err != nil {
			if message.IsDecodeError(err) {
				metrics.DecodeFailures.Inc()
				s.logger.WithError(err).Debug("malformed record dropped")
				continue
			}
			s.logger.WithError(err).Debug("read loop stopped")
			break
		}
		metrics.MessagesReceived.WithLabelValues(string(m.Type)).Inc()
		if err := s.handle(m); err != nil {
			s.logger.WithError(err).Info("reply failed")
			break
		}
	}
	s.state = stateLeaving
}

// handle - processes single inbound message, error means the connection is unusable.
func (s *session) handle(m message.Message) error {
	b := s.server.broker
	now := clock.Seconds(s.server.clock.Now())
	switch m.Type {
	case message.KindChat:
		out := message.Message{
			Type:     message.KindChat,
			From:     m.From,
			Text:     m.Text,
			ClientTS: m.ClientTS,
			ServerTS: &now,
		}
		s.logger.WithFields(chatlog.MessageFields(out)).Debug("chat received")
		// the sender gets its own message back to learn the server stamp
		b.Broadcast(out, nil)
	case message.KindSyncRequest:
		return b.SendMessage(s.peer, message.SyncReply(now))
	default:
		s.logger.WithFields(chatlog.MessageFields(m)).Debug("unexpected message ignored")
	}
	return nil
}

func (s *session) leave() {
	b := s.server.broker
	b.DropConnection(s.conn)
	if err := s.conn.Close(); err != nil {
		s.logger.WithError(err).Trace("close connection")
	}
	s.logger.Info("left")
	b.Broadcast(leaveNotice(s.peer), s.conn)
	s.state = stateClosed
}
