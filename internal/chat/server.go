package chat

import (
	"context"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wtask/synchat/internal/chat/broker"
	"github.com/wtask/synchat/internal/metrics"
	"github.com/wtask/synchat/pkg/background"
)

// ErrServerClosed - returned by Serve after Shutdown.
var ErrServerClosed = errors.New("chat: server closed")

// Server - represents chat server over any net.Listener implementation.
type Server struct {
	scope *background.Scope

	broker *broker.Broker
	clock  clockwork.Clock
	logger logrus.FieldLogger
}

// ServerOption - configures Server.
type ServerOption func(*Server) error

// WithClock - sets the clock used to stamp messages and answer sync requests.
func WithClock(clock clockwork.Clock) ServerOption {
	return func(s *Server) error {
		if clock == nil {
			return errors.New("chat.WithClock: clock is nil")
		}
		s.clock = clock
		return nil
	}
}

// WithLogger - sets server logger.
func WithLogger(logger logrus.FieldLogger) ServerOption {
	return func(s *Server) error {
		if logger == nil {
			return errors.New("chat.WithLogger: logger is nil")
		}
		s.logger = logger
		return nil
	}
}

// NewServer - creates new chat server which ready to serve several network listeners.
func NewServer(buildBroker BrokerBuilder, options ...ServerOption) (*Server, error) {
	if buildBroker == nil {
		return nil, errors.New("chat.NewServer: required chat.BrokerBuilder is nil")
	}
	b, err := buildBroker()
	if err != nil {
		return nil, errors.Wrap(err, "chat.NewServer: can't build broker")
	}
	scope, cancel := background.NewScope(context.Background())
	s := &Server{
		scope:  scope,
		broker: b,
		clock:  clockwork.NewRealClock(),
		logger: logrus.StandardLogger(),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

// Serve - accepts connections from listener and starts session for each of them.
// Returns nil once the server is shut down; any accept failure before that is returned as is,
// the listener is closed in both cases.
func (s *Server) Serve(listener net.Listener) error {
	if listener == nil {
		return errors.New("chat.Server: listener is nil")
	}
	ctx := s.scope.Context()
	if ctx.Err() != nil {
		return ErrServerClosed
	}
	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer func() {
		if stop() {
			listener.Close()
		}
	}()

	s.logger.WithField("addr", listener.Addr().String()).Info("serving")
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "accept failed")
		}
		metrics.ConnectionsTotal.Inc()
		if err := disableCoalescing(conn); err != nil {
			s.logger.WithError(err).Warn("disable send coalescing failed")
		}
		sess := newSession(s, conn)
		if !s.scope.Go(sess.run) {
			// shutdown began between accept and start
			conn.Close()
			return nil
		}
	}
}

// Shutdown - stops server with the specified timeout and returns stopping duration.
// Listeners are closed, sessions are cancelled and their connections closed.
func (s *Server) Shutdown(timeout time.Duration) time.Duration {
	from := time.Now()
	s.broker.Quit()
	s.scope.Stop()
	if !s.scope.WaitTimeout(timeout) {
		s.logger.WithField("timeout", timeout).Warn("sessions did not stop in time")
	}
	return time.Since(from)
}
