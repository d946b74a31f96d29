package client

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wtask/synchat/internal/chat/message"
	"github.com/wtask/synchat/internal/clock"
	chatlog "github.com/wtask/synchat/internal/log"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

const (
	noticeConnected    = "[system] connected to server"
	noticeDisconnected = "[system] disconnected"
)

// Client - chat participant connected to the server over TCP.
type Client struct {
	serverAddr   string
	username     string
	writeTimeout time.Duration
	clock        *clock.Clock
	logger       logrus.FieldLogger

	inbox *Inbox

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
}

// Cfg - configures a Client.
type Cfg func(*Client) error

// WithServerAddr - sets the server address to connect to.
func WithServerAddr(addr string) Cfg {
	return func(c *Client) error {
		if addr == "" {
			return errors.New("server address is empty")
		}
		c.serverAddr = addr
		return nil
	}
}

// WithUsername - sets the name put into outgoing chat messages.
func WithUsername(name string) Cfg {
	return func(c *Client) error {
		name = message.Sanitize(name)
		if name == "" {
			return errors.New("username is empty")
		}
		c.username = name
		return nil
	}
}

// WithClock - sets the local clock model.
func WithClock(clk *clock.Clock) Cfg {
	return func(c *Client) error {
		if clk == nil {
			return errors.New("clock is nil")
		}
		c.clock = clk
		return nil
	}
}

// WithWriteTimeout - limits single record write.
func WithWriteTimeout(timeout time.Duration) Cfg {
	return func(c *Client) error {
		if timeout <= 0 {
			return errors.Errorf("invalid write timeout (%v)", timeout)
		}
		c.writeTimeout = timeout
		return nil
	}
}

// WithLogger - sets the client logger.
func WithLogger(l logrus.FieldLogger) Cfg {
	return func(c *Client) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		c.logger = l
		return nil
	}
}

// NewClient - creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	c := &Client{
		serverAddr:   "127.0.0.1:5000",
		username:     "user",
		writeTimeout: 10 * time.Second,
		logger:       logger,
		inbox:        NewInbox(),
	}
	for _, cfg := range cfgs {
		if err := cfg(c); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	return c, nil
}

// Inbox - returns the inbound message queue.
func (c *Client) Inbox() *Inbox {
	return c.inbox
}

// Clock - returns the local clock model.
func (c *Client) Clock() *clock.Clock {
	return c.clock
}

// Username - returns the name used in outgoing chat messages.
func (c *Client) Username() string {
	return c.username
}

// Connect - establishes the connection to the server.
func (c *Client) Connect(ctx context.Context) error {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", c.serverAddr)
	if err != nil {
		return errors.Wrapf(err, "connect to %s failed", c.serverAddr)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			conn.Close()
			return errors.Wrap(err, "disable send coalescing failed")
		}
	}
	c.attach(conn)
	c.inbox.Push(message.Info(noticeConnected))
	c.logger.WithField("addr", c.serverAddr).Info("connected")
	return nil
}

func (c *Client) attach(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) connection() (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Close - closes the connection, pending Receive returns.
func (c *Client) Close() error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	return conn.Close()
}

// Receive - decodes inbound records into the inbox until the stream ends or ctx is done.
// Malformed records are dropped. The connection is closed and a disconnect notice
// is queued on exit, so later sends fail instead of writing into a dead stream.
func (c *Client) Receive(ctx context.Context) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()
	defer c.inbox.Push(message.Info(noticeDisconnected))
	defer conn.Close()

	d := message.NewDecoder(conn)
	for {
		m, err := d.Next()
		if err != nil {
			if message.IsDecodeError(err) {
				c.logger.WithError(err).Debug("malformed record dropped")
				continue
			}
			if ctx.Err() == nil {
				c.logger.WithError(err).Info("receive stopped")
			}
			return nil
		}
		c.logger.WithFields(chatlog.MessageFields(m)).Trace("received")
		c.inbox.Push(m)
	}
}

// SendChat - sends text stamped with the current local time and returns the sent message.
func (c *Client) SendChat(text string) (message.Message, error) {
	text = message.Sanitize(text)
	if text == "" {
		return message.Message{}, ErrEmptyText
	}
	m := message.Chat(c.username, text, message.Float(c.clock.NowLocal()))
	if err := c.send(m); err != nil {
		return message.Message{}, err
	}
	return m, nil
}

// RequestSync - sends sync request.
func (c *Client) RequestSync() error {
	return c.send(message.SyncRequest())
}

func (c *Client) send(m message.Message) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	record, err := message.Encode(m)
	if err != nil {
		return errors.Wrap(err, "encode message failed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return errors.Wrap(err, "set write deadline failed")
	}
	if _, err := conn.Write(record); err != nil {
		return errors.Wrap(err, "send failed")
	}
	return nil
}
