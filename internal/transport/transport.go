// internal/transport/transport.go
// Package transport is the duplex WebSocket channel to the debate server.
// It never reconnects; every connection ends with exactly one closed event.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"debatewatch/internal/event"
	"debatewatch/internal/logging"
)

// Event names published by a Client.
const (
	EventConnected = "transport.connected"
	EventMessage   = "transport.message"
	EventError     = "transport.error"
	EventClosed    = "transport.closed"
)

var (
	ErrClosed       = errors.New("transport closed")
	ErrNotConnected = errors.New("transport not connected")
)

// ConnectedEvent is published once the handshake completes.
type ConnectedEvent struct {
	event.Base
	URL string
}

// MessageEvent carries one raw text frame.
type MessageEvent struct {
	event.Base
	Raw []byte
}

// ErrorEvent reports a dial or read failure. A closed event always follows.
type ErrorEvent struct {
	event.Base
	Err error
}

// ClosedEvent is the last event of a connection.
type ClosedEvent struct {
	event.Base
	Code   int
	Reason string
}

// Conn is what the controller needs from a transport.
type Conn interface {
	Connect(ctx context.Context, url string)
	Send(v any) error
	Close() error
	On(name string, handler event.Handler) *event.Subscription
	Off(sub *event.Subscription) bool
}

// Options tunes a Client.
type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64
}

// DefaultOptions suit base64 audio frames of a few megabytes.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadLimit:        32 << 20,
	}
}

// Client is a single-use WebSocket connection. Create a new one per session.
type Client struct {
	opts   Options
	dialer *websocket.Dialer
	bus    *event.Bus
	log    *logging.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	started bool
	closing bool

	closeOnce sync.Once
}

// New creates an unconnected client.
func New(opts Options, log *logging.Logger) *Client {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = DefaultOptions().HandshakeTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultOptions().WriteTimeout
	}
	if opts.ReadLimit == 0 {
		opts.ReadLimit = DefaultOptions().ReadLimit
	}
	return &Client{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   65536,
			WriteBufferSize:  65536,
		},
		bus: event.NewBus(),
		log: log.WithComponent("transport"),
	}
}

// On subscribes to one of the Event* names.
func (c *Client) On(name string, handler event.Handler) *event.Subscription {
	return c.bus.Subscribe(name, handler)
}

// Off removes a subscription by handle.
func (c *Client) Off(sub *event.Subscription) bool {
	return c.bus.Unsubscribe(sub)
}

// Connect dials url in the background. Subscribe before calling it.
// A second call is ignored.
func (c *Client) Connect(ctx context.Context, url string) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		c.log.Warn("connect called twice", "url", url)
		return
	}
	c.started = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	closing := c.closing
	c.mu.Unlock()

	if closing {
		cancel()
		go c.finish(websocket.CloseNormalClosure, "closed before connect")
		return
	}

	go c.run(ctx, url)
}

func (c *Client) run(ctx context.Context, url string) {
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if c.isClosing() {
			c.finish(websocket.CloseNormalClosure, "closed during connect")
			return
		}
		c.log.Warn("dial failed", "url", url, "error", err)
		c.publish(ErrorEvent{Base: event.NewBase(EventError), Err: fmt.Errorf("dial %s: %w", url, err)})
		c.finish(websocket.CloseAbnormalClosure, err.Error())
		return
	}
	conn.SetReadLimit(c.opts.ReadLimit)

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = conn.Close()
		c.finish(websocket.CloseNormalClosure, "closed during connect")
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info("connected", "url", url)
	c.publish(ConnectedEvent{Base: event.NewBase(EventConnected), URL: url})

	c.readLoop(conn)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			code, reason := websocket.CloseAbnormalClosure, err.Error()
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				code, reason = ce.Code, ce.Text
			}
			if !c.isClosing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("read failed", "error", err)
				c.publish(ErrorEvent{Base: event.NewBase(EventError), Err: err})
			}
			if c.isClosing() {
				code, reason = websocket.CloseNormalClosure, "client closed"
			}
			_ = conn.Close()
			c.finish(code, reason)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		c.publish(MessageEvent{Base: event.NewBase(EventMessage), Raw: data})
	}
}

// Send JSON-encodes v as one text frame.
func (c *Client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	c.mu.Lock()
	conn, closing := c.conn, c.closing
	c.mu.Unlock()
	if closing {
		return ErrClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close ends the connection. It is idempotent and safe before Connect.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	conn, cancel, started := c.conn, c.cancel, c.started
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		if !started {
			go c.finish(websocket.CloseNormalClosure, "closed before connect")
		}
		return nil
	}

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteTimeout))
	c.writeMu.Unlock()

	// The read loop sees the close reply (or the broken socket) and finishes.
	// Force it if the peer never answers.
	time.AfterFunc(c.opts.WriteTimeout, func() { _ = conn.Close() })

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		_ = conn.Close()
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (c *Client) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Client) finish(code int, reason string) {
	c.closeOnce.Do(func() {
		c.log.Info("closed", "code", code, "reason", reason)
		c.publish(ClosedEvent{Base: event.NewBase(EventClosed), Code: code, Reason: reason})
	})
}

func (c *Client) publish(ev event.Event) {
	c.bus.Publish(ev)
}

// Factory creates a fresh Conn for each session.
type Factory func() Conn

// NewFactory returns a Factory producing Clients with the given options.
func NewFactory(opts Options, log *logging.Logger) Factory {
	return func() Conn { return New(opts, log) }
}
