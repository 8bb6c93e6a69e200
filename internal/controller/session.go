// internal/controller/session.go
package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"debatewatch/internal/event"
	"debatewatch/internal/logging"
	"debatewatch/internal/protocol"
	"debatewatch/internal/transport"
)

// SessionState is the lifecycle of the current session.
type SessionState int

const (
	SessionNone SessionState = iota
	SessionConnecting
	SessionOpen
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionOpen:
		return "open"
	case SessionClosed:
		return "closed"
	default:
		return "none"
	}
}

// Status lines shown to the user.
const (
	StatusReady        = "Ready"
	StatusConnecting   = "Connecting..."
	StatusConnected    = "Connected, waiting for the debate"
	StatusInProgress   = "Debate in progress"
	StatusCompleted    = "Debate completed"
	StatusDisconnected = "Disconnected"
	StatusPaused       = "Paused"
)

type session struct {
	id        string
	gen       uint64
	conn      transport.Conn
	subs      []*event.Subscription
	started   time.Time
	iteration int
	state     SessionState
	pausing   bool
	log       *logging.Logger
}

func (s *session) active() bool {
	return s.state == SessionConnecting || s.state == SessionOpen
}

// detach drops the transport subscriptions.
func (s *session) detach() {
	for _, sub := range s.subs {
		s.conn.Off(sub)
	}
	s.subs = nil
}

func (c *Controller) startSession() {
	if c.sess != nil && c.sess.active() {
		c.sess.log.Warn("start ignored, session already open", "state", c.sess.state.String())
		return
	}

	c.gen++
	gen := c.gen
	conn := c.deps.Transports()
	s := &session{
		id:      uuid.NewString(),
		gen:     gen,
		conn:    conn,
		started: c.deps.Clock.Now(),
		state:   SessionConnecting,
	}
	s.log = c.log.WithSession(s.id)

	s.subs = []*event.Subscription{
		conn.On(transport.EventConnected, func(event.Event) {
			c.post(func() { c.onConnected(gen) })
		}),
		conn.On(transport.EventMessage, func(e event.Event) {
			if m, ok := e.(transport.MessageEvent); ok {
				c.post(func() { c.onMessage(gen, m.Raw) })
			}
		}),
		conn.On(transport.EventError, func(e event.Event) {
			var err error = errors.New("unknown error")
			if ee, ok := e.(transport.ErrorEvent); ok && ee.Err != nil {
				err = ee.Err
			}
			c.post(func() { c.onTransportError(gen, err) })
		}),
		conn.On(transport.EventClosed, func(e event.Event) {
			ce, _ := e.(transport.ClosedEvent)
			c.post(func() { c.onClosed(gen, ce.Code, ce.Reason) })
		}),
	}

	c.sess = s
	c.timeline = nil
	for _, a := range c.agents {
		a.queue = nil
	}
	c.status = StatusConnecting
	c.canStart = false
	c.canPause = true

	s.log.Info("starting session", "endpoint", c.opts.Endpoint)
	conn.Connect(c.ctx, c.opts.Endpoint)
	c.publish()
}

func (c *Controller) pauseSession() {
	s := c.sess
	if s == nil || !s.active() || s.pausing {
		return
	}
	s.pausing = true
	s.log.Info("pausing session")

	c.cancelBubbles()
	c.dropQueues()
	c.appendEntry(KindSystem, "Debate paused")
	c.status = StatusPaused
	if err := s.conn.Close(); err != nil {
		s.log.Warn("close failed", "error", err)
	}
	c.publish()
}

func (c *Controller) dropQueues() {
	for _, a := range c.agents {
		if n := len(a.queue); n > 0 {
			a.log.Info("dropping queued speech", "count", n)
			a.queue = nil
		}
	}
}

// current returns the session for gen, or nil if the event is stale.
func (c *Controller) current(gen uint64) *session {
	if c.sess == nil || c.sess.gen != gen {
		return nil
	}
	return c.sess
}

func (c *Controller) onConnected(gen uint64) {
	s := c.current(gen)
	if s == nil || s.state != SessionConnecting {
		return
	}
	s.state = SessionOpen
	c.appendEntry(KindSystem, "Connected to the debate server")
	c.status = StatusConnected

	if err := s.conn.Send(protocol.StartDebate()); err != nil {
		s.log.Error("start command not sent", "error", err)
		c.appendEntry(KindError, fmt.Sprintf("Could not start the debate: %v", err))
	}
	c.publish()
}

func (c *Controller) onTransportError(gen uint64, err error) {
	s := c.current(gen)
	if s == nil || s.state == SessionClosed {
		return
	}
	s.log.Warn("transport error", "error", err)
	c.appendEntry(KindError, fmt.Sprintf("Connection error: %v", err))
	c.publish()
}

func (c *Controller) onClosed(gen uint64, code int, reason string) {
	s := c.current(gen)
	if s == nil || s.state == SessionClosed {
		return
	}
	s.state = SessionClosed
	s.detach()
	s.log.Info("session closed", "code", code, "reason", reason)

	c.cancelBubbles()
	c.dropQueues()

	c.appendEntry(KindSystem, "Connection closed")
	if c.status != StatusCompleted && c.status != StatusPaused {
		c.status = StatusDisconnected
	}
	c.canStart = true
	c.canPause = false
	c.publish()
}

// live reports whether the current session still accepts UI effects.
func (c *Controller) live() bool {
	return c.sess != nil && c.sess.active() && !c.sess.pausing
}

// cancelBubbles stops pending bubble clears and clears those bubbles now.
// Agents still speaking keep theirs until their wait step resolves.
func (c *Controller) cancelBubbles() {
	for _, a := range c.agents {
		if a.cancelClear() {
			a.bubble = nil
		}
	}
}
