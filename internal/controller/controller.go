// internal/controller/controller.go
// Package controller sequences one debate session driven by the server's
// message stream. All state is owned by a single loop goroutine; suspension
// points (audio, fallback waits, bubble clears, transport events) post their
// continuations back onto that loop, so handlers never run concurrently.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"debatewatch/internal/audio"
	"debatewatch/internal/event"
	"debatewatch/internal/logging"
	"debatewatch/internal/transport"
)

const (
	// ExpectedIterations is the debate length shown in the status line.
	// The server never sends it; it mirrors the current server script.
	ExpectedIterations = 4

	// FallbackDelay is how long an utterance without audio stays on stage.
	FallbackDelay = 3000 * time.Millisecond

	// BubbleLinger is how long a bubble stays after the agent goes idle.
	BubbleLinger = 2000 * time.Millisecond
)

// ErrStopped is returned by calls made after Run has exited.
var ErrStopped = errors.New("controller stopped")

// Surface is the presentation side of one agent.
type Surface interface {
	PresentIdle()
	PresentSpeaking()
}

// AudioGate plays one clip and returns when it is over, whatever happened.
type AudioGate interface {
	Play(ctx context.Context, encoded, mimeType string)
}

// Notifier shows a message the user must acknowledge. It blocks until then
// or until ctx is done.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// AgentSpec describes one of the two participants.
type AgentSpec struct {
	ID   string
	Name string
}

// Options are the fixed parameters of a controller.
type Options struct {
	Endpoint      string
	Agents        []AgentSpec
	FallbackDelay time.Duration
	BubbleLinger  time.Duration
	AudioMIME     string
}

// Deps are the collaborators injected at construction.
type Deps struct {
	Transports transport.Factory
	Surfaces   map[string]Surface
	Audio      AudioGate
	Clock      Clock
	Notifier   Notifier
	Bus        *event.Bus
	Log        *logging.Logger
}

// Controller is the debate session state machine.
type Controller struct {
	opts Options
	deps Deps
	log  *logging.Logger

	ops  chan func()
	done chan struct{}
	ctx  context.Context

	// Owned by the loop goroutine.
	agents   []*agentState
	byID     map[string]*agentState
	sess     *session
	gen      uint64
	status   string
	timeline []Entry
	canStart bool
	canPause bool
}

// New builds a controller. Exactly two agents are expected; more are accepted
// but the protocol and UI assume two.
func New(opts Options, deps Deps) (*Controller, error) {
	if len(opts.Agents) == 0 {
		return nil, fmt.Errorf("controller: no agents configured")
	}
	if deps.Transports == nil {
		return nil, fmt.Errorf("controller: no transport factory")
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("controller: empty endpoint")
	}
	if opts.FallbackDelay <= 0 {
		opts.FallbackDelay = FallbackDelay
	}
	if opts.BubbleLinger <= 0 {
		opts.BubbleLinger = BubbleLinger
	}
	if opts.AudioMIME == "" {
		opts.AudioMIME = audio.DefaultMIME
	}
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Bus == nil {
		deps.Bus = event.NewBus()
	}

	c := &Controller{
		opts:     opts,
		deps:     deps,
		log:      deps.Log.WithComponent("controller"),
		ops:      make(chan func(), 64),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		byID:     make(map[string]*agentState),
		status:   StatusReady,
		canStart: true,
	}

	for _, spec := range opts.Agents {
		if spec.ID == "" {
			return nil, fmt.Errorf("controller: agent with empty id")
		}
		if _, dup := c.byID[spec.ID]; dup {
			return nil, fmt.Errorf("controller: duplicate agent %q", spec.ID)
		}
		name := spec.Name
		if name == "" {
			name = spec.ID
		}
		a := &agentState{
			id:      spec.ID,
			name:    name,
			surface: deps.Surfaces[spec.ID],
			log:     c.log.WithAgent(spec.ID),
		}
		c.agents = append(c.agents, a)
		c.byID[spec.ID] = a
	}
	return c, nil
}

// Bus returns the bus projections are published on.
func (c *Controller) Bus() *event.Bus {
	return c.deps.Bus
}

// Run drives the loop until ctx is done. Call it once.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.done)

	c.publish()
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case op := <-c.ops:
			op()
		}
	}
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// StartSession opens a session unless one is already open.
func (c *Controller) StartSession() {
	c.post(c.startSession)
}

// PauseSession closes the session's transport. Idempotent.
func (c *Controller) PauseSession() {
	c.post(c.pauseSession)
}

// Snapshot returns the current view, ordered after every call made before it.
func (c *Controller) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !c.post(func() { reply <- c.view() }) {
		return View{}, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-c.done:
		return View{}, ErrStopped
	}
}

// post queues op for the loop. It reports false once the loop has exited.
func (c *Controller) post(op func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.ops <- op:
		return true
	case <-c.done:
		return false
	}
}

// after schedules op on the loop once d has elapsed.
func (c *Controller) after(d time.Duration, op func()) Timer {
	return c.deps.Clock.AfterFunc(d, func() { c.post(op) })
}

func (c *Controller) shutdown() {
	if c.sess != nil && c.sess.active() {
		c.sess.detach()
		if err := c.sess.conn.Close(); err != nil {
			c.log.Debug("close on shutdown", "error", err)
		}
	}
	for _, a := range c.agents {
		a.cancelClear()
		a.queue = nil
	}
}
