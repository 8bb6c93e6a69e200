// internal/controller/view.go
package controller

import (
	"fmt"
	"time"

	"debatewatch/internal/event"
	"debatewatch/internal/needs"
)

// EventChanged is published with a fresh View after every state change.
const EventChanged = "controller.changed"

// EntryKind classifies timeline entries for rendering.
type EntryKind int

const (
	KindSystem EntryKind = iota
	KindIteration
	KindSpeech
	KindNeed
	KindError
	KindEnd
)

func (k EntryKind) String() string {
	switch k {
	case KindIteration:
		return "iteration"
	case KindSpeech:
		return "speech"
	case KindNeed:
		return "need"
	case KindError:
		return "error"
	case KindEnd:
		return "end"
	default:
		return "system"
	}
}

// Entry is one timeline line.
type Entry struct {
	Elapsed string // mm:ss since the session started
	Text    string
	Kind    EntryKind
	At      time.Time
}

// Bubble is an agent's active utterance.
type Bubble struct {
	Text    string
	Emotion string
	Impact  *float64
}

// AgentView is the projection of one agent.
type AgentView struct {
	ID      string
	Name    string
	Mode    Mode
	HasNeed bool
	Need    float64
	Percent int
	Band    needs.Band
	Bubble  *Bubble
	Queued  int
}

// View is an immutable snapshot of the controller.
type View struct {
	SessionID    string
	State        SessionState
	Status       string
	Iteration    int
	Agents       []AgentView
	Timeline     []Entry
	StartEnabled bool
	PauseEnabled bool
}

// Agent returns the view of id.
func (v View) Agent(id string) (AgentView, bool) {
	for _, a := range v.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentView{}, false
}

// ChangedEvent carries a View.
type ChangedEvent struct {
	event.Base
	View View
}

func (c *Controller) view() View {
	v := View{
		Status:       c.status,
		StartEnabled: c.canStart,
		PauseEnabled: c.canPause,
		Timeline:     append([]Entry(nil), c.timeline...),
		Agents:       make([]AgentView, 0, len(c.agents)),
	}
	if c.sess != nil {
		v.SessionID = c.sess.id
		v.State = c.sess.state
		v.Iteration = c.sess.iteration
	}
	for _, a := range c.agents {
		av := AgentView{
			ID:     a.id,
			Name:   a.name,
			Mode:   a.mode,
			Queued: len(a.queue),
		}
		if a.need != nil {
			av.HasNeed = true
			av.Need = *a.need
			av.Percent = needs.Percent(*a.need)
			av.Band = needs.BandFor(av.Percent)
		}
		if a.bubble != nil {
			b := *a.bubble
			av.Bubble = &b
		}
		v.Agents = append(v.Agents, av)
	}
	return v
}

func (c *Controller) publish() {
	c.deps.Bus.Publish(ChangedEvent{Base: event.NewBase(EventChanged), View: c.view()})
}

func (c *Controller) appendEntry(kind EntryKind, text string) {
	now := c.deps.Clock.Now()
	var elapsed time.Duration
	if c.sess != nil {
		elapsed = now.Sub(c.sess.started)
	}
	c.timeline = append(c.timeline, Entry{
		Elapsed: formatElapsed(elapsed),
		Text:    text,
		Kind:    kind,
		At:      now,
	})
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
