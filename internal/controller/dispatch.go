// internal/controller/dispatch.go
package controller

import (
	"fmt"
	"sort"
	"strings"

	"debatewatch/internal/needs"
	"debatewatch/internal/protocol"
)

func (c *Controller) onMessage(gen uint64, raw []byte) {
	s := c.current(gen)
	if s == nil || s.state == SessionClosed {
		return
	}
	msg, err := protocol.Decode(raw)
	if err != nil {
		s.log.Warn("dropping message", "error", err, "size", len(raw))
		return
	}

	switch m := msg.(type) {
	case protocol.DebateStart:
		c.onDebateStart(m)
	case protocol.IterationStart:
		c.onIterationStart(m)
	case protocol.AgentSpeech:
		c.onAgentSpeech(m)
	case protocol.DebateEnd:
		c.onDebateEnd()
	case protocol.ServerError:
		c.onServerError(m)
	default:
		s.log.Debug("ignoring message", "type", msg.MessageType())
	}
}

func (c *Controller) onDebateStart(m protocol.DebateStart) {
	c.appendEntry(KindSystem, "Debate started")
	c.status = StatusInProgress

	ids := make([]string, 0, len(m.Agents))
	for id := range m.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a, ok := c.byID[id]
		if !ok {
			c.sess.log.Debug("debate_start names unknown agent", "agent", id)
			continue
		}
		info := m.Agents[id]
		if info.Name != nil && strings.TrimSpace(*info.Name) != "" {
			a.name = strings.TrimSpace(*info.Name)
		}
		if info.Needs != nil && info.Needs.LifePurpose != nil {
			v := *info.Needs.LifePurpose
			a.need = &v
		}
	}
	c.publish()
}

func (c *Controller) onIterationStart(m protocol.IterationStart) {
	if m.Iteration == nil {
		c.sess.log.Warn("iteration_start without iteration")
		return
	}
	n := *m.Iteration
	c.sess.iteration = n
	c.appendEntry(KindIteration, fmt.Sprintf("Iteration %d", n))
	c.status = fmt.Sprintf("Iteration %d of %d", n, ExpectedIterations)
	c.publish()
}

func (c *Controller) onDebateEnd() {
	c.appendEntry(KindEnd, "Debate ended")
	c.status = StatusCompleted
	c.canStart = true
	c.canPause = false
	c.publish()
}

func (c *Controller) onServerError(m protocol.ServerError) {
	text := m.Message
	if text == "" {
		text = "unknown server error"
	}
	c.sess.log.Error("server error", "message", text)
	c.appendEntry(KindError, "Error: "+text)
	c.publish()

	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(c.ctx, text)
	}
}

func (c *Controller) onAgentSpeech(m protocol.AgentSpeech) {
	a, ok := c.byID[m.Agent]
	if !ok {
		c.sess.log.Warn("speech for unknown agent", "agent", m.Agent)
		return
	}
	if a.busy() {
		a.queue = append(a.queue, m)
		a.log.Debug("speech queued", "depth", len(a.queue))
		c.publish()
		return
	}
	c.beginSpeech(a, m)
}

// beginSpeech runs steps one to four of an utterance and suspends on the wait.
func (c *Controller) beginSpeech(a *agentState, m protocol.AgentSpeech) {
	a.speechSeq++
	token := a.speechSeq
	a.speech = token

	a.presentSpeaking()

	a.cancelClear()
	a.bubble = &Bubble{Text: m.Text, Emotion: m.Emotion}
	if m.PurposeImpact != nil {
		v := *m.PurposeImpact
		a.bubble.Impact = &v
	}
	c.appendEntry(KindSpeech, speechLine(a.name, m))

	if v, ok := m.NeedValue(); ok {
		old := a.need
		if m.OldNeedValue != nil {
			old = m.OldNeedValue
		}
		if old != nil {
			ch := needs.Compare(*old, v)
			c.appendEntry(KindNeed, fmt.Sprintf("%s life purpose %d%% (%s)", a.name, needs.Percent(v), ch))
		} else {
			c.appendEntry(KindNeed, fmt.Sprintf("%s life purpose at %d%%", a.name, needs.Percent(v)))
		}
		a.need = &v
	}

	if m.AudioDuration != nil {
		a.log.Debug("speech audio", "duration_s", *m.AudioDuration, "encoded_len", len(m.Audio))
	}
	c.publish()

	resume := func() { c.finishSpeech(a, token) }
	if m.Audio != "" && c.deps.Audio != nil {
		ctx, encoded, mime := c.ctx, m.Audio, c.opts.AudioMIME
		go func() {
			c.deps.Audio.Play(ctx, encoded, mime)
			c.post(resume)
		}()
		return
	}
	c.after(c.opts.FallbackDelay, resume)
}

// finishSpeech runs steps five and six, then starts the next queued utterance.
func (c *Controller) finishSpeech(a *agentState, token uint64) {
	if a.speech != token {
		return
	}
	a.speech = 0
	a.presentIdle()

	if c.live() {
		c.scheduleClear(a)
	} else {
		a.bubble = nil
	}

	if len(a.queue) > 0 && c.live() {
		next := a.queue[0]
		a.queue = a.queue[1:]
		c.beginSpeech(a, next)
		return
	}
	c.publish()
}

func (c *Controller) scheduleClear(a *agentState) {
	a.cancelClear()
	seq := a.clearSeq
	a.clear = c.after(c.opts.BubbleLinger, func() {
		if a.clearSeq != seq || a.clear == nil {
			return
		}
		a.clear = nil
		a.bubble = nil
		c.publish()
	})
}

func speechLine(name string, m protocol.AgentSpeech) string {
	if m.Emotion == "" {
		return fmt.Sprintf("%s: %q", name, m.Text)
	}
	return fmt.Sprintf("%s (%s): %q", name, m.Emotion, m.Text)
}
