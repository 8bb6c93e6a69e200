// internal/controller/state.go
package controller

import (
	"debatewatch/internal/logging"
	"debatewatch/internal/protocol"
)

// Mode is an agent's presentation mode.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSpeaking
)

func (m Mode) String() string {
	if m == ModeSpeaking {
		return "speaking"
	}
	return "idle"
}

type agentState struct {
	id      string
	name    string
	surface Surface
	log     *logging.Logger

	mode   Mode
	need   *float64
	bubble *Bubble

	// speech is the token of the utterance in its wait step, zero when idle.
	speech    uint64
	speechSeq uint64
	queue     []protocol.AgentSpeech

	clear    Timer
	clearSeq uint64
}

func (a *agentState) busy() bool {
	return a.speech != 0
}

// cancelClear stops a pending bubble clear. It reports whether one was pending.
func (a *agentState) cancelClear() bool {
	if a.clear == nil {
		return false
	}
	a.clear.Stop()
	a.clear = nil
	a.clearSeq++
	return true
}

func (a *agentState) presentSpeaking() {
	a.mode = ModeSpeaking
	if a.surface != nil {
		a.surface.PresentSpeaking()
	}
}

func (a *agentState) presentIdle() {
	a.mode = ModeIdle
	if a.surface != nil {
		a.surface.PresentIdle()
	}
}
