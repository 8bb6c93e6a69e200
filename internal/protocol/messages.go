// internal/protocol/messages.go
// Package protocol defines the JSON messages exchanged with the debate server.
// Inbound fields are pointers so a missing field can be told apart from a zero value.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound message types.
const (
	TypeDebateStart    = "debate_start"
	TypeIterationStart = "iteration_start"
	TypeAgentSpeech    = "agent_speech"
	TypeDebateEnd      = "debate_end"
	TypeError          = "error"
)

// ActionStartDebate is the only outbound command.
const ActionStartDebate = "start_debate"

// ErrMalformed wraps payloads that are not a JSON object with a type.
var ErrMalformed = errors.New("malformed message")

// Command is sent from the client to the server.
type Command struct {
	Action string `json:"action"`
}

// StartDebate returns the session's first outbound command.
func StartDebate() Command {
	return Command{Action: ActionStartDebate}
}

// Needs is the per-agent need map. Only life_purpose is defined today.
type Needs struct {
	LifePurpose *float64 `json:"life_purpose,omitempty"`
}

// AgentInfo is one entry of debate_start.agents.
type AgentInfo struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Needs  *Needs  `json:"needs,omitempty"`
}

// Message is implemented by every decoded inbound message.
type Message interface {
	MessageType() string
}

// DebateStart opens the debate and seeds the need-meters.
type DebateStart struct {
	Agents map[string]AgentInfo `json:"agents,omitempty"`
}

// IterationStart announces a new round.
type IterationStart struct {
	Iteration *int `json:"iteration,omitempty"`
}

// AgentSpeech is one utterance of one agent.
type AgentSpeech struct {
	Agent         string   `json:"agent"`
	Text          string   `json:"text"`
	Emotion       string   `json:"emotion"`
	Needs         *Needs   `json:"needs,omitempty"`
	OldNeedValue  *float64 `json:"old_need_value,omitempty"`
	Audio         string   `json:"audio,omitempty"`
	AudioDuration *float64 `json:"audio_duration,omitempty"`
	PurposeImpact *float64 `json:"purpose_impact,omitempty"`
}

// NeedValue returns the reported life_purpose value, if any.
func (s AgentSpeech) NeedValue() (float64, bool) {
	if s.Needs == nil || s.Needs.LifePurpose == nil {
		return 0, false
	}
	return *s.Needs.LifePurpose, true
}

// DebateEnd closes the debate.
type DebateEnd struct{}

// ServerError carries an application-level error message.
type ServerError struct {
	Message string `json:"message"`
}

// Unknown is any message whose type is not recognised.
type Unknown struct {
	Type string
}

func (DebateStart) MessageType() string    { return TypeDebateStart }
func (IterationStart) MessageType() string { return TypeIterationStart }
func (AgentSpeech) MessageType() string    { return TypeAgentSpeech }
func (DebateEnd) MessageType() string      { return TypeDebateEnd }
func (ServerError) MessageType() string    { return TypeError }
func (u Unknown) MessageType() string      { return u.Type }

type envelope struct {
	Type *string `json:"type"`
}

// Decode parses a raw frame. Payloads that are not JSON objects or lack a
// string type return ErrMalformed. Field-level type mismatches on a known
// type are also malformed; missing fields are not.
func Decode(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var (
		msg Message
		err error
	)
	switch *env.Type {
	case TypeDebateStart:
		var m DebateStart
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeIterationStart:
		var m IterationStart
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeAgentSpeech:
		var m AgentSpeech
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeDebateEnd:
		msg = DebateEnd{}
	case TypeError:
		var m ServerError
		err = json.Unmarshal(raw, &m)
		msg = m
	default:
		msg = Unknown{Type: *env.Type}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, *env.Type, err)
	}
	return msg, nil
}

// Encode marshals any outbound or inbound message to JSON.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Typed wraps an inbound payload with its type discriminator for encoding,
// which the demo server uses to emit messages.
func Typed(m Message) map[string]any {
	data, err := json.Marshal(m)
	out := map[string]any{}
	if err == nil {
		_ = json.Unmarshal(data, &out)
	}
	out["type"] = m.MessageType()
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
