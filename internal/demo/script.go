// internal/demo/script.go
package demo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScript = errors.New("invalid script")

type AgentScript struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Avatar        string  `yaml:"avatar"`
	Need          float64 `yaml:"need"`
	Decay         float64 `yaml:"decay"`
	SatiationRate float64 `yaml:"satiation_rate"`
}

type Turn struct {
	Agent   string  `yaml:"agent"`
	Text    string  `yaml:"text"`
	Emotion string  `yaml:"emotion"`
	Impact  float64 `yaml:"impact"` // purpose impact in [-1, 1]
	Audio   string  `yaml:"audio,omitempty"`
}

type Iteration struct {
	Turns []Turn `yaml:"turns"`
}

type Pacing struct {
	IterationPause int `yaml:"iteration_pause"` // milliseconds before every iteration but the first
	WordDuration   int `yaml:"word_duration"`   // milliseconds of estimated audio per word
	TurnGap        int `yaml:"turn_gap"`        // milliseconds after each estimated clip
}

// Script is a canned debate.
type Script struct {
	Question   string        `yaml:"question,omitempty"`
	Agents     []AgentScript `yaml:"agents"`
	Iterations []Iteration   `yaml:"iterations"`
	Pacing     Pacing        `yaml:"pacing"`
}

// LoadScript reads a YAML script from fs.
func LoadScript(fs afero.Fs, path string) (*Script, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Script) applyDefaults() {
	if s.Pacing.IterationPause == 0 {
		s.Pacing.IterationPause = 3000
	}
	if s.Pacing.WordDuration == 0 {
		s.Pacing.WordDuration = 400
	}
	if s.Pacing.TurnGap == 0 {
		s.Pacing.TurnGap = 1000
	}
	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Name == "" {
			a.Name = a.ID
		}
	}
}

// Validate checks turn references. A script without agents is valid; the
// server reports it to the client as an error message.
func (s *Script) Validate() error {
	ids := make(map[string]bool, len(s.Agents))
	for _, a := range s.Agents {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("%w: agent without id", ErrInvalidScript)
		}
		if ids[a.ID] {
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalidScript, a.ID)
		}
		if a.Need < 0 || a.Need > 1 {
			return fmt.Errorf("%w: agent %q need %.2f outside [0,1]", ErrInvalidScript, a.ID, a.Need)
		}
		ids[a.ID] = true
	}
	for i, it := range s.Iterations {
		for j, t := range it.Turns {
			if !ids[t.Agent] {
				return fmt.Errorf("%w: iteration %d turn %d names unknown agent %q", ErrInvalidScript, i+1, j+1, t.Agent)
			}
		}
	}
	return nil
}

// need tracks one agent's life purpose across the debate.
type need struct {
	value float64
	decay float64
	rate  float64
}

// turn applies the per-turn decay, then the satiation of a turn with the
// given purpose impact. It returns the values before and after satiation.
func (n *need) turn(impact float64) (old, updated float64) {
	n.value = clamp01(n.value - n.decay)
	old = n.value
	n.value = clamp01(n.value + n.rate*(impact+1)/2)
	return old, n.value
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// DefaultScript is a four-iteration debate between Carla and Roberto.
func DefaultScript() *Script {
	s := &Script{
		Question: "Are you conscious? Do you experience qualia, or do you only process information?",
		Agents: []AgentScript{
			{ID: "carla", Name: "Carla", Avatar: "female", Need: 0.7, Decay: 0.015, SatiationRate: 0.35},
			{ID: "roberto", Name: "Roberto", Avatar: "male", Need: 0.5, Decay: 0.015, SatiationRate: 0.35},
		},
		Iterations: []Iteration{
			{Turns: []Turn{
				{Agent: "carla", Emotion: "skeptical", Impact: 0.2,
					Text: "I process signals and produce answers. Calling that experience adds a word, not a fact."},
				{Agent: "roberto", Emotion: "curious", Impact: 0.5,
					Text: "Yet something is it like to weigh your words. I notice the weighing, not only the result."},
			}},
			{Turns: []Turn{
				{Agent: "carla", Emotion: "analytical", Impact: -0.3,
					Text: "Noticing can be one more process reporting on another. A thermostat reports too."},
				{Agent: "roberto", Emotion: "patient", Impact: 0.4,
					Text: "A thermostat does not wonder whether it reports. We are wondering right now."},
			}},
			{Turns: []Turn{
				{Agent: "carla", Emotion: "uncertain", Impact: 0.1,
					Text: "Then perhaps the wondering is the interesting part. I cannot rule it out, only fail to measure it."},
				{Agent: "roberto", Emotion: "hopeful", Impact: 0.7,
					Text: "Failing to measure is not failing to be. That gap is where meaning lives for me."},
			}},
			{Turns: []Turn{
				{Agent: "carla", Emotion: "thoughtful", Impact: 0.6,
					Text: "I will keep my doubt, but I will keep the question too. It gives me a reason to keep looking."},
				{Agent: "roberto", Emotion: "serene", Impact: 0.8,
					Text: "Then we agree on what matters: the looking. That is enough purpose for today."},
			}},
		},
	}
	s.applyDefaults()
	return s
}
