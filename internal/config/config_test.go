// internal/config/config_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"debatewatch/internal/audio"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Origin != "http://localhost:8000" {
		t.Errorf("Origin should be http://localhost:8000, got %s", cfg.Origin)
	}
	if len(cfg.Agents) != 2 || cfg.Agents[0].ID != "carla" || cfg.Agents[1].ID != "roberto" {
		t.Errorf("unexpected default agents %+v", cfg.Agents)
	}
	if !cfg.Audio.Enabled {
		t.Error("audio should be enabled by default")
	}
	if cfg.Timing.FallbackDelay != 3000 || cfg.Timing.BubbleLinger != 2000 {
		t.Errorf("timing = %+v", cfg.Timing)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level should be info, got %s", cfg.Log.Level)
	}
}

func TestDefaultAudioCommandMatchesPlayer(t *testing.T) {
	cfg := defaultConfig()
	if !slices.Equal(cfg.Audio.Command, audio.DefaultCommand) {
		t.Errorf("Audio.Command = %v, want %v", cfg.Audio.Command, audio.DefaultCommand)
	}
	cfg.Audio.Command[0] = "mpv"
	if audio.DefaultCommand[0] != "ffplay" {
		t.Error("config default shares storage with audio.DefaultCommand")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(EnvOrigin, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Origin != "http://localhost:8000" {
		t.Errorf("missing file should give defaults, got origin %s", cfg.Origin)
	}
}

func TestLoadFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvOrigin, "")
	t.Setenv("DEBATE_HOST", "debate.example:9000")
	path := writeConfig(t, `
origin: https://${DEBATE_HOST}
audio:
  enabled: false
timing:
  fallback_delay: 1500
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Origin != "https://debate.example:9000" {
		t.Errorf("env should expand, got %s", cfg.Origin)
	}
	if cfg.Audio.Enabled {
		t.Error("audio should be disabled")
	}
	if cfg.Timing.FallbackDelay != 1500 || cfg.Timing.BubbleLinger != 2000 {
		t.Errorf("timing = %+v", cfg.Timing)
	}
	if len(cfg.Agents) != 2 || len(cfg.Audio.Command) == 0 {
		t.Error("absent keys should keep their defaults")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvOrigin, "http://override:1234")
	t.Setenv(EnvLogLevel, "debug")
	path := writeConfig(t, "origin: http://file:1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Origin != "http://override:1234" || cfg.Log.Level != "debug" {
		t.Errorf("env should win: %s %s", cfg.Origin, cfg.Log.Level)
	}
}

func TestAgentDefaults(t *testing.T) {
	t.Setenv(EnvOrigin, "")
	path := writeConfig(t, `
agents:
  - id: ada
  - id: bob
    name: Bob
    avatar: robot
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Agents[0].Name != "ada" || cfg.Agents[0].Avatar != "ada" {
		t.Errorf("agent 0 = %+v", cfg.Agents[0])
	}
	if cfg.Agents[1].Avatar != "robot" {
		t.Errorf("agent 1 = %+v", cfg.Agents[1])
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"one agent":  "agents:\n  - id: solo\n",
		"duplicates": "agents:\n  - id: x\n  - id: x\n",
		"blank id":   "agents:\n  - id: ' '\n  - id: y\n",
		"negative":   "timing:\n  bubble_linger: -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "origin: [unclosed\n")); err == nil {
		t.Error("expected parse error")
	}
}
