// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"debatewatch/internal/audio"
)

// Environment overrides.
const (
	EnvOrigin   = "DEBATEWATCH_ORIGIN"
	EnvLogLevel = "DEBATEWATCH_LOG_LEVEL"
)

var ErrInvalid = errors.New("invalid config")

type AgentConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
	Color  string `yaml:"color,omitempty"`
}

type AudioConfig struct {
	Enabled bool     `yaml:"enabled"`
	Command []string `yaml:"command,omitempty"`
	MIME    string   `yaml:"mime,omitempty"`
	TempDir string   `yaml:"temp_dir,omitempty"`
}

type Config struct {
	Origin string        `yaml:"origin"`
	Agents []AgentConfig `yaml:"agents"`
	Audio  AudioConfig   `yaml:"audio"`
	Avatars struct {
		Dir         string `yaml:"dir,omitempty"` // empty fetches from the server
		LoadTimeout int    `yaml:"load_timeout"`  // milliseconds
	} `yaml:"avatars"`
	Timing struct {
		FallbackDelay int `yaml:"fallback_delay"` // milliseconds
		BubbleLinger  int `yaml:"bubble_linger"`  // milliseconds
	} `yaml:"timing"`
	Log struct {
		Dir   string `yaml:"dir,omitempty"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadEnv reads .env from the working directory when present.
func LoadEnv() {
	_ = godotenv.Load()
}

// Load reads the config at path, or ConfigPath() when path is empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		// Expand environment variables in config
		expanded := os.ExpandEnv(string(data))
		// Keys absent from the file keep their default.
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Origin = "http://localhost:8000"
	cfg.Agents = defaultAgents()
	cfg.Audio.Enabled = true
	applyDefaults(cfg)
	return cfg
}

func defaultAgents() []AgentConfig {
	return []AgentConfig{
		{ID: "carla", Name: "Carla", Avatar: "female", Color: "#FF6AD5"},
		{ID: "roberto", Name: "Roberto", Avatar: "male", Color: "#00D4FF"},
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvOrigin)); v != "" {
		cfg.Origin = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Origin == "" {
		cfg.Origin = "http://localhost:8000"
	}
	if len(cfg.Agents) == 0 {
		cfg.Agents = defaultAgents()
	}
	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		if a.Name == "" {
			a.Name = a.ID
		}
		if a.Avatar == "" {
			a.Avatar = a.ID
		}
	}
	if len(cfg.Audio.Command) == 0 {
		cfg.Audio.Command = append([]string(nil), audio.DefaultCommand...)
	}
	if cfg.Audio.MIME == "" {
		cfg.Audio.MIME = "audio/mpeg"
	}
	if cfg.Audio.TempDir == "" {
		cfg.Audio.TempDir = os.TempDir()
	}
	if cfg.Avatars.LoadTimeout == 0 {
		cfg.Avatars.LoadTimeout = 5000
	}
	if cfg.Timing.FallbackDelay == 0 {
		cfg.Timing.FallbackDelay = 3000
	}
	if cfg.Timing.BubbleLinger == 0 {
		cfg.Timing.BubbleLinger = 2000
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = DataDir()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks the agent list.
func (c *Config) Validate() error {
	if len(c.Agents) != 2 {
		return fmt.Errorf("%w: exactly two agents are required, got %d", ErrInvalid, len(c.Agents))
	}
	seen := map[string]bool{}
	for _, a := range c.Agents {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("%w: agent without id", ErrInvalid)
		}
		if seen[a.ID] {
			return fmt.Errorf("%w: duplicate agent %q", ErrInvalid, a.ID)
		}
		seen[a.ID] = true
	}
	for _, d := range []int{c.Timing.FallbackDelay, c.Timing.BubbleLinger, c.Avatars.LoadTimeout} {
		if d < 0 {
			return fmt.Errorf("%w: negative duration %d", ErrInvalid, d)
		}
	}
	return nil
}

func ConfigPath() string {
	configDir, _ := os.UserConfigDir()
	if configDir == "" {
		configDir = os.ExpandEnv("$HOME/.config")
	}
	return filepath.Join(configDir, "debatewatch", "config.yaml")
}

// DataDir is where logs and exports go by default.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "debatewatch")
	}
	return filepath.Join(home, ".local", "share", "debatewatch")
}
