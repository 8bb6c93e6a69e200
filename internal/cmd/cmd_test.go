package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"debatewatch/internal/avatar"
	"debatewatch/internal/config"
	"debatewatch/internal/demo"
	"debatewatch/internal/logging"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "debatewatch" {
		t.Errorf("rootCmd.Use = %q", rootCmd.Use)
	}
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"watch", "demo", "version"} {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand(rootCmd, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "debatewatch "+Version) {
		t.Errorf("output %q", out)
	}
}

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("log-level", "", "")
	addWatchFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestApplyFlags(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	fs := testFlags(t, "--origin", "https://debates.example.com", "--no-audio", "--avatars", "/art", "--log-level", "debug")
	if err := applyFlags(cfg, fs); err != nil {
		t.Fatal(err)
	}
	if cfg.Origin != "https://debates.example.com" || cfg.Audio.Enabled || cfg.Avatars.Dir != "/art" || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestApplyFlagsKeepsConfigWhenUnset(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	origin := cfg.Origin
	if err := applyFlags(cfg, testFlags(t)); err != nil {
		t.Fatal(err)
	}
	if cfg.Origin != origin || !cfg.Audio.Enabled {
		t.Errorf("unset flags changed the config: %+v", cfg)
	}
}

func TestAvatarLoader(t *testing.T) {
	cfg := &config.Config{Origin: "http://localhost:8000"}
	l, err := avatarLoader(cfg)
	if err != nil {
		t.Fatal(err)
	}
	hl, ok := l.(*avatar.HTTPLoader)
	if !ok || hl.Base != "http://localhost:8000" {
		t.Errorf("loader = %#v", l)
	}

	cfg.Avatars.Dir = "/art"
	l, _ = avatarLoader(cfg)
	if _, ok := l.(*avatar.DirLoader); !ok {
		t.Errorf("loader = %T", l)
	}
}

func TestBuildAgentsWithoutLoader(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	set := buildAgents(context.Background(), cfg, nil, logging.NopLogger())
	defer set.dispose()

	if len(set.specs) != 2 || set.specs[0].ID != "carla" || set.specs[1].Name != "Roberto" {
		t.Errorf("specs = %+v", set.specs)
	}
	if len(set.panels) != 0 || len(set.surfaces) != 0 {
		t.Errorf("headless built %d panels and %d surfaces", len(set.panels), len(set.surfaces))
	}
}

func TestBuildAgentsWithLoader(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	loader := &avatar.DirLoader{Fs: afero.NewMemMapFs(), Dir: "/art"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	set := buildAgents(ctx, cfg, loader, logging.NopLogger())
	defer set.dispose()

	if len(set.panels) != 2 || len(set.surfaces) != 2 {
		t.Fatalf("panels=%d surfaces=%d", len(set.panels), len(set.surfaces))
	}
	for _, p := range set.panels {
		if set.surfaces[p.ID] == nil {
			t.Errorf("no surface for %s", p.ID)
		}
	}
}

func TestAudioGateDisabled(t *testing.T) {
	cfg := &config.Config{}
	if g := audioGate(cfg, logging.NopLogger()); g != nil {
		t.Error("disabled audio should give no gate")
	}
	cfg.Audio.Enabled = true
	cfg.Audio.Command = []string{"debatewatch-no-such-player"}
	if g := audioGate(cfg, logging.NopLogger()); g != nil {
		t.Error("missing player should give no gate")
	}
}

func TestHeadlessWatchAgainstDemo(t *testing.T) {
	t.Setenv(config.EnvOrigin, "")
	t.Setenv(config.EnvLogLevel, "")

	srv := httptest.NewServer(demo.NewServer(demo.Options{TimeScale: 0}, logging.NopLogger()).Handler())
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfgYAML := fmt.Sprintf("origin: %s\nlog:\n  dir: %s\naudio:\n  enabled: false\n", srv.URL, dir)
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(rootCmd, "watch", "--config", cfgPath, "--headless", "--autostart", "--exit-on-end")
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, out)
	}
	for _, want := range []string{"Connected", "Debate started", "Iteration 1", "Debate ended", "-- Debate completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}
