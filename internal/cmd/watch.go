package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"debatewatch/internal/audio"
	"debatewatch/internal/avatar"
	"debatewatch/internal/config"
	"debatewatch/internal/controller"
	"debatewatch/internal/event"
	"debatewatch/internal/export"
	"debatewatch/internal/logging"
	"debatewatch/internal/protocol"
	"debatewatch/internal/transport"
	"debatewatch/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to a debate server and watch the debate",
	Long: `Connect to a debate server and watch the debate.

The TUI is used when stdout is a terminal. Otherwise, or with --headless,
timeline entries are printed one per line and commands (start, pause,
export, status, quit) are read from stdin.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addWatchFlags(watchCmd.Flags())
	rootCmd.AddCommand(watchCmd)
}

func addWatchFlags(fs *pflag.FlagSet) {
	fs.String("origin", "", "debate server origin, e.g. http://localhost:8000")
	fs.Bool("headless", false, "print the timeline instead of running the TUI")
	fs.Bool("no-audio", false, "never play audio; speeches use the fallback delay")
	fs.String("avatars", "", "load avatar art from this directory instead of the server")
	fs.Bool("autostart", false, "start the debate as soon as the client is up")
	fs.Bool("exit-on-end", false, "headless only: exit when the session closes")
}

// applyFlags layers explicitly set flags over the loaded config.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) error {
	if fs.Changed("origin") {
		v, err := fs.GetString("origin")
		if err != nil {
			return err
		}
		cfg.Origin = v
	}
	if fs.Changed("no-audio") {
		v, err := fs.GetBool("no-audio")
		if err != nil {
			return err
		}
		cfg.Audio.Enabled = !v
	}
	if fs.Changed("avatars") {
		v, err := fs.GetString("avatars")
		if err != nil {
			return err
		}
		cfg.Avatars.Dir = v
	}
	if fs.Changed("log-level") {
		v, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = v
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadEnv()
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, cmd.Flags()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// frontend is the TUI or the headless printer.
type frontend interface {
	Attach(bus *event.Bus) *event.Subscription
	Notify(ctx context.Context, msg string)
}

type notifyFunc func(ctx context.Context, msg string)

func (f notifyFunc) Notify(ctx context.Context, msg string) { f(ctx, msg) }

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() { _ = log.Close() }()

	endpoint, err := protocol.EndpointFromOrigin(cfg.Origin)
	if err != nil {
		return fmt.Errorf("origin %q: %w", cfg.Origin, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headless, _ := cmd.Flags().GetBool("headless")
	autostart, _ := cmd.Flags().GetBool("autostart")
	exitOnEnd, _ := cmd.Flags().GetBool("exit-on-end")
	if !headless && !isTerminal(os.Stdout) {
		headless = true
	}

	var loader avatar.Loader
	if !headless {
		if loader, err = avatarLoader(cfg); err != nil {
			return err
		}
	}
	agents := buildAgents(ctx, cfg, loader, log)
	defer agents.dispose()

	var front frontend
	ctrl, err := controller.New(controller.Options{
		Endpoint:      endpoint,
		Agents:        agents.specs,
		FallbackDelay: time.Duration(cfg.Timing.FallbackDelay) * time.Millisecond,
		BubbleLinger:  time.Duration(cfg.Timing.BubbleLinger) * time.Millisecond,
		AudioMIME:     cfg.Audio.MIME,
	}, controller.Deps{
		Transports: transport.NewFactory(transport.DefaultOptions(), log),
		Surfaces:   agents.surfaces,
		Audio:      audioGate(cfg, log),
		Notifier:   notifyFunc(func(ctx context.Context, msg string) { front.Notify(ctx, msg) }),
		Log:        log,
	})
	if err != nil {
		return err
	}

	exportFn := func(v controller.View, path string) (string, error) {
		return export.Write(afero.NewOsFs(), export.FromView(v, time.Now()), config.DataDir(), path)
	}

	log.Info("watching", "endpoint", endpoint, "headless", headless, "audio", cfg.Audio.Enabled)

	var run func() error
	if headless {
		h := ui.NewHeadless(ui.HeadlessOptions{
			Controls:  ctrl,
			Export:    exportFn,
			In:        cmd.InOrStdin(),
			Out:       cmd.OutOrStdout(),
			AutoStart: autostart,
			ExitOnEnd: exitOnEnd,
		})
		front = h
		run = func() error { return h.Run(ctx) }
	} else {
		app := ui.NewApp(ctx, ui.Options{
			Controls:  ctrl,
			Panels:    agents.panels,
			Export:    exportFn,
			AutoStart: autostart,
		})
		front = app
		run = app.Run
	}
	front.Attach(ctrl.Bus())

	loopCtx, cancel := context.WithCancel(ctx)
	go func() { _ = ctrl.Run(loopCtx) }()

	runErr := run()
	cancel()
	<-ctrl.Done()
	return runErr
}

type agentSet struct {
	specs    []controller.AgentSpec
	panels   []ui.Panel
	surfaces map[string]controller.Surface
}

// buildAgents starts loading a surface per agent. A nil loader means nothing
// renders avatars, so only the controller specs are built.
func buildAgents(ctx context.Context, cfg *config.Config, loader avatar.Loader, log *logging.Logger) agentSet {
	set := agentSet{surfaces: make(map[string]controller.Surface, len(cfg.Agents))}
	timeout := time.Duration(cfg.Avatars.LoadTimeout) * time.Millisecond
	for _, a := range cfg.Agents {
		set.specs = append(set.specs, controller.AgentSpec{ID: a.ID, Name: a.Name})
		if loader == nil {
			continue
		}
		s := avatar.New(a.ID, a.Color, log)
		s.Load(ctx, loader, a.Avatar, timeout)
		set.panels = append(set.panels, ui.Panel{ID: a.ID, Surface: s})
		set.surfaces[a.ID] = s
	}
	return set
}

func (set agentSet) dispose() {
	for _, p := range set.panels {
		p.Surface.Dispose()
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// avatarLoader reads from the configured directory, or from the server's
// /avatars route.
func avatarLoader(cfg *config.Config) (avatar.Loader, error) {
	if cfg.Avatars.Dir != "" {
		return avatar.NewDirLoader(cfg.Avatars.Dir), nil
	}
	base, err := protocol.HTTPBase(cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("origin %q: %w", cfg.Origin, err)
	}
	return avatar.NewHTTPLoader(base), nil
}

// audioGate returns nil when audio is off or no player is installed.
func audioGate(cfg *config.Config, log *logging.Logger) controller.AudioGate {
	if !cfg.Audio.Enabled {
		return nil
	}
	player := audio.NewExecPlayer(cfg.Audio.Command)
	if !player.Available() {
		log.Warn("audio player not found, using fallback timing", "command", player.Command[0])
		return nil
	}
	return audio.NewGate(afero.NewOsFs(), cfg.Audio.TempDir, player, log)
}
