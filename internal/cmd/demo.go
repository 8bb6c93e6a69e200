package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"debatewatch/internal/config"
	"debatewatch/internal/demo"
	"debatewatch/internal/logging"
	"debatewatch/internal/protocol"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Serve a scripted debate for local development",
	Long: `Serve a scripted debate on /ws, avatar art on /avatars and a health
check on /healthz. Without --script the built-in four-iteration debate
between Carla and Roberto is played.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().String("addr", "localhost:8000", "listen address")
	demoCmd.Flags().String("script", "", "YAML debate script")
	demoCmd.Flags().String("avatars", "", "serve avatar art from this directory")
	demoCmd.Flags().String("audio-dir", "", "base directory for script audio clips")
	demoCmd.Flags().Float64("time-scale", 1, "pacing multiplier; 0 sends everything at once")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	config.LoadEnv()
	level, _ := cmd.Flags().GetString("log-level")
	log, err := logging.NewLogger("", level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	fs := afero.NewOsFs()
	opts := demo.Options{Fs: fs}
	opts.AvatarDir, _ = cmd.Flags().GetString("avatars")
	opts.AudioDir, _ = cmd.Flags().GetString("audio-dir")
	opts.TimeScale, _ = cmd.Flags().GetFloat64("time-scale")

	if path, _ := cmd.Flags().GetString("script"); path != "" {
		script, err := demo.LoadScript(fs, path)
		if err != nil {
			return err
		}
		opts.Script = script
	}

	addr, _ := cmd.Flags().GetString("addr")
	srv := demo.NewServer(opts, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(addr) }()
	fmt.Fprintf(cmd.OutOrStdout(), "demo server on http://%s, websocket ws://%s%s\n", addr, addr, protocol.Path)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
