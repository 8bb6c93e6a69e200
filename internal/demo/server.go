// internal/demo/server.go
// Package demo is a scripted debate server speaking the client protocol.
// It stands in for the LLM backend during development.
package demo

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/afero"

	"debatewatch/internal/logging"
	"debatewatch/internal/protocol"
)

//go:embed avatars/*.txt
var builtinAvatars embed.FS

type Options struct {
	Script    *Script
	AvatarDir string   // empty serves the built-in avatars
	AudioDir  string   // base for relative Turn.Audio paths
	Fs        afero.Fs // defaults to the OS filesystem
	TimeScale float64  // 1 is real time, 0 disables pacing
}

type Server struct {
	opts     Options
	log      *logging.Logger
	echo     *echo.Echo
	upgrader websocket.Upgrader
}

func NewServer(opts Options, log *logging.Logger) *Server {
	if opts.Script == nil {
		opts.Script = DefaultScript()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.TimeScale < 0 {
		opts.TimeScale = 0
	}

	s := &Server{
		opts: opts,
		log:  log.WithComponent("demo"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 65536,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET(protocol.Path, s.handleWS)
	e.GET("/avatars/*", echo.WrapHandler(http.StripPrefix("/avatars/", http.FileServer(s.avatarFS()))))

	s.echo = e
	return s
}

func (s *Server) avatarFS() http.FileSystem {
	if s.opts.AvatarDir != "" {
		return afero.NewHttpFs(s.opts.Fs).Dir(s.opts.AvatarDir)
	}
	return afero.NewHttpFs(builtinFs(s.log)).Dir("/avatars")
}

// builtinFs copies the embedded avatars into memory.
func builtinFs(log *logging.Logger) afero.Fs {
	mem := afero.NewMemMapFs()
	entries, err := fs.ReadDir(builtinAvatars, "avatars")
	if err != nil {
		log.Error("built-in avatars unreadable", "error", err)
		return mem
	}
	for _, e := range entries {
		data, err := builtinAvatars.ReadFile("avatars/" + e.Name())
		if err != nil {
			continue
		}
		_ = afero.WriteFile(mem, "/avatars/"+e.Name(), data, 0644)
	}
	return mem
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("demo server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleWS(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "error", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	log := s.log.With("remote", c.RealIP())
	log.Info("client connected")

	started := make(chan struct{})
	go func() {
		defer cancel()
		var once sync.Once
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd protocol.Command
			if err := json.Unmarshal(data, &cmd); err != nil {
				log.Warn("bad command", "error", err)
				continue
			}
			if cmd.Action == protocol.ActionStartDebate {
				once.Do(func() { close(started) })
			}
		}
	}()

	select {
	case <-started:
	case <-ctx.Done():
		log.Info("client left before starting")
		return nil
	}

	p := &player{conn: conn, script: s.opts.Script, opts: s.opts, log: log}
	if err := p.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("debate aborted", "error", err)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "debate over"),
		time.Now().Add(time.Second))
	return nil
}

// player streams one run of a script to one client.
type player struct {
	conn   *websocket.Conn
	script *Script
	opts   Options
	log    *logging.Logger
}

func (p *player) send(v any) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return p.conn.WriteJSON(v)
}

func (p *player) wait(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * p.opts.TimeScale)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *player) run(ctx context.Context) error {
	sc := p.script
	if len(sc.Agents) == 0 {
		return p.send(protocol.Typed(protocol.ServerError{Message: "no agents configured"}))
	}

	needs := make(map[string]*need, len(sc.Agents))
	agents := make(map[string]protocol.AgentInfo, len(sc.Agents))
	for _, a := range sc.Agents {
		needs[a.ID] = &need{value: clamp01(a.Need), decay: a.Decay, rate: a.SatiationRate}
		info := protocol.AgentInfo{
			Name:  protocol.String(a.Name),
			Needs: &protocol.Needs{LifePurpose: protocol.Float(clamp01(a.Need))},
		}
		if a.Avatar != "" {
			info.Avatar = protocol.String(a.Avatar)
		}
		agents[a.ID] = info
	}
	if err := p.send(protocol.Typed(protocol.DebateStart{Agents: agents})); err != nil {
		return err
	}

	for i, it := range sc.Iterations {
		n := i + 1
		if err := p.send(protocol.Typed(protocol.IterationStart{Iteration: protocol.Int(n)})); err != nil {
			return err
		}
		if n > 1 {
			if err := p.wait(ctx, ms(sc.Pacing.IterationPause)); err != nil {
				return err
			}
		}
		for _, t := range it.Turns {
			if err := p.turn(ctx, needs[t.Agent], t); err != nil {
				return err
			}
		}
	}

	p.log.Info("debate finished", "iterations", len(sc.Iterations))
	return p.send(protocol.Typed(protocol.DebateEnd{}))
}

func (p *player) turn(ctx context.Context, n *need, t Turn) error {
	old, updated := n.turn(t.Impact)
	duration := float64(len(strings.Fields(t.Text))*p.script.Pacing.WordDuration) / 1000

	msg := protocol.AgentSpeech{
		Agent:         t.Agent,
		Text:          t.Text,
		Emotion:       t.Emotion,
		Needs:         &protocol.Needs{LifePurpose: protocol.Float(updated)},
		OldNeedValue:  protocol.Float(old),
		AudioDuration: protocol.Float(duration),
		PurposeImpact: protocol.Float(t.Impact),
	}
	if t.Audio != "" {
		audio, err := p.audio(t.Audio)
		if err != nil {
			p.log.Warn("audio skipped", "file", t.Audio, "error", err)
		} else {
			msg.Audio = audio
		}
	}
	if err := p.send(protocol.Typed(msg)); err != nil {
		return err
	}
	return p.wait(ctx, time.Duration(duration*float64(time.Second))+ms(p.script.Pacing.TurnGap))
}

func (p *player) audio(file string) (string, error) {
	if !filepath.IsAbs(file) && p.opts.AudioDir != "" {
		file = filepath.Join(p.opts.AudioDir, file)
	}
	data, err := afero.ReadFile(p.opts.Fs, file)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
