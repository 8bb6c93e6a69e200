// internal/audio/gate.go
// Package audio plays base64 clips on the single shared output. Playback is
// best effort: every failure resolves the caller immediately.
package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"debatewatch/internal/logging"
)

// DefaultMIME is what the debate server sends (edge-tts mp3).
const DefaultMIME = "audio/mpeg"

// Player renders a prepared clip and returns when it ends or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, clip Clip) error
}

// Clip is a decoded clip written to a transient file.
type Clip struct {
	Path     string
	MIMEType string
	Size     int64
}

// Gate owns the output. A new request interrupts the one in flight
// (last request wins); the interrupted caller resumes right away.
type Gate struct {
	fs     afero.Fs
	dir    string
	player Player
	log    *logging.Logger

	mu      sync.Mutex
	current context.CancelFunc
	seq     uint64
}

// NewGate writes transient clips under dir on fs. An empty dir means the OS temp dir.
func NewGate(fs afero.Fs, dir string, player Player, log *logging.Logger) *Gate {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Gate{
		fs:     fs,
		dir:    dir,
		player: player,
		log:    log.WithComponent("audio"),
	}
}

// Play decodes, plays and releases one clip. It returns exactly once, after
// playback ends, after an error, or when interrupted by a newer request.
func (g *Gate) Play(ctx context.Context, encoded, mimeType string) {
	if strings.TrimSpace(encoded) == "" {
		return
	}
	if mimeType == "" {
		mimeType = DefaultMIME
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	id := g.claim(cancel)
	defer g.release(id)

	clip, err := g.Prepare(encoded, mimeType)
	if err != nil {
		g.log.Warn("clip rejected", "error", err)
		return
	}
	defer g.discard(clip)

	if g.player == nil {
		return
	}
	if err := g.player.Play(ctx, clip); err != nil && ctx.Err() == nil {
		g.log.Warn("playback failed", "path", clip.Path, "error", err)
	}
}

// Prepare decodes encoded and writes it to a transient file.
// The caller must Discard the clip.
func (g *Gate) Prepare(encoded, mimeType string) (Clip, error) {
	data, err := Decode(encoded)
	if err != nil {
		return Clip{}, err
	}
	if len(data) == 0 {
		return Clip{}, fmt.Errorf("empty clip")
	}

	f, err := afero.TempFile(g.fs, g.dir, "debatewatch-*"+Extension(mimeType))
	if err != nil {
		return Clip{}, fmt.Errorf("create clip file: %w", err)
	}
	n, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = g.fs.Remove(f.Name())
		if werr == nil {
			werr = cerr
		}
		return Clip{}, fmt.Errorf("write clip file: %w", werr)
	}

	return Clip{Path: f.Name(), MIMEType: mimeType, Size: int64(n)}, nil
}

// Discard removes the clip's transient file.
func (g *Gate) Discard(clip Clip) {
	g.discard(clip)
}

func (g *Gate) discard(clip Clip) {
	if clip.Path == "" {
		return
	}
	if err := g.fs.Remove(clip.Path); err != nil {
		g.log.Debug("remove clip", "path", clip.Path, "error", err)
	}
}

// claim interrupts whatever is playing and registers cancel as current.
func (g *Gate) claim(cancel context.CancelFunc) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil {
		g.current()
	}
	g.seq++
	g.current = cancel
	return g.seq
}

func (g *Gate) release(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seq == id {
		g.current = nil
	}
}

// Stop interrupts the playback in flight, if any.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != nil {
		g.current()
		g.current = nil
	}
}

// Decode accepts standard base64 with or without padding, and data: URLs.
func Decode(encoded string) ([]byte, error) {
	s := strings.TrimSpace(encoded)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	data, rerr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if rerr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("decode clip: %w", err)
}

// Extension picks a file extension for a MIME type.
func Extension(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		base = mimeType
	}
	switch strings.ToLower(base) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	case "audio/aac":
		return ".aac"
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
