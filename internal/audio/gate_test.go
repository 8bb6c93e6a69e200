package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"debatewatch/internal/logging"
)

// fakePlayer records clips and blocks until released or cancelled.
type fakePlayer struct {
	mu      sync.Mutex
	clips   []Clip
	sizes   []int64
	started chan Clip
	release chan struct{}
	err     error
	fs      afero.Fs
}

func newFakePlayer(fs afero.Fs) *fakePlayer {
	return &fakePlayer{
		started: make(chan Clip, 8),
		release: make(chan struct{}),
		fs:      fs,
	}
}

func (p *fakePlayer) Play(ctx context.Context, clip Clip) error {
	info, err := p.fs.Stat(clip.Path)
	p.mu.Lock()
	p.clips = append(p.clips, clip)
	if err == nil {
		p.sizes = append(p.sizes, info.Size())
	}
	p.mu.Unlock()
	p.started <- clip
	if p.err != nil {
		return p.err
	}
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func encode(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func TestPrepareRoundTripSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	g := NewGate(fs, "/tmp", nil, logging.NopLogger())

	payload := make([]byte, 4099)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	enc := encode(payload)

	clip, err := g.Prepare(enc, "audio/mpeg")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	defer g.Discard(clip)

	decoded, _ := base64.StdEncoding.DecodeString(enc)
	if clip.Size != int64(len(decoded)) {
		t.Errorf("clip size %d, want %d", clip.Size, len(decoded))
	}
	data, err := afero.ReadFile(fs, clip.Path)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if len(data) != len(payload) {
		t.Fatalf("file has %d bytes, want %d", len(data), len(payload))
	}
	for i := range data {
		if data[i] != payload[i] {
			t.Fatalf("byte %d differs", i)
		}
	}
	if ext := clip.Path[len(clip.Path)-4:]; ext != ".mp3" {
		t.Errorf("extension = %s, want .mp3", ext)
	}
}

func TestPlayReleasesClip(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newFakePlayer(fs)
	g := NewGate(fs, "/tmp", p, logging.NopLogger())

	done := make(chan struct{})
	go func() {
		g.Play(context.Background(), encode([]byte("hello audio")), "")
		close(done)
	}()

	clip := <-p.started
	if exists, _ := afero.Exists(fs, clip.Path); !exists {
		t.Fatal("clip file should exist during playback")
	}
	close(p.release)
	<-done

	if exists, _ := afero.Exists(fs, clip.Path); exists {
		t.Error("clip file should be removed after playback")
	}
	if p.sizes[0] != int64(len("hello audio")) {
		t.Errorf("player saw %d bytes", p.sizes[0])
	}
}

func TestPlayResolvesOnPlayerError(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newFakePlayer(fs)
	p.err = errors.New("no output device")
	g := NewGate(fs, "/tmp", p, logging.NopLogger())

	done := make(chan struct{})
	go func() {
		g.Play(context.Background(), encode([]byte("x")), "audio/mpeg")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Play should resolve when the player fails")
	}
	files, _ := afero.ReadDir(fs, "/tmp")
	if len(files) != 0 {
		t.Errorf("expected no leftover clips, found %d", len(files))
	}
}

func TestPlayResolvesOnBadInput(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newFakePlayer(fs)
	g := NewGate(fs, "/tmp", p, logging.NopLogger())

	for _, enc := range []string{"", "   ", "!!!not base64!!!"} {
		done := make(chan struct{})
		go func() {
			g.Play(context.Background(), enc, "audio/mpeg")
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("Play(%q) did not resolve", enc)
		}
	}
	if len(p.clips) != 0 {
		t.Errorf("player should not run for bad input, ran %d times", len(p.clips))
	}
}

func TestNewRequestInterruptsCurrent(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newFakePlayer(fs)
	g := NewGate(fs, "/tmp", p, logging.NopLogger())

	first := make(chan struct{})
	go func() {
		g.Play(context.Background(), encode([]byte("first")), "")
		close(first)
	}()
	<-p.started

	second := make(chan struct{})
	go func() {
		g.Play(context.Background(), encode([]byte("second")), "")
		close(second)
	}()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first playback should be interrupted by the second request")
	}
	<-p.started

	select {
	case <-second:
		t.Fatal("second playback should still be running")
	default:
	}
	close(p.release)
	<-second
}

func TestStopInterrupts(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := newFakePlayer(fs)
	g := NewGate(fs, "/tmp", p, logging.NopLogger())

	done := make(chan struct{})
	go func() {
		g.Play(context.Background(), encode([]byte("clip")), "")
		close(done)
	}()
	<-p.started
	g.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop should interrupt playback")
	}
}

func TestDecodeVariants(t *testing.T) {
	want := "abcd1"
	for _, enc := range []string{
		base64.StdEncoding.EncodeToString([]byte(want)),
		base64.RawStdEncoding.EncodeToString([]byte(want)),
		"data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte(want)),
		"YWJj\nZDE=",
	} {
		got, err := Decode(enc)
		if err != nil {
			t.Errorf("Decode(%q): %v", enc, err)
			continue
		}
		if string(got) != want {
			t.Errorf("Decode(%q) = %q", enc, got)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"audio/mpeg":               ".mp3",
		"audio/wav":                ".wav",
		"audio/ogg; codecs=opus":   ".ogg",
		"application/x-unknown-zz": ".bin",
	}
	for in, want := range tests {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExecPlayerArgs(t *testing.T) {
	p := NewExecPlayer(nil)
	args := p.Args("/tmp/a.mp3")
	if args[len(args)-1] != "/tmp/a.mp3" || args[0] != "ffplay" {
		t.Errorf("unexpected args %v", args)
	}

	p = NewExecPlayer([]string{"mpv", "--no-video"})
	args = p.Args("/tmp/b.mp3")
	if len(args) != 3 || args[2] != "/tmp/b.mp3" {
		t.Errorf("path should be appended without placeholder: %v", args)
	}
}
