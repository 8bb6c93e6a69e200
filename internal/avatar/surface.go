// internal/avatar/surface.go
// Package avatar renders one agent as terminal art. Assets load in the
// background; any failure swaps in a placeholder drawn in the agent's colour,
// so callers never learn whether the real asset loaded.
package avatar

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"debatewatch/internal/logging"
)

// FrameInterval is the render cadence the UI drives Step at.
const FrameInterval = 50 * time.Millisecond

// DefaultLoadTimeout bounds a single asset load.
const DefaultLoadTimeout = 5 * time.Second

// mouthTicks is how many frames each speaking frame is held.
const mouthTicks = 4

// Mode is the presentation mode of a surface.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSpeaking
)

func (m Mode) String() string {
	if m == ModeSpeaking {
		return "speaking"
	}
	return "idle"
}

// Surface is safe for concurrent use: the controller presents from its loop
// while the UI steps and renders from the program goroutine.
type Surface struct {
	agentID string
	color   lipgloss.Color
	log     *logging.Logger

	mu          sync.Mutex
	frames      [][]string
	fitted      [][]string
	placeholder bool
	loaded      bool
	mode        Mode
	tick        int
	width       int
	height      int
	disposed    bool
	cancel      context.CancelFunc
	ready       chan struct{}
}

// New creates an empty surface. An empty color derives a stable one from agentID.
func New(agentID, color string, log *logging.Logger) *Surface {
	if color == "" {
		color = ColorFor(agentID)
	}
	return &Surface{
		agentID: agentID,
		color:   lipgloss.Color(color),
		log:     log.WithComponent("avatar").WithAgent(agentID),
		ready:   make(chan struct{}),
	}
}

// ColorFor derives a deterministic hex colour from an agent id.
func ColorFor(agentID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(agentID))
	hue := float64(h.Sum32() % 360)
	return colorful.Hcl(hue, 0.55, 0.75).Clamped().Hex()
}

// Load fetches the named asset in the background. Failures install the
// placeholder. Calling Load again replaces a load still in flight.
func (s *Surface) Load(ctx context.Context, loader Loader, name string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		defer cancel()
		frames, err := s.fetch(ctx, loader, name)
		if err != nil {
			s.log.Info("asset unavailable, using placeholder", "asset", name, "error", err)
			s.usePlaceholder()
			return
		}
		s.install(frames, false)
	}()
}

func (s *Surface) fetch(ctx context.Context, loader Loader, name string) (frames [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			frames, err = nil, errLoaderPanic
		}
	}()
	if loader == nil {
		return nil, errNoLoader
	}
	data, err := loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// UsePlaceholder installs the placeholder immediately.
func (s *Surface) UsePlaceholder() {
	s.usePlaceholder()
}

func (s *Surface) usePlaceholder() {
	s.install(placeholderFrames(), true)
}

func (s *Surface) install(frames [][]string, placeholder bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.frames = frames
	s.placeholder = placeholder
	s.loaded = !placeholder
	s.refit()
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
}

// Ready is closed once an asset or the placeholder is installed.
func (s *Surface) Ready() <-chan struct{} {
	return s.ready
}

// PresentIdle switches to the idle pose. Never fails.
func (s *Surface) PresentIdle() {
	s.setMode(ModeIdle)
}

// PresentSpeaking switches to the speaking animation. Never fails.
func (s *Surface) PresentSpeaking() {
	s.setMode(ModeSpeaking)
}

func (s *Surface) setMode(m Mode) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	if s.mode != m {
		s.tick = 0
	}
	s.mode = m
}

// Mode returns the current presentation mode.
func (s *Surface) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// IsPlaceholder reports whether the placeholder is showing.
func (s *Surface) IsPlaceholder() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeholder
}

// Loaded reports whether the real asset is showing.
func (s *Surface) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Step advances the animation by one frame. It runs whether or not anything loaded.
func (s *Surface) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.tick++
}

// Resize re-fits the art into a w x h box without distorting it.
func (s *Surface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	s.width, s.height = w, h
	s.refit()
}

// Size returns the fitted art dimensions.
func (s *Surface) Size() (w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fitted) == 0 {
		return 0, 0
	}
	return dims(s.fitted[0])
}

func (s *Surface) refit() {
	s.fitted = s.fitted[:0]
	for _, f := range s.frames {
		if s.width == 0 && s.height == 0 {
			s.fitted = append(s.fitted, f)
			continue
		}
		s.fitted = append(s.fitted, Fit(f, s.width, s.height))
	}
}

// View renders the current frame, or an empty scene if nothing is installed.
func (s *Surface) View() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || len(s.fitted) == 0 {
		return ""
	}
	frame := s.fitted[0]
	if s.mode == ModeSpeaking && len(s.fitted) > 1 && (s.tick/mouthTicks)%2 == 1 {
		frame = s.fitted[1]
	}
	return lipgloss.NewStyle().Foreground(s.color).Render(strings.Join(frame, "\n"))
}

// Color returns the surface's colour tag.
func (s *Surface) Color() lipgloss.Color {
	return s.color
}

// Dispose releases the art and cancels any pending load. Safe to repeat.
func (s *Surface) Dispose() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.frames = nil
	s.fitted = nil
}

// Fit scales art uniformly into w x h using nearest-neighbour sampling.
// Art is never scaled up.
func Fit(art []string, w, h int) []string {
	srcW, srcH := dims(art)
	if srcW == 0 || srcH == 0 || w <= 0 || h <= 0 {
		return nil
	}

	scale := min(float64(w)/float64(srcW), float64(h)/float64(srcH), 1)
	outW := int(float64(srcW) * scale)
	outH := int(float64(srcH) * scale)
	if outW < 1 || outH < 1 {
		return nil
	}
	if outW == srcW && outH == srcH {
		return pad(art, srcW)
	}

	grid := make([][]rune, srcH)
	for i, line := range art {
		grid[i] = []rune(runewidth.FillRight(line, srcW))
	}

	out := make([]string, outH)
	for y := 0; y < outH; y++ {
		sy := int(float64(y) / scale)
		if sy >= srcH {
			sy = srcH - 1
		}
		row := grid[sy]
		var b strings.Builder
		for x := 0; x < outW; x++ {
			sx := int(float64(x) / scale)
			if sx >= len(row) {
				b.WriteRune(' ')
				continue
			}
			b.WriteRune(row[sx])
		}
		out[y] = b.String()
	}
	return out
}

func dims(art []string) (w, h int) {
	for _, line := range art {
		if lw := runewidth.StringWidth(line); lw > w {
			w = lw
		}
	}
	return w, len(art)
}

func pad(art []string, w int) []string {
	out := make([]string, len(art))
	for i, line := range art {
		out[i] = runewidth.FillRight(line, w)
	}
	return out
}
