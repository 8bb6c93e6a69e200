// internal/ui/headless.go
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"debatewatch/internal/commands"
	"debatewatch/internal/controller"
	"debatewatch/internal/event"
)

// HeadlessOptions configures the line-oriented runner.
type HeadlessOptions struct {
	Controls  Controls
	Export    ExportFunc
	In        io.Reader
	Out       io.Writer
	AutoStart bool
	ExitOnEnd bool // return once a started session closes
}

// Headless prints the timeline as plain lines and reads commands from In.
// It is used when stdout is not a terminal.
type Headless struct {
	opts HeadlessOptions

	mu      sync.Mutex
	view    controller.View
	printed int
	status  string
	session string
	ended   chan struct{}
	endOnce sync.Once
}

func NewHeadless(opts HeadlessOptions) *Headless {
	return &Headless{opts: opts, ended: make(chan struct{})}
}

// Attach prints controller projections as they arrive.
func (h *Headless) Attach(bus *event.Bus) *event.Subscription {
	return bus.Subscribe(controller.EventChanged, func(e event.Event) {
		if ce, ok := e.(controller.ChangedEvent); ok {
			h.apply(ce.View)
		}
	})
}

func (h *Headless) apply(v controller.View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if v.SessionID != h.session {
		h.session = v.SessionID
		h.printed = 0
	}
	if len(v.Timeline) < h.printed {
		h.printed = 0
	}
	for _, e := range v.Timeline[h.printed:] {
		fmt.Fprintf(h.opts.Out, "[%s] %s\n", e.Elapsed, e.Text)
	}
	h.printed = len(v.Timeline)

	if v.Status != h.status {
		h.status = v.Status
		fmt.Fprintf(h.opts.Out, "-- %s\n", v.Status)
	}
	h.view = v

	if h.opts.ExitOnEnd && v.SessionID != "" && v.State == controller.SessionClosed {
		h.endOnce.Do(func() { close(h.ended) })
	}
}

// Notify prints the error. It never blocks.
func (h *Headless) Notify(_ context.Context, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.opts.Out, "!! server error: %s\n", msg)
}

func (h *Headless) snapshot() controller.View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view
}

func (h *Headless) println(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.opts.Out, format+"\n", args...)
}

// Run processes commands until quit, ctx is done or, with ExitOnEnd, the
// session closes. End of input stops command reading only.
func (h *Headless) Run(ctx context.Context) error {
	lines := make(chan string)
	if h.opts.In != nil {
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(h.opts.In)
			for sc.Scan() {
				select {
				case lines <- sc.Text():
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		close(lines)
	}

	if h.opts.AutoStart && h.opts.Controls != nil {
		h.opts.Controls.StartSession()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.ended:
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			if quit := h.handle(commands.Parse(line)); quit {
				return nil
			}
		}
	}
}

func (h *Headless) handle(c commands.Command) (quit bool) {
	switch c := c.(type) {
	case nil:
	case commands.Start:
		if h.opts.Controls != nil {
			h.opts.Controls.StartSession()
		}
	case commands.Pause:
		if h.opts.Controls != nil {
			h.opts.Controls.PauseSession()
		}
	case commands.Status:
		h.println("-- %s", h.snapshot().Status)
	case commands.Export:
		if h.opts.Export == nil {
			h.println("!! export is not configured")
			return false
		}
		path, err := h.opts.Export(h.snapshot(), c.Path)
		if err != nil {
			h.println("!! export failed: %v", err)
			return false
		}
		h.println("-- transcript written to %s", path)
	case commands.Help:
		h.println("%s", commands.HelpText())
	case commands.Quit:
		return true
	case commands.ParseError:
		h.println("!! %s", c.Message)
	}
	return false
}
