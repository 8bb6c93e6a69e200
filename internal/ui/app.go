// internal/ui/app.go
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"debatewatch/internal/avatar"
	"debatewatch/internal/commands"
	"debatewatch/internal/controller"
	"debatewatch/internal/event"
)

// Controls are the user-facing session operations.
type Controls interface {
	StartSession()
	PauseSession()
}

// ExportFunc writes a transcript of v and returns where it went.
type ExportFunc func(v controller.View, path string) (string, error)

type Options struct {
	Controls  Controls
	Panels    []Panel
	Export    ExportFunc
	AutoStart bool
}

// Messages

type viewMsg controller.View

type frameMsg time.Time

type noticeMsg struct {
	text string
	ack  chan struct{}
}

type exportedMsg struct {
	path string
	err  error
}

func frameTick() tea.Cmd {
	return tea.Tick(avatar.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

type Model struct {
	opts     Options
	view     controller.View
	surfaces map[string]*avatar.Surface

	width, height int
	ready         bool

	timeline *TimelineView
	prompt   textinput.Model
	typing   bool
	showHelp bool
	notice   *noticeMsg
	flash    string
	flashErr bool
}

func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "start, pause, export [path], help, quit"
	ti.CharLimit = 256

	m := Model{
		opts:     opts,
		surfaces: make(map[string]*avatar.Surface, len(opts.Panels)),
		timeline: NewTimelineView(80, 10),
		prompt:   ti,
		view:     controller.View{Status: controller.StatusReady, StartEnabled: true},
	}
	for _, p := range opts.Panels {
		m.surfaces[p.ID] = p.Surface
		m.view.Agents = append(m.view.Agents, controller.AgentView{ID: p.ID, Name: p.ID})
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{frameTick()}
	if m.opts.AutoStart {
		cmds = append(cmds, m.start())
	}
	return tea.Batch(cmds...)
}

func (m Model) start() tea.Cmd {
	ctrl := m.opts.Controls
	return func() tea.Msg {
		if ctrl != nil {
			ctrl.StartSession()
		}
		return nil
	}
}

func (m Model) pause() tea.Cmd {
	ctrl := m.opts.Controls
	return func() tea.Msg {
		if ctrl != nil {
			ctrl.PauseSession()
		}
		return nil
	}
}

func (m Model) export(path string) tea.Cmd {
	export, v := m.opts.Export, m.view
	return func() tea.Msg {
		if export == nil {
			return exportedMsg{err: errors.New("export is not configured")}
		}
		p, err := export(v, path)
		return exportedMsg{path: p, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = controller.View(msg)
		m.timeline.Update(m.view.Timeline)
		return m, nil

	case frameMsg:
		for _, s := range m.surfaces {
			s.Step()
		}
		return m, frameTick()

	case noticeMsg:
		if m.notice != nil {
			close(m.notice.ack)
		}
		n := msg
		m.notice = &n
		m.showHelp = false
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.flash, m.flashErr = "Export failed: "+msg.err.Error(), true
		} else {
			m.flash, m.flashErr = "Transcript written to "+msg.path, false
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.timeline.Update(m.view.Timeline)
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline.Viewport, cmd = m.timeline.Viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.ackNotice()
		return m, tea.Quit
	}

	if m.notice != nil {
		switch key {
		case "enter", "esc", " ":
			m.ackNotice()
		}
		return m, nil
	}

	if m.typing {
		switch key {
		case "esc":
			m.typing = false
			m.prompt.Blur()
			m.prompt.Reset()
			return m, nil
		case "enter":
			line := m.prompt.Value()
			m.typing = false
			m.prompt.Blur()
			m.prompt.Reset()
			return m.runCommand(commands.Parse(line))
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	if m.showHelp {
		switch key {
		case "esc", "?", "f1", "q":
			m.showHelp = false
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "s":
		return m.runCommand(commands.Start{})
	case "p":
		return m.runCommand(commands.Pause{})
	case "x":
		return m.runCommand(commands.Export{})
	case "?", "f1":
		return m.runCommand(commands.Help{})
	case "/", ":":
		m.typing = true
		m.flash = ""
		return m, m.prompt.Focus()
	}

	var cmd tea.Cmd
	m.timeline.Viewport, cmd = m.timeline.Viewport.Update(msg)
	return m, cmd
}

func (m Model) runCommand(c commands.Command) (tea.Model, tea.Cmd) {
	m.flash, m.flashErr = "", false
	switch c := c.(type) {
	case nil:
		return m, nil
	case commands.Start:
		if !m.view.StartEnabled {
			m.flash = "A session is already open"
			return m, nil
		}
		return m, m.start()
	case commands.Pause:
		if !m.view.PauseEnabled {
			m.flash = "Nothing to pause"
			return m, nil
		}
		return m, m.pause()
	case commands.Export:
		return m, m.export(c.Path)
	case commands.Status:
		m.flash = m.view.Status
		return m, nil
	case commands.Help:
		m.showHelp = !m.showHelp
		return m, nil
	case commands.Quit:
		return m, tea.Quit
	case commands.ParseError:
		m.flash, m.flashErr = c.Message, true
		return m, nil
	}
	return m, nil
}

func (m *Model) ackNotice() {
	if m.notice != nil {
		close(m.notice.ack)
		m.notice = nil
	}
}

const (
	headerHeight = 1
	footerHeight = 1
)

// panelHeight is the outer height of the agent row.
func (m Model) panelHeight() int {
	h := (m.height - headerHeight - footerHeight) * 3 / 5
	if h < 12 {
		h = 12
	}
	return h
}

func (m Model) panelWidth() int {
	n := len(m.opts.Panels)
	if n == 0 {
		n = 1
	}
	return m.width / n
}

func (m *Model) layout() {
	pw, ph := m.panelWidth(), m.panelHeight()
	aw, ah := artSize(pw, ph)
	for _, s := range m.surfaces {
		s.Resize(aw, ah)
	}
	th := m.height - headerHeight - footerHeight - ph - 2
	if th < 3 {
		th = 3
	}
	m.timeline.Resize(m.width-2, th)
	m.prompt.Width = m.width - 4
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.notice != nil {
		return m.renderNotice()
	}
	if m.showHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()

	pw, ph := m.panelWidth(), m.panelHeight()
	panels := make([]string, 0, len(m.view.Agents))
	for _, a := range m.view.Agents {
		panels = append(panels, RenderAgent(a, m.surfaces[a.ID], pw, ph))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, panels...)

	timeline := InactiveBox.Width(m.width - 2).Render(m.timeline.Viewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, row, timeline, m.renderFooter())
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("DEBATEWATCH")
	status := SystemStyle.Render(m.view.Status)
	switch {
	case m.view.State == controller.SessionOpen:
		status = StatusOK.Render("● ") + status
	case m.view.Status == controller.StatusDisconnected:
		status = StatusCrit.Render("✕ ") + status
	}
	right := ""
	if m.view.SessionID != "" {
		right = DimStyle.Render("session " + shortID(m.view.SessionID))
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(status) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	return title + "  " + status + strings.Repeat(" ", gap) + right
}

func (m Model) renderFooter() string {
	if m.typing {
		return m.prompt.View()
	}
	if m.flash != "" {
		if m.flashErr {
			return ErrorStyle.Render(m.flash)
		}
		return SystemStyle.Render(m.flash)
	}
	key := func(k, label string, enabled bool) string {
		if enabled {
			return EnabledKeyStyle.Render(k) + " " + label
		}
		return DisabledKeyStyle.Render(k + " " + label)
	}
	return strings.Join([]string{
		key("s", "start", m.view.StartEnabled),
		key("p", "pause", m.view.PauseEnabled),
		key("x", "export", true),
		key("/", "command", true),
		key("?", "help", true),
		key("q", "quit", true),
	}, DimStyle.Render("  │  "))
}

func (m Model) renderNotice() string {
	w := min(60, m.width-10)
	if w < 20 {
		w = 20
	}
	body := ErrorStyle.Render("Server error") + "\n\n" +
		lipgloss.NewStyle().Width(w).Render(m.notice.text) + "\n\n" +
		DimStyle.Render("Press Enter to acknowledge")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Red).
		Padding(1, 3).
		Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
}

// NewApp creates the program. Attach it to the controller bus before the
// controller starts publishing.
func NewApp(ctx context.Context, opts Options) *App {
	return &App{
		program: tea.NewProgram(
			New(opts),
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(ctx),
		),
	}
}

// Attach forwards controller projections to the program.
func (a *App) Attach(bus *event.Bus) *event.Subscription {
	return bus.Subscribe(controller.EventChanged, func(e event.Event) {
		if ce, ok := e.(controller.ChangedEvent); ok {
			a.program.Send(viewMsg(ce.View))
		}
	})
}

// Notify shows msg in a modal and blocks until the user dismisses it.
func (a *App) Notify(ctx context.Context, msg string) {
	ack := make(chan struct{})
	a.program.Send(noticeMsg{text: msg, ack: ack})
	select {
	case <-ack:
	case <-ctx.Done():
	}
}

// Run starts the TUI application
func (a *App) Run() error {
	_, err := a.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
