// internal/ui/debate.go
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"debatewatch/internal/avatar"
	"debatewatch/internal/controller"
)

// Panel pairs an agent with its rendering surface.
type Panel struct {
	ID      string
	Surface *avatar.Surface
}

// RenderTimeline renders entries one per line, wrapped to width.
func RenderTimeline(entries []controller.Entry, width int) string {
	if len(entries) == 0 {
		return DimStyle.Render("Press s to start the debate.")
	}
	var sb strings.Builder
	textWidth := width - 9
	if textWidth < 10 {
		textWidth = 10
	}
	for i, e := range entries {
		ts := DimStyle.Render(fmt.Sprintf("[%s]", e.Elapsed))
		lines := strings.Split(wordwrap.String(e.Text, textWidth), "\n")
		style := EntryStyle(e.Kind)
		for j, line := range lines {
			if j == 0 {
				sb.WriteString(ts + " ")
			} else {
				sb.WriteString("        ")
			}
			sb.WriteString(style.Render(line))
			if j < len(lines)-1 {
				sb.WriteString("\n")
			}
		}
		if i < len(entries)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderMeter draws a need-meter of the given bar width.
func RenderMeter(a controller.AgentView, width int) string {
	label := "Life purpose "
	if !a.HasNeed {
		return DimStyle.Render(label + "--")
	}
	if width < 4 {
		width = 4
	}
	filled := a.Percent * width / 100
	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			pos := 0.0
			if width > 1 {
				pos = float64(i) / float64(width-1)
			}
			bar.WriteString(lipgloss.NewStyle().Foreground(meterColor(pos)).Render("█"))
		} else {
			bar.WriteString(DimStyle.Render("░"))
		}
	}
	band := lipgloss.NewStyle().Foreground(BandColor(a.Band)).Bold(true)
	return label + bar.String() + " " + band.Render(fmt.Sprintf("%3d%% %s", a.Percent, a.Band))
}

// RenderBubble renders the agent's active utterance, or nothing.
func RenderBubble(b *controller.Bubble, width, maxLines int) string {
	if b == nil || width < 8 {
		return ""
	}
	text := wordwrap.String(b.Text, width)
	lines := strings.Split(text, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = truncate.StringWithTail(lines[maxLines-1], uint(width-1), "…")
	}

	var sb strings.Builder
	if b.Emotion != "" || b.Impact != nil {
		meta := b.Emotion
		if b.Impact != nil {
			if meta != "" {
				meta += ", "
			}
			meta += fmt.Sprintf("impact %+.2f", *b.Impact)
		}
		sb.WriteString(EmotionStyle.Render("(" + meta + ")"))
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

// RenderAgent renders one agent panel of the given outer size.
func RenderAgent(a controller.AgentView, s *avatar.Surface, width, height int) string {
	inner := width - 4
	if inner < 10 {
		inner = 10
	}

	nameStyle := lipgloss.NewStyle().Bold(true)
	if s != nil {
		nameStyle = nameStyle.Foreground(s.Color())
	}
	indicator := StatusOK.Render("○ idle")
	if a.Mode == controller.ModeSpeaking {
		indicator = StatusWarn.Render("● speaking")
	}
	header := nameStyle.Render(a.Name) + "  " + indicator
	if a.Queued > 0 {
		header += DimStyle.Render(fmt.Sprintf("  (+%d queued)", a.Queued))
	}

	art := ""
	if s != nil {
		art = s.View()
	}
	artBox := lipgloss.PlaceHorizontal(inner, lipgloss.Center, art)

	meter := RenderMeter(a, inner-26)
	bubble := RenderBubble(a.Bubble, inner, 4)

	body := lipgloss.JoinVertical(lipgloss.Left, header, artBox, meter, bubble)

	box := InactiveBox
	if a.Mode == controller.ModeSpeaking {
		box = ActiveBox
	}
	return box.Width(width - 2).Height(height - 2).MaxHeight(height).Render(body)
}

// artSize returns the box an avatar gets inside a panel.
func artSize(width, height int) (int, int) {
	w := width - 4
	h := height - 2 - 1 - 1 - 5
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// TimelineView wraps the timeline with a viewport for scrolling
type TimelineView struct {
	Viewport viewport.Model
	count    int
}

func NewTimelineView(width, height int) *TimelineView {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	vp.MouseWheelEnabled = true
	return &TimelineView{Viewport: vp}
}

// Update refreshes the content, following the tail when new entries arrive
// and the user has not scrolled up.
func (v *TimelineView) Update(entries []controller.Entry) {
	follow := v.Viewport.AtBottom() || len(entries) < v.count
	v.Viewport.SetContent(RenderTimeline(entries, v.Viewport.Width))
	if follow {
		v.Viewport.GotoBottom()
	}
	v.count = len(entries)
}

func (v *TimelineView) Resize(width, height int) {
	v.Viewport.Width = width
	v.Viewport.Height = height
}
