// internal/ui/help.go
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Yellow).
				MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	helpCmdStyle = lipgloss.NewStyle().
			Foreground(Magenta)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(White)

	helpDimStyle = lipgloss.NewStyle().
			Foreground(Dim)
)

type helpRow struct {
	left string
	desc string
}

var helpKeys = []helpRow{
	{"s", "Connect and start the debate"},
	{"p", "Pause: close the current session"},
	{"x", "Export the timeline as markdown"},
	{"/", "Open the command prompt"},
	{"↑ ↓ PgUp PgDn", "Scroll the timeline"},
	{"Enter / Esc", "Acknowledge a server error"},
	{"F1 / ?", "Toggle this help overlay"},
	{"q / Ctrl+C", "Quit"},
}

var helpCommands = []helpRow{
	{"/start", "Connect and start the debate"},
	{"/pause", "Close the current session"},
	{"/status", "Show the session status"},
	{"/export [path]", "Write the transcript to path"},
	{"/help", "Toggle this help overlay"},
	{"/quit", "Exit"},
}

// HelpContent returns the formatted help overlay content
func HelpContent(width, height int) string {
	var content strings.Builder

	content.WriteString(helpTitleStyle.Render("DEBATEWATCH HELP"))
	content.WriteString("\n\n")

	content.WriteString(helpSectionStyle.Render("KEYBINDINGS"))
	content.WriteString("\n\n")
	for _, kb := range helpKeys {
		key := helpKeyStyle.Width(16).Render(kb.left)
		content.WriteString("  " + key + "  " + helpDescStyle.Render(kb.desc) + "\n")
	}

	content.WriteString("\n")
	content.WriteString(helpSectionStyle.Render("COMMANDS"))
	content.WriteString("\n\n")
	for _, c := range helpCommands {
		cmd := helpCmdStyle.Width(16).Render(c.left)
		content.WriteString("  " + cmd + "  " + helpDescStyle.Render(c.desc) + "\n")
	}

	content.WriteString("\n")
	content.WriteString(helpSectionStyle.Render("LIFE PURPOSE"))
	content.WriteString("\n\n")
	for _, b := range []struct{ label, desc string }{
		{"critical", "below 20%"},
		{"low", "20% to 39%"},
		{"medium", "40% to 59%"},
		{"high", "60% to 79%"},
		{"full", "80% and above"},
	} {
		content.WriteString("  " + helpDescStyle.Width(10).Render(b.label) + helpDimStyle.Render(b.desc) + "\n")
	}

	content.WriteString("\n")
	footer := helpDimStyle.Render("Press F1 or Esc to close this help")
	content.WriteString(lipgloss.PlaceHorizontal(max(width-8, 0), lipgloss.Center, footer))

	overlayStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(1, 3).
		MaxWidth(width - 10).
		MaxHeight(height - 4)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlayStyle.Render(content.String()),
	)
}

func (m Model) renderHelp() string {
	return HelpContent(m.width, m.height)
}
