// internal/ui/styles.go
package ui

import (
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"debatewatch/internal/controller"
	"debatewatch/internal/needs"
)

var (
	// Colors
	Cyan     = lipgloss.Color("#00FFFF")
	Green    = lipgloss.Color("#00FF00")
	Yellow   = lipgloss.Color("#FFD700")
	Orange   = lipgloss.Color("#FFA500")
	Red      = lipgloss.Color("#FF6B6B")
	Magenta  = lipgloss.Color("#FF00FF")
	SkyBlue  = lipgloss.Color("#87CEEB")
	Dim      = lipgloss.Color("#555555")
	White    = lipgloss.Color("#FFFFFF")
	DarkGray = lipgloss.Color("#333333")

	// Box styles
	ActiveBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan)

	InactiveBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Dim)

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	SystemStyle = lipgloss.NewStyle().
			Foreground(Yellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Dim)

	EmotionStyle = lipgloss.NewStyle().
			Foreground(SkyBlue).
			Italic(true)

	// Status indicators
	StatusOK   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	StatusWarn = lipgloss.NewStyle().Foreground(Orange).Bold(true)
	StatusCrit = lipgloss.NewStyle().Foreground(Red).Bold(true)

	// Control hints
	EnabledKeyStyle = lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true)

	DisabledKeyStyle = lipgloss.NewStyle().
				Foreground(DarkGray)
)

// BandColor returns the color for a need-meter band
func BandColor(b needs.Band) lipgloss.Color {
	switch b {
	case needs.BandCritical:
		return Red
	case needs.BandLow:
		return Orange
	case needs.BandMedium:
		return Yellow
	case needs.BandHigh:
		return SkyBlue
	case needs.BandFull:
		return Green
	default:
		return Dim
	}
}

// meterColor blends from the critical to the full color across the bar.
func meterColor(pos float64) lipgloss.Color {
	from, err1 := colorful.Hex(string(Red))
	to, err2 := colorful.Hex(string(Green))
	if err1 != nil || err2 != nil {
		return White
	}
	return lipgloss.Color(from.BlendHcl(to, pos).Clamped().Hex())
}

// EntryStyle returns the style for a timeline entry kind
func EntryStyle(kind controller.EntryKind) lipgloss.Style {
	switch kind {
	case controller.KindIteration:
		return TitleStyle
	case controller.KindSpeech:
		return lipgloss.NewStyle().Foreground(White)
	case controller.KindNeed:
		return lipgloss.NewStyle().Foreground(SkyBlue)
	case controller.KindError:
		return ErrorStyle
	case controller.KindEnd:
		return StatusOK
	default:
		return SystemStyle
	}
}
