package tui

import (
	"github.com/charmbracelet/lipgloss"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			MarginTop(1)

	readyStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	failedStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	activeStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)

	progressBarFull  = lipgloss.NewStyle().Foreground(colorGreen)
	progressBarEmpty = lipgloss.NewStyle().Foreground(colorDim)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			MarginTop(1)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	spinner   = "[..]"
	pending   = "[  ]"
	warnMark  = "[??]"
)

var spinnerFrames = []string{"[⠋ ]", "[⠙ ]", "[⠹ ]", "[⠸ ]", "[⠼ ]", "[⠴ ]", "[⠦ ]", "[⠧ ]", "[⠇ ]", "[⠏ ]"}

// phaseStyle colors a refresh phase in the header.
func phaseStyle(phase refreshv1.RefreshPhase) lipgloss.Style {
	switch {
	case phase == refreshv1.PhaseCompleted:
		return readyStyle
	case phase == refreshv1.PhaseFailed:
		return failedStyle
	case phase.IsActive():
		return warningStyle
	default:
		return dimStyle
	}
}
