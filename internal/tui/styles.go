package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FFF87")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#5FD7FF")
	colorGray   = lipgloss.Color("#6C6C6C")
	colorDim    = lipgloss.Color("#444444")
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	recordingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	pausedStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	doneStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	dimStyle       = lipgloss.NewStyle().Foreground(colorGray)
	dividerStyle   = lipgloss.NewStyle().Foreground(colorDim)
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	levelLowStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	levelHighStyle = lipgloss.NewStyle().Foreground(colorYellow)
	levelOffStyle  = lipgloss.NewStyle().Foreground(colorGray)
	consentStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorYellow).
			Padding(0, 1)
)
