package tui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	colorRed     = lipgloss.Color("#FF0000")
	colorGreen   = lipgloss.Color("#00FF00")
	colorYellow  = lipgloss.Color("#FFFF00")
	colorCyan    = lipgloss.Color("#00FFFF")
	colorGray    = lipgloss.Color("#666666")
	colorDimGray = lipgloss.Color("#444444")
	colorIvory   = lipgloss.Color("#EEEEEE")
	colorEbony   = lipgloss.Color("#1C1C1C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDimGray)

	whiteKeyStyle = lipgloss.NewStyle().
			Background(colorIvory).
			Foreground(colorDimGray)

	whiteKeyEdgeStyle = lipgloss.NewStyle().
				Background(colorIvory).
				Foreground(colorGray)

	blackKeyStyle = lipgloss.NewStyle().
			Background(colorEbony).
			Foreground(colorGray)

	pressedKeyStyle = lipgloss.NewStyle().
			Background(colorCyan).
			Foreground(colorEbony)

	recordButtonStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Bold(true)

	stopButtonStyle = lipgloss.NewStyle().
			Reverse(true).
			Bold(true)

	playButtonStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	resetButtonStyle = lipgloss.NewStyle().
				Foreground(colorGray)
)
