// Package cli provides shared terminal styling for sieve commands.
package cli

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	PrimaryColor = lipgloss.Color("#7D9BF0")
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	SubtleColor  = lipgloss.Color("#95A5A6")
)

// Text styles.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	FlagStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)
)
