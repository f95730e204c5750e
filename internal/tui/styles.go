// Package tui provides an interactive chat interface for the query
// engine using bubbletea.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#4ECDC4")
	// WarningColor indicates caution messages.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for the header line.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	// UserStyle formats the user's own messages.
	UserStyle = lipgloss.NewStyle().
			Bold(true)

	// QuestionStyle formats clarifying questions and confirmations.
	QuestionStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// NoticeStyle formats degradation notices.
	NoticeStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// CitationStyle formats provenance lines.
	CitationStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)
)
