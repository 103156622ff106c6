package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary   = lipgloss.Color("#7D56F4")
	colorSecondary = lipgloss.Color("#874BFD")
	colorSuccess   = lipgloss.Color("#04B575")
	colorWarning   = lipgloss.Color("#FFD700")
	colorError     = lipgloss.Color("#FF6B6B")
	colorMuted     = lipgloss.Color("#7D7D7D")
	colorWhite     = lipgloss.Color("#FAFAFA")
	colorBorder    = lipgloss.Color("#444444")
)

// Header styles
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorWhite).
	Background(colorPrimary).
	Padding(0, 2).
	MarginBottom(1)

// Box styles
var BoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorSecondary).
	Padding(1, 2).
	MarginBottom(1)

// Worker box style
var WorkerBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorBorder).
	Padding(0, 1).
	Width(24).
	Height(4).
	MarginRight(1)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWarning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Footer style
var FooterStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(0, 2).
	MarginTop(1)
