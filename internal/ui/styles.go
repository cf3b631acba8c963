// Package ui renders the block terminal: prompt, block results, live output and
// the reports behind special commands.
package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")
	blueColor    = lipgloss.Color("#3B82F6")
)

const ruleWidth = 78

// styles are bound to a renderer so color detection follows the output writer.
type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	text    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	info    lipgloss.Style
	accent  lipgloss.Style

	promptTime lipgloss.Style
	promptDir  lipgloss.Style
	promptAI   lipgloss.Style
	promptMark lipgloss.Style

	box lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(primaryColor),
		heading: r.NewStyle().Bold(true).Foreground(cyanColor),
		label:   r.NewStyle().Foreground(fgColor),
		muted:   r.NewStyle().Foreground(mutedColor),
		text:    r.NewStyle().Foreground(fgColor),
		success: r.NewStyle().Foreground(successColor),
		warning: r.NewStyle().Foreground(warningColor),
		err:     r.NewStyle().Foreground(errorColor),
		info:    r.NewStyle().Foreground(blueColor),
		accent:  r.NewStyle().Foreground(cyanColor),

		promptTime: r.NewStyle().Foreground(blueColor),
		promptDir:  r.NewStyle().Foreground(successColor),
		promptAI:   r.NewStyle().Foreground(cyanColor),
		promptMark: r.NewStyle().Foreground(warningColor).Bold(true),

		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1),
	}
}
