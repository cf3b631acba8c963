package permission

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/blockterm/internal/files"
	"github.com/fentz26/blockterm/internal/models"
)

const (
	menuPrompt        = "Choose [a]ccept, [r]eject, [p]review, [c]ancel: "
	previewMenuPrompt = "Choose [a]ccept or [r]eject: "
)

var (
	warningColor = lipgloss.Color("#F59E0B")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	cyanColor    = lipgloss.Color("#06B6D4")

	requestTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(warningColor)
	labelStyle        = lipgloss.NewStyle().Foreground(cyanColor).Bold(true)
	mutedStyle        = lipgloss.NewStyle().Foreground(mutedColor)
	addStyle          = lipgloss.NewStyle().Foreground(successColor)
	delStyle          = lipgloss.NewStyle().Foreground(errorColor)

	contentBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

func (g *Gate) renderRequest(c *models.PendingChange) {
	var b strings.Builder
	b.WriteString("\n" + requestTitleStyle.Render("File edit request") + "\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("File:"), c.FilePath)
	if c.Context.Reason != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Reason:"), c.Context.Reason)
	}

	if c.Context.CurrentContent != "" {
		fmt.Fprintf(&b, "\n%s\n", labelStyle.Render(fmt.Sprintf("Current content (first %d lines):", g.currentLines)))
		b.WriteString(contentBoxStyle.Render(Excerpt(c.Context.CurrentContent, g.currentLines)) + "\n")
	}

	fmt.Fprintf(&b, "\n%s\n", labelStyle.Render(fmt.Sprintf("Proposed content (first %d lines):", g.proposedLines)))
	b.WriteString(contentBoxStyle.Render(Excerpt(c.ProposedContent, g.proposedLines)) + "\n")

	if d := c.Context.Diff; d != nil {
		fmt.Fprintf(&b, "\n%s %s %s\n",
			labelStyle.Render("Changes:"),
			addStyle.Render(fmt.Sprintf("+%d lines", d.Additions)),
			delStyle.Render(fmt.Sprintf("-%d lines", d.Deletions)),
		)
	}
	fmt.Fprintln(g.out, b.String())
}

func (g *Gate) renderFull(c *models.PendingChange) {
	lines := files.SplitLines(c.ProposedContent)
	width := len(fmt.Sprint(len(lines)))

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", labelStyle.Render("Full proposed content:"))
	for i, line := range lines {
		fmt.Fprintf(&b, "%s %s\n", mutedStyle.Render(fmt.Sprintf("%*d", width, i+1)), line)
	}
	fmt.Fprintln(g.out, b.String())
}

func (g *Gate) renderInvalid(previewed bool) {
	msg := "Invalid choice. Enter a, r, p or c."
	if previewed {
		msg = "Invalid choice. Enter a or r."
	}
	fmt.Fprintln(g.out, delStyle.Render(msg))
}

// Excerpt returns at most n lines of content, followed by a
// "... (N more lines)" marker when lines were omitted.
func Excerpt(content string, n int) string {
	lines := files.SplitLines(content)
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + "\n" + fmt.Sprintf("... (%d more lines)", len(lines)-n)
}
