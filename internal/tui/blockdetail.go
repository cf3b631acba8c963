package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/blockterm/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor)

	inputStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyanColor)

	statusPending   = lipgloss.NewStyle().Foreground(mutedColor)
	statusActive    = lipgloss.NewStyle().Foreground(warningColor)
	statusCompleted = lipgloss.NewStyle().Foreground(successColor)
	statusFailed    = lipgloss.NewStyle().Foreground(errorColor)
)

const (
	outputPreview = 120
	errorPreview  = 80
)

// SessionDetailModel shows the blocks of one stored session.
type SessionDetailModel struct {
	ctx     context.Context
	src     Source
	id      string
	snap    *models.Snapshot
	height  int
	loading bool
	scroll  int
}

// NewSessionDetailModel creates a new session detail model
func NewSessionDetailModel(ctx context.Context, src Source) *SessionDetailModel {
	return &SessionDetailModel{ctx: ctx, src: src, height: 20}
}

// Init implements tea.Model
func (m *SessionDetailModel) Init() tea.Cmd {
	return nil
}

// SetSession selects the session to display
func (m *SessionDetailModel) SetSession(id string) {
	m.id = id
	m.snap = nil
	m.scroll = 0
}

// SetSize sets the dimensions
func (m *SessionDetailModel) SetSize(_, h int) {
	m.height = h
}

// Refresh loads the snapshot
func (m *SessionDetailModel) Refresh() tea.Cmd {
	m.loading = true
	id := m.id
	return func() tea.Msg {
		snap, err := m.src.LoadSnapshot(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return snapshotLoadedMsg{snap}
	}
}

// Update handles messages
func (m *SessionDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotLoadedMsg:
		m.loading = false
		m.snap = msg.snap
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.scroll++
		case "k", "up":
			if m.scroll > 0 {
				m.scroll--
			}
		case "g", "home":
			m.scroll = 0
		case "r":
			return m, m.Refresh()
		}
	}
	return m, nil
}

// View renders the session's blocks
func (m *SessionDetailModel) View() string {
	if m.loading || m.snap == nil {
		return "Loading session..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Session " + m.snap.ID))
	b.WriteString("\n\n")
	b.WriteString(renderField("Started", time.UnixMilli(m.snap.StartTime).Format("2006-01-02 15:04:05")))
	b.WriteString(renderField("Last saved", time.UnixMilli(m.snap.LastSaved).Format("2006-01-02 15:04:05")))
	b.WriteString(renderField("Blocks", fmt.Sprintf("%d", len(m.snap.Blocks))))
	b.WriteString("\n")

	if len(m.snap.Blocks) == 0 {
		b.WriteString(labelStyle.Render("No blocks in this session."))
		b.WriteString("\n")
	}
	for i, rec := range m.snap.Blocks {
		b.WriteString(renderBlock(i+1, rec))
	}

	// Apply scroll
	lines := strings.Split(b.String(), "\n")
	if m.scroll >= len(lines) {
		m.scroll = len(lines) - 1
	}
	if m.scroll < 0 {
		m.scroll = 0
	}
	visible := lines[m.scroll:]
	if m.height > 0 && len(visible) > m.height {
		visible = visible[:m.height]
	}
	return strings.Join(visible, "\n")
}

func renderBlock(n int, rec models.BlockRecord) string {
	var b strings.Builder
	kind := "sys"
	if rec.IsAICommand {
		kind = "ai"
	}
	fmt.Fprintf(&b, "%3d. %s %s %s", n, formatStatus(rec.Status), labelStyle.Render("["+kind+"]"), inputStyle.Render(rec.Input))
	if rec.Duration > 0 {
		b.WriteString(labelStyle.Render(" (" + models.FormatDuration(time.Duration(rec.Duration)*time.Millisecond) + ")"))
	}
	if rec.ExitCode != nil && *rec.ExitCode != 0 {
		b.WriteString(statusFailed.Render(fmt.Sprintf(" exit %d", *rec.ExitCode)))
	}
	b.WriteString("\n")
	if out := strings.TrimSpace(rec.Output); out != "" {
		fmt.Fprintf(&b, "     → %s\n", truncate(out, outputPreview))
	}
	if errText := strings.TrimSpace(rec.Error); errText != "" {
		fmt.Fprintf(&b, "     %s\n", statusFailed.Render("! "+truncate(errText, errorPreview)))
	}
	return b.String()
}

func formatStatus(status models.BlockStatus) string {
	switch status {
	case models.BlockStatusPending:
		return statusPending.Render("○")
	case models.BlockStatusProcessing, models.BlockStatusExecuting:
		return statusActive.Render("●")
	case models.BlockStatusCompleted:
		return statusCompleted.Render("✓")
	case models.BlockStatusError:
		return statusFailed.Render("✗")
	default:
		return string(status)
	}
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
