// Package tui provides the interactive session browser.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

type mode int

const (
	modeList mode = iota
	modeDetail
)

// chrome is the number of lines taken by the header, status bar and help.
const chrome = 5

// App is the session browser model.
type App struct {
	ctx     context.Context
	list    *SessionListModel
	detail  *SessionDetailModel
	mode    mode
	message string
	width   int
	height  int
}

// New creates a browser over src. currentID marks the live session, if any.
func New(ctx context.Context, src Source, currentID string) *App {
	return &App{
		ctx:    ctx,
		list:   NewSessionListModel(ctx, src, currentID),
		detail: NewSessionDetailModel(ctx, src),
		mode:   modeList,
	}
}

// Run starts the browser and blocks until the user quits or ctx is done.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.list.Init()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.mode == modeList && a.list.Filtering() {
			break
		}
		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "esc":
			if a.mode == modeDetail {
				a.mode = modeList
				return a, nil
			}
		case "enter":
			if a.mode == modeList {
				sel := a.list.Selected()
				if sel == nil {
					return a, nil
				}
				a.mode = modeDetail
				a.message = ""
				a.detail.SetSession(sel.ID)
				return a, a.detail.Refresh()
			}
		case "d":
			if a.mode == modeList {
				if sel := a.list.Selected(); sel != nil && sel.Current {
					a.message = "The current session cannot be deleted"
					return a, nil
				}
				return a, a.list.Delete()
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.list.SetSize(msg.Width, msg.Height-chrome)
		a.detail.SetSize(msg.Width, msg.Height-chrome)
		return a, nil

	case sessionsLoadedMsg:
		_, cmd := a.list.Update(msg)
		return a, cmd

	case snapshotLoadedMsg:
		_, cmd := a.detail.Update(msg)
		return a, cmd

	case sessionDeletedMsg:
		if msg.deleted {
			a.message = "✓ Deleted session " + msg.id
		} else {
			a.message = "Session " + msg.id + " not found"
		}
		return a, a.list.Refresh()

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		a.list.loading = false
		a.detail.loading = false
		return a, nil
	}

	var cmd tea.Cmd
	if a.mode == modeDetail {
		_, cmd = a.detail.Update(msg)
	} else {
		_, cmd = a.list.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("blockterm sessions"))
	b.WriteString("\n\n")

	if a.mode == modeDetail {
		b.WriteString(a.detail.View())
	} else {
		b.WriteString(a.list.View())
	}
	b.WriteString("\n")

	if a.message != "" {
		b.WriteString(statusBarStyle.Render(a.message))
		b.WriteString("\n")
	}

	help := "enter: open • d: delete • r: refresh • /: filter • q: quit"
	if a.mode == modeDetail {
		help = "j/k: scroll • g: top • r: reload • esc: back • q: quit"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

// Mode returns the name of the visible screen.
func (a *App) Mode() string {
	if a.mode == modeDetail {
		return "detail"
	}
	return "list"
}

// Message returns the status bar text.
func (a *App) Message() string { return a.message }
