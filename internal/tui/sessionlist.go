package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/blockterm/internal/models"
)

var listTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(primaryColor)

// SessionItem implements list.Item for the session list
type SessionItem struct {
	models.SessionSummary
	Current bool
}

func (i SessionItem) FilterValue() string { return i.ID }
func (i SessionItem) Title() string {
	if i.Current {
		return i.ID + " (current)"
	}
	return i.ID
}
func (i SessionItem) Description() string {
	return fmt.Sprintf("%d blocks • started %s • saved %s",
		i.BlockCount,
		i.StartTime.Format("2006-01-02 15:04"),
		i.LastSaved.Format("2006-01-02 15:04"))
}

// SessionListModel manages the session list screen
type SessionListModel struct {
	ctx       context.Context
	src       Source
	currentID string
	list      list.Model
	sessions  []models.SessionSummary
	loading   bool
}

// NewSessionListModel creates a new session list model. currentID, when set,
// is marked in the list.
func NewSessionListModel(ctx context.Context, src Source, currentID string) *SessionListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Sessions"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &SessionListModel{
		ctx:       ctx,
		src:       src,
		currentID: currentID,
		list:      l,
	}
}

// Init loads the sessions
func (m *SessionListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions
func (m *SessionListModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// Selected returns the highlighted session, or nil.
func (m *SessionListModel) Selected() *SessionItem {
	if item := m.list.SelectedItem(); item != nil {
		s := item.(SessionItem)
		return &s
	}
	return nil
}

// Filtering reports whether the list is capturing keys for its filter.
func (m *SessionListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Refresh reloads sessions from the store
func (m *SessionListModel) Refresh() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		sessions, err := m.src.ListSessions(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return sessionsLoadedMsg{sessions}
	}
}

// Delete removes the highlighted session. The current session is kept.
func (m *SessionListModel) Delete() tea.Cmd {
	sel := m.Selected()
	if sel == nil || sel.Current {
		return nil
	}
	id := sel.ID
	return func() tea.Msg {
		ok, err := m.src.DeleteSession(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return sessionDeletedMsg{id: id, deleted: ok}
	}
}

// Update handles messages
func (m *SessionListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionsLoadedMsg:
		m.loading = false
		m.sessions = msg.sessions
		items := make([]list.Item, len(m.sessions))
		for i, s := range m.sessions {
			items[i] = SessionItem{SessionSummary: s, Current: s.ID == m.currentID}
		}
		m.list.SetItems(items)
		return m, nil

	case tea.KeyMsg:
		if m.Filtering() {
			break
		}
		switch msg.String() {
		case "r":
			return m, m.Refresh()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the session list
func (m *SessionListModel) View() string {
	if m.loading {
		return "Loading sessions..."
	}
	return m.list.View()
}
