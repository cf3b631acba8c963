package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fentz26/blockterm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	sessions []models.SessionSummary
	snaps    map[string]*models.Snapshot
	deleted  []string
	loadErr  error
}

func (f *fakeSource) ListSessions(context.Context) ([]models.SessionSummary, error) {
	var out []models.SessionSummary
	for _, s := range f.sessions {
		if !f.isDeleted(s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSource) LoadSnapshot(_ context.Context, id string) (*models.Snapshot, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	snap, ok := f.snaps[id]
	if !ok {
		return nil, errors.New("snapshot not found")
	}
	return snap, nil
}

func (f *fakeSource) DeleteSession(_ context.Context, id string) (bool, error) {
	if f.isDeleted(id) {
		return false, nil
	}
	f.deleted = append(f.deleted, id)
	return true, nil
}

func (f *fakeSource) isDeleted(id string) bool {
	for _, d := range f.deleted {
		if d == id {
			return true
		}
	}
	return false
}

func newFakeSource() *fakeSource {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	exit := 2
	return &fakeSource{
		sessions: []models.SessionSummary{
			{ID: "session_2024_03_01_11_00", StartTime: start.Add(time.Hour), LastSaved: start.Add(time.Hour), BlockCount: 0},
			{ID: "session_2024_03_01_10_00", StartTime: start, LastSaved: start.Add(time.Minute), BlockCount: 2},
		},
		snaps: map[string]*models.Snapshot{
			"session_2024_03_01_11_00": {ID: "session_2024_03_01_11_00", StartTime: start.Add(time.Hour).UnixMilli(), LastSaved: start.Add(time.Hour).UnixMilli()},
			"session_2024_03_01_10_00": {
				ID:        "session_2024_03_01_10_00",
				StartTime: start.UnixMilli(),
				LastSaved: start.Add(time.Minute).UnixMilli(),
				Blocks: []models.BlockRecord{
					{ID: "b1", Input: "ls -la", Output: "go.mod\nmain.go\n", Status: models.BlockStatusCompleted, Duration: 12},
					{ID: "b2", Input: "false", Error: "boom", Status: models.BlockStatusError, ExitCode: &exit},
				},
			},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msg to the app and then runs each returned command once,
// feeding its result back.
func drive(t *testing.T, a *App, msg tea.Msg) {
	t.Helper()
	_, cmd := a.Update(msg)
	if cmd == nil {
		return
	}
	if next := cmd(); next != nil {
		a.Update(next)
	}
}

func loaded(t *testing.T, src *fakeSource, current string) *App {
	t.Helper()
	a := New(context.Background(), src, current)
	cmd := a.Init()
	require.NotNil(t, cmd)
	a.Update(cmd())
	return a
}

func TestApp_ListsSessions(t *testing.T) {
	a := loaded(t, newFakeSource(), "session_2024_03_01_11_00")

	view := a.View()
	assert.Equal(t, "list", a.Mode())
	assert.Contains(t, view, "session_2024_03_01_11_00 (current)")
	assert.Contains(t, view, "session_2024_03_01_10_00")
}

func TestApp_OpenAndCloseSession(t *testing.T) {
	src := newFakeSource()
	a := loaded(t, src, "")

	// Move to the second, populated session.
	drive(t, a, key("j"))
	drive(t, a, key("enter"))
	require.Equal(t, "detail", a.Mode())

	view := a.View()
	assert.Contains(t, view, "Session session_2024_03_01_10_00")
	assert.Contains(t, view, "ls -la")
	assert.Contains(t, view, "go.mod main.go")
	assert.Contains(t, view, "exit 2")
	assert.Contains(t, view, "boom")

	drive(t, a, key("esc"))
	assert.Equal(t, "list", a.Mode())
}

func TestApp_EmptySessionDetail(t *testing.T) {
	a := loaded(t, newFakeSource(), "")

	drive(t, a, key("enter"))
	assert.Contains(t, a.View(), "No blocks in this session.")
}

func TestApp_DeleteSession(t *testing.T) {
	src := newFakeSource()
	a := loaded(t, src, "")

	_, cmd := a.Update(key("d"))
	require.NotNil(t, cmd)
	_, refresh := a.Update(cmd())
	assert.Equal(t, []string{"session_2024_03_01_11_00"}, src.deleted)
	assert.Equal(t, "✓ Deleted session session_2024_03_01_11_00", a.Message())

	require.NotNil(t, refresh)
	a.Update(refresh())
	items := a.list.list.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "session_2024_03_01_10_00", items[0].(SessionItem).ID)
}

func TestApp_CurrentSessionIsNotDeleted(t *testing.T) {
	src := newFakeSource()
	a := loaded(t, src, "session_2024_03_01_11_00")

	_, cmd := a.Update(key("d"))
	assert.Nil(t, cmd)
	assert.Empty(t, src.deleted)
	assert.Equal(t, "The current session cannot be deleted", a.Message())
}

func TestApp_LoadErrorShown(t *testing.T) {
	src := newFakeSource()
	src.loadErr = errors.New("disk on fire")
	a := loaded(t, src, "")

	drive(t, a, key("enter"))
	assert.Equal(t, "Error: disk on fire", a.Message())
	assert.Contains(t, a.View(), "Error: disk on fire")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "héllo w...", truncate("héllo world", 10))
}
