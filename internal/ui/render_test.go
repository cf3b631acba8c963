package ui

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/blockterm/internal/ai"
	"github.com/fentz26/blockterm/internal/connectors"
	"github.com/fentz26/blockterm/internal/files"
	"github.com/fentz26/blockterm/internal/models"
	"github.com/fentz26/blockterm/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer() (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRenderer(out, errOut), out, errOut
}

func finished(t *testing.T, input string, status models.BlockStatus, output, errText string, code *int) *models.Block {
	t.Helper()
	b := models.NewBlock(input)
	b.AppendOutput(output)
	b.AppendError(errText)
	if code != nil {
		b.SetExitCode(*code)
	}
	require.NoError(t, b.SetStatus(status))
	return b
}

func TestPrompt(t *testing.T) {
	r, _, _ := newTestRenderer()
	p := r.Prompt(time.Date(2024, 1, 2, 9, 5, 7, 0, time.Local), "blockterm", ai.ProviderDemo)
	assert.Equal(t, "[09:05:07] blockterm (demo) ❯ ", p)
}

func TestResultShowsOutputOnce(t *testing.T) {
	r, out, _ := newTestRenderer()
	b := finished(t, "ai hello", models.BlockStatusCompleted, "Hi there", "", nil)

	r.Result(b, false)
	assert.Contains(t, out.String(), "Command completed successfully")
	assert.Contains(t, out.String(), "Hi there")

	out.Reset()
	r.Result(b, true)
	assert.NotContains(t, out.String(), "Hi there")
}

func TestResultFailure(t *testing.T) {
	r, out, _ := newTestRenderer()
	code := 2
	b := finished(t, "ls nope", models.BlockStatusError, "", "no such file", &code)

	r.Result(b, true)
	assert.Contains(t, out.String(), "Command failed")
	assert.Contains(t, out.String(), "no such file")
	assert.Contains(t, out.String(), "Exit code: 2")
}

func TestLiveSinkSplitsStreams(t *testing.T) {
	r, out, errOut := newTestRenderer()
	sink := r.LiveSink()
	sink.WriteChunk(connectors.Chunk{Stream: connectors.Stdout, Data: []byte("a\n")})
	sink.WriteChunk(connectors.Chunk{Stream: connectors.Stderr, Data: []byte("oops\n")})

	assert.Equal(t, "a\n", out.String())
	assert.Equal(t, "oops\n", errOut.String())
}

func TestHistoryKeepsLastEntries(t *testing.T) {
	r, out, _ := newTestRenderer()
	r.History(nil)
	assert.Contains(t, out.String(), "No commands in history yet.")

	out.Reset()
	var hist []string
	for i := 1; i <= 25; i++ {
		hist = append(hist, "cmd"+strings.Repeat("x", i%3))
	}
	r.History(hist)
	assert.NotContains(t, out.String(), "  5:")
	assert.Contains(t, out.String(), "  6:")
	assert.Contains(t, out.String(), " 25:")
}

func TestStatsAndSessions(t *testing.T) {
	r, out, _ := newTestRenderer()
	r.Stats(session.Stats{SessionID: "session_2024_01_02_09_05", TotalBlocks: 3, ErrorBlocks: 1, SuccessRate: 66.7, TotalDuration: 2105 * time.Millisecond})
	assert.Contains(t, out.String(), "session_2024_01_02_09_05")
	assert.Contains(t, out.String(), "66.7%")
	assert.Contains(t, out.String(), "2.1s")

	out.Reset()
	r.Sessions([]models.SessionSummary{
		{ID: "session_b", BlockCount: 2, LastSaved: time.Now()},
		{ID: "session_a", BlockCount: 1, LastSaved: time.Now()},
	}, "session_a")
	lines := strings.Split(out.String(), "\n")
	var marked []string
	for _, l := range lines {
		if strings.Contains(l, "(current)") {
			marked = append(marked, l)
		}
	}
	require.Len(t, marked, 1)
	assert.Contains(t, marked[0], "session_a")
}

func TestAIInfo(t *testing.T) {
	r, out, _ := newTestRenderer()
	r.AIInfo(ai.Info{Provider: ai.ProviderDemo, Model: "demo", Demo: true}, files.Policy{AllowedExtensions: []string{".go"}, MaxFileSize: 2048})
	assert.Contains(t, out.String(), "DEMO (demo mode)")
	assert.Contains(t, out.String(), "2.0 KB")
}

func TestConsoleReadLine(t *testing.T) {
	var prompts bytes.Buffer
	c := NewConsole(strings.NewReader("first\r\nsecond"), &prompts)

	line, err := c.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = c.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	_, err = c.ReadLine("> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > ", prompts.String())
}
