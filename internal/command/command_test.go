package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		kind Kind
		verb string
		arg  string
	}{
		{"ls -la", System, "", "ls -la"},
		{"  git status  ", System, "", "git status"},
		{"ai what is a goroutine", AI, VerbAsk, "what is a goroutine"},
		{"?how do I list files", AI, VerbAsk, "how do I list files"},
		{"ask why", AI, VerbAsk, "why"},
		{"explain tail -f", AI, VerbExplain, "tail -f"},
		{"analyze", Project, VerbAnalyze, ""},
		{"analyze deeply", Project, VerbAnalyze, "deeply"},
		{"read main.go", Project, VerbRead, "main.go"},
		{"edit notes.txt", Project, VerbEdit, "notes.txt"},
		{"project", Project, VerbProject, ""},
		{"project what does it do", Project, VerbProject, "what does it do"},
		{"!stats", Special, "stats", ""},
		{"!HELP", Special, "help", ""},
		{"!sessions all", Special, "sessions", "all"},
		// Prefix rules need the separator.
		{"aim high", System, "", "aim high"},
		{"analyzer --fast", System, "", "analyzer --fast"},
		{"reader", System, "", "reader"},
		{"projects", System, "", "projects"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := Parse(tt.line)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.verb, got.Verb)
			assert.Equal(t, tt.arg, got.Arg)
		})
	}
}

func TestAIClass(t *testing.T) {
	assert.True(t, IsAICommand("ai hello"))
	assert.True(t, IsAICommand("edit notes.txt"))
	assert.False(t, IsAICommand("ls"))
	assert.False(t, IsAICommand("!help"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "system", System.String())
	assert.Equal(t, "ai", AI.String())
	assert.Equal(t, "project", Project.String())
	assert.Equal(t, "special", Special.String())
}
