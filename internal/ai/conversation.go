package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/fentz26/blockterm/internal/models"
)

// TranscriptStore persists conversation exchanges.
type TranscriptStore interface {
	AppendTranscript(ctx context.Context, content string) (*models.TranscriptEntry, error)
	RecentTranscript(ctx context.Context, limit int) ([]models.TranscriptEntry, error)
}

// Conversation builds prompts from the stored transcript and records replies.
type Conversation struct {
	store TranscriptStore
	limit int
}

// NewConversation creates a Conversation that uses up to limit of the most
// recent exchanges as context. A limit of zero or less uses all of them.
func NewConversation(store TranscriptStore, limit int) *Conversation {
	return &Conversation{store: store, limit: limit}
}

// Context returns the stored exchanges joined by newlines.
func (c *Conversation) Context(ctx context.Context) (string, error) {
	if c == nil || c.store == nil {
		return "", nil
	}
	entries, err := c.store.RecentTranscript(ctx, c.limit)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Content
	}
	return strings.Join(parts, "\n"), nil
}

// Prompt prefixes the user text with the conversation so far.
func (c *Conversation) Prompt(ctx context.Context, text string) (string, error) {
	history, err := c.Context(ctx)
	if err != nil {
		return "", err
	}
	if history == "" {
		return text, nil
	}
	return history + "\nUser: " + text, nil
}

// Record appends an exchange to the transcript.
func (c *Conversation) Record(ctx context.Context, text, reply string) error {
	if c == nil || c.store == nil {
		return nil
	}
	if _, err := c.store.AppendTranscript(ctx, "User: "+text+"\nAI: "+reply); err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}
