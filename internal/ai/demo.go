package ai

import (
	"context"
	"fmt"
	"strings"
)

const demoPromptPreview = 50

// Demo answers without any backend. It is used when no API key is configured.
type Demo struct {
	model string
}

// NewDemo creates a demo provider.
func NewDemo(model string) *Demo {
	if model == "" {
		model = "demo"
	}
	return &Demo{model: model}
}

// Info implements Provider.
func (d *Demo) Info() Info {
	return Info{Provider: ProviderDemo, Model: d.model, Demo: true}
}

// GenerateResponse implements Provider. The reply quotes the last user line
// of the prompt so conversation context does not drown it out.
func (d *Demo) GenerateResponse(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	question := prompt
	if i := strings.LastIndex(prompt, "User: "); i >= 0 {
		question = prompt[i+len("User: "):]
	}
	question = strings.TrimSpace(question)
	if r := []rune(question); len(r) > demoPromptPreview {
		question = string(r[:demoPromptPreview]) + "..."
	}
	return fmt.Sprintf("Demo mode: I understand you're asking about %q. Set an API key (GEMINI_API_KEY or OPENAI_API_KEY) to get real answers.", question), nil
}
