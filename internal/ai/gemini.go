package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// Gemini generates replies with the Google Gen AI SDK.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, cfg Config, logger *zap.Logger) (*Gemini, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		client:    client,
		model:     model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}, nil
}

// Info implements Provider.
func (g *Gemini) Info() Info {
	return Info{Provider: ProviderGemini, Model: g.model, MaxTokens: g.maxTokens}
}

// GenerateResponse implements Provider.
func (g *Gemini) GenerateResponse(ctx context.Context, prompt string, opts Options) (string, error) {
	if g.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
	}

	temp := float32(opts.Temperature)
	gc := &genai.GenerateContentConfig{Temperature: &temp}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), gc)
	if err != nil {
		return "", &ProviderError{Provider: ProviderGemini, Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &ProviderError{Provider: ProviderGemini, Message: "no candidates returned"}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := ""
		if resp.Candidates[0] != nil {
			reason = string(resp.Candidates[0].FinishReason)
		}
		return "", &ProviderError{Provider: ProviderGemini, Message: strings.TrimSpace("empty response " + reason)}
	}

	g.logger.Debug("gemini response",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("length", len(text)),
	)
	return text, nil
}
