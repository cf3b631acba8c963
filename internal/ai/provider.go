// Package ai provides the text-completion providers behind AI commands.
package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProviderName identifies a provider implementation.
type ProviderName string

const (
	ProviderGemini ProviderName = "gemini"
	ProviderOpenAI ProviderName = "openai"
	ProviderDemo   ProviderName = "demo"
)

// Options controls a single generation request.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Info describes the active provider for display.
type Info struct {
	Provider  ProviderName
	Model     string
	MaxTokens int
	Demo      bool
}

// Provider turns a prompt into a reply.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, opts Options) (string, error)
	Info() Info
}

// ProviderError reports any provider failure: transport, non-2xx status,
// unparsable payload or an error object in the reply.
type ProviderError struct {
	Provider   ProviderName
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s API error", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Config selects and configures a provider.
type Config struct {
	Provider    ProviderName
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Options returns the per-request options configured for this provider.
func (c Config) Options() Options {
	return Options{MaxTokens: c.MaxTokens, Temperature: c.Temperature}
}

// Factory builds providers from registered constructors.
type Factory struct {
	constructors map[ProviderName]func(context.Context, Config, *zap.Logger) (Provider, error)
}

// NewFactory returns a factory with the built-in providers registered.
func NewFactory() *Factory {
	f := &Factory{constructors: make(map[ProviderName]func(context.Context, Config, *zap.Logger) (Provider, error))}
	f.Register(ProviderGemini, func(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
		return NewGemini(ctx, cfg, logger)
	})
	f.Register(ProviderOpenAI, func(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
		return NewOpenAI(cfg, logger), nil
	})
	f.Register(ProviderDemo, func(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
		return NewDemo(cfg.Model), nil
	})
	return f
}

// Register adds or replaces a provider constructor.
func (f *Factory) Register(name ProviderName, constructor func(context.Context, Config, *zap.Logger) (Provider, error)) {
	f.constructors[name] = constructor
}

// Supported lists the registered provider names.
func (f *Factory) Supported() []ProviderName {
	names := make([]ProviderName, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Create builds the configured provider. A real provider without an API key
// falls back to demo mode.
func (f *Factory) Create(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Provider
	if name == "" {
		name = ProviderGemini
	}
	if name != ProviderDemo && cfg.APIKey == "" {
		logger.Info("no API key configured, using demo mode", zap.String("provider", string(name)))
		name = ProviderDemo
	}

	constructor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return constructor(ctx, cfg, logger)
}
