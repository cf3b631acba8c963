package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/blockterm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIGenerateResponse(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  use ls -la \n"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxTokens: 4000}, nil)
	reply, err := p.GenerateResponse(context.Background(), "how do I list files", Options{Temperature: 0.7})
	require.NoError(t, err)

	assert.Equal(t, "use ls -la", reply)
	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	assert.Equal(t, 0.7, got.Temperature)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "how do I list files", got.Messages[0].Content)
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"non-2xx with error object", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, 401, "bad key"},
		{"non-2xx plain body", http.StatusBadGateway, `upstream down`, 502, "upstream down"},
		{"error field on 200", http.StatusOK, `{"error":{"message":"quota exceeded"}}`, 200, "quota exceeded"},
		{"unparsable payload", http.StatusOK, `<html>`, 200, "unparsable response"},
		{"no choices", http.StatusOK, `{"choices":[]}`, 200, "no completion returned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewOpenAI(Config{APIKey: "k", BaseURL: srv.URL}, nil)
			_, err := p.GenerateResponse(context.Background(), "hi", Options{})

			var perr *ProviderError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, ProviderOpenAI, perr.Provider)
			assert.Equal(t, tt.wantStatus, perr.StatusCode)
			assert.Contains(t, perr.Error(), tt.wantMsg)
		})
	}
}

func TestOpenAITransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOpenAI(Config{APIKey: "k", BaseURL: url, Timeout: time.Second}, nil)
	_, err := p.GenerateResponse(context.Background(), "hi", Options{})

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 0, perr.StatusCode)
	assert.NotNil(t, perr.Err)
}

func TestGeminiGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/"+DefaultGeminiModel+":generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello from gemini"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	p, err := NewGemini(ctx, Config{APIKey: "g-test", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	reply, err := p.GenerateResponse(ctx, "say hello", Options{MaxTokens: 100, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "hello from gemini", reply)
	assert.Equal(t, ProviderGemini, p.Info().Provider)
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	p, err := NewGemini(ctx, Config{APIKey: "bad", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = p.GenerateResponse(ctx, "hi", Options{})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ProviderGemini, perr.Provider)
}

func TestDemo(t *testing.T) {
	d := NewDemo("")
	reply, err := d.GenerateResponse(context.Background(), "User: a\nAI: b\nUser: what is go", Options{})
	require.NoError(t, err)
	assert.Contains(t, reply, `"what is go"`)
	assert.True(t, d.Info().Demo)

	long := strings.Repeat("x", 80)
	reply, _ = d.GenerateResponse(context.Background(), long, Options{})
	assert.Contains(t, reply, strings.Repeat("x", 50)+"...")
}

func TestFactory(t *testing.T) {
	f := NewFactory()
	ctx := context.Background()

	p, err := f.Create(ctx, Config{Provider: ProviderOpenAI}, nil)
	require.NoError(t, err)
	assert.True(t, p.Info().Demo, "missing key falls back to demo")

	p, err = f.Create(ctx, Config{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-4o"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Info{Provider: ProviderOpenAI, Model: "gpt-4o"}, p.Info())

	_, err = f.Create(ctx, Config{Provider: "claude", APIKey: "k"}, nil)
	assert.ErrorContains(t, err, "unsupported provider")

	assert.Equal(t, []ProviderName{ProviderDemo, ProviderGemini, ProviderOpenAI}, f.Supported())
}

type memTranscript struct {
	mu      sync.Mutex
	entries []models.TranscriptEntry
}

func (m *memTranscript) AppendTranscript(ctx context.Context, content string) (*models.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := models.TranscriptEntry{ID: content, Content: content}
	m.entries = append(m.entries, e)
	return &e, nil
}

func (m *memTranscript) RecentTranscript(ctx context.Context, limit int) ([]models.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && limit < len(m.entries) {
		return append([]models.TranscriptEntry(nil), m.entries[len(m.entries)-limit:]...), nil
	}
	return append([]models.TranscriptEntry(nil), m.entries...), nil
}

func TestConversation(t *testing.T) {
	ctx := context.Background()
	conv := NewConversation(&memTranscript{}, 2)

	prompt, err := conv.Prompt(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", prompt)

	require.NoError(t, conv.Record(ctx, "first", "one"))
	require.NoError(t, conv.Record(ctx, "second", "two"))
	require.NoError(t, conv.Record(ctx, "third", "three"))

	prompt, err = conv.Prompt(ctx, "fourth")
	require.NoError(t, err)
	assert.Equal(t, "User: second\nAI: two\nUser: third\nAI: three\nUser: fourth", prompt)
}
