package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/blockterm/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendFiles, cfg.Session.Backend)
	assert.Equal(t, 4000, cfg.AI.MaxTokens)
	assert.Equal(t, 10, cfg.Permission.CurrentPreviewLines)
	assert.Equal(t, 15, cfg.Permission.ProposedPreviewLines)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Session, cfg.Session)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := DefaultConfig()
	cfg.Session.Backend = BackendSQLite
	cfg.AI.Provider = "demo"
	cfg.AI.Timeout = 5 * time.Second
	cfg.Executor.ShellMode = "never"
	require.NoError(t, SaveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, loaded.Session.Backend)
	assert.Equal(t, 5*time.Second, loaded.AI.Timeout)
	assert.Equal(t, "never", loaded.Executor.ShellMode)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("session:\n  backend: redis\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "invalid session backend")
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("ai: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestSaveConfigNil(t *testing.T) {
	assert.Error(t, SaveConfig(filepath.Join(t.TempDir(), FileName), nil))
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(envMap(map[string]string{
		"AI_PROVIDER":             "OpenAI",
		"OPENAI_API_KEY":          "sk-test",
		"OPENAI_MODEL":            "gpt-4o",
		"OPENAI_MAX_TOKENS":       "256",
		"GEMINI_API_KEY":          "ignored",
		"MAX_FILE_SIZE":           "2048",
		"ALLOWED_FILE_EXTENSIONS": ".go, md ,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 256, cfg.AI.MaxTokens)
	assert.Equal(t, int64(2048), cfg.Files.MaxFileSize)
	assert.Equal(t, []string{".go", "md"}, cfg.Files.AllowedExtensions)

	p := cfg.Policy()
	assert.Equal(t, []string{".go", ".md"}, p.AllowedExtensions)
	assert.True(t, p.Allows("README.MD"))
}

func TestApplyEnvGeminiKey(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{
		"GEMINI_API_KEY":    "g-key",
		"OPENAI_MAX_TOKENS": "1",
	})))
	assert.Equal(t, "g-key", cfg.AI.APIKey)
	assert.Equal(t, 4000, cfg.AI.MaxTokens)
}

func TestApplyEnvBadNumber(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnv(envMap(map[string]string{"MAX_FILE_SIZE": "big"}))
	assert.ErrorContains(t, err, "MAX_FILE_SIZE")
}

func TestProviderConfigAndRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.APIKey = "secret"
	pc := cfg.ProviderConfig()
	assert.Equal(t, ai.ProviderGemini, pc.Provider)
	assert.Equal(t, "secret", pc.APIKey)
	assert.Equal(t, 0.7, pc.Temperature)

	red := cfg.Redacted()
	assert.Equal(t, "********", red.AI.APIKey)
	assert.Equal(t, "secret", cfg.AI.APIKey)
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv("BLOCKTERM_DATA_DIR", "/tmp/from-env")
	assert.Equal(t, "/flag", ResolveDataDir("/flag"))
	assert.Equal(t, "/tmp/from-env", ResolveDataDir(""))
}
