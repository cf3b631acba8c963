// Package config loads blockterm settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/blockterm/internal/ai"
	"github.com/fentz26/blockterm/internal/connectors/localexec"
	"github.com/fentz26/blockterm/internal/files"
	"github.com/fentz26/blockterm/internal/permission"
	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the data directory.
const FileName = "config.yaml"

// Session backends.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// Config holds blockterm configuration.
type Config struct {
	// DataDir holds sessions, the database and logs. Empty means ~/.blockterm.
	DataDir string `yaml:"data_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel   string           `yaml:"log_level"`
	Session    SessionConfig    `yaml:"session"`
	AI         AIConfig         `yaml:"ai"`
	Files      FilesConfig      `yaml:"files"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Permission PermissionConfig `yaml:"permission"`
}

// SessionConfig selects where session snapshots are kept.
type SessionConfig struct {
	// Backend is files (one JSON document per session) or sqlite.
	Backend string `yaml:"backend"`
}

// AIConfig configures the AI provider and conversation context.
type AIConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model,omitempty"`
	APIKey      string        `yaml:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	// ContextEntries is how many past exchanges are sent with each prompt.
	ContextEntries int `yaml:"context_entries"`
}

// FilesConfig bounds which files AI commands may read and write.
type FilesConfig struct {
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// ExecutorConfig controls how system commands are launched.
type ExecutorConfig struct {
	// ShellMode is auto, always or never.
	ShellMode string `yaml:"shell_mode"`
	// Shell overrides the shell argv, e.g. ["/bin/bash", "-c"].
	Shell []string `yaml:"shell,omitempty"`
}

// PermissionConfig sizes the edit preview.
type PermissionConfig struct {
	CurrentPreviewLines  int `yaml:"current_preview_lines"`
	ProposedPreviewLines int `yaml:"proposed_preview_lines"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Session:  SessionConfig{Backend: BackendFiles},
		AI: AIConfig{
			Provider:       string(ai.ProviderGemini),
			MaxTokens:      4000,
			Temperature:    0.7,
			Timeout:        60 * time.Second,
			ContextEntries: 20,
		},
		Files: FilesConfig{
			MaxFileSize:       files.DefaultMaxFileSize,
			AllowedExtensions: append([]string(nil), files.DefaultExtensions...),
		},
		Executor: ExecutorConfig{ShellMode: string(localexec.ShellAuto)},
		Permission: PermissionConfig{
			CurrentPreviewLines:  permission.DefaultCurrentLines,
			ProposedPreviewLines: permission.DefaultProposedLines,
		},
	}
}

// DefaultDataDir returns ~/.blockterm, or .blockterm when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".blockterm"
	}
	return filepath.Join(home, ".blockterm")
}

// ResolveDataDir picks the data directory: flag, then BLOCKTERM_DATA_DIR, then
// the default.
func ResolveDataDir(flag string) string {
	if flag != "" {
		return flag
	}
	if dir := os.Getenv("BLOCKTERM_DATA_DIR"); dir != "" {
		return dir
	}
	return DefaultDataDir()
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied after the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// applyEnv overlays the environment variables understood by blockterm. The
// API key and model variables apply to the provider they name.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("AI_PROVIDER"); ok && v != "" {
		c.AI.Provider = strings.ToLower(v)
	}
	prefix := strings.ToUpper(c.AI.Provider)
	if v, ok := lookup(prefix + "_API_KEY"); ok && v != "" {
		c.AI.APIKey = v
	}
	if v, ok := lookup(prefix + "_MODEL"); ok && v != "" {
		c.AI.Model = v
	}
	if v, ok := lookup("OPENAI_MAX_TOKENS"); ok && v != "" && c.AI.Provider == string(ai.ProviderOpenAI) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OPENAI_MAX_TOKENS: %w", err)
		}
		c.AI.MaxTokens = n
	}
	if v, ok := lookup("MAX_FILE_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE: %w", err)
		}
		c.Files.MaxFileSize = n
	}
	if v, ok := lookup("ALLOWED_FILE_EXTENSIONS"); ok && v != "" {
		var exts []string
		for _, ext := range strings.Split(v, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				exts = append(exts, ext)
			}
		}
		c.Files.AllowedExtensions = exts
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendFiles, BackendSQLite:
	default:
		return fmt.Errorf("invalid session backend %q, must be: files or sqlite", c.Session.Backend)
	}

	switch ai.ProviderName(c.AI.Provider) {
	case ai.ProviderGemini, ai.ProviderOpenAI, ai.ProviderDemo:
	default:
		return fmt.Errorf("invalid ai provider %q, must be: gemini, openai or demo", c.AI.Provider)
	}
	if c.AI.MaxTokens < 1 {
		return fmt.Errorf("ai.max_tokens must be at least 1")
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be between 0 and 2")
	}
	if c.AI.ContextEntries < 0 {
		return fmt.Errorf("ai.context_entries cannot be negative")
	}

	if c.Files.MaxFileSize < 1 {
		return fmt.Errorf("files.max_file_size must be at least 1")
	}
	if len(c.Files.AllowedExtensions) == 0 {
		return fmt.Errorf("files.allowed_extensions cannot be empty")
	}

	switch localexec.ShellMode(c.Executor.ShellMode) {
	case localexec.ShellAuto, localexec.ShellAlways, localexec.ShellNever:
	default:
		return fmt.Errorf("invalid executor shell_mode %q, must be: auto, always or never", c.Executor.ShellMode)
	}

	if c.Permission.CurrentPreviewLines < 1 || c.Permission.ProposedPreviewLines < 1 {
		return fmt.Errorf("permission preview lines must be at least 1")
	}
	return nil
}

// ProviderConfig maps the AI section onto the provider factory's config.
func (c *Config) ProviderConfig() ai.Config {
	return ai.Config{
		Provider:    ai.ProviderName(c.AI.Provider),
		APIKey:      c.AI.APIKey,
		Model:       c.AI.Model,
		BaseURL:     c.AI.BaseURL,
		MaxTokens:   c.AI.MaxTokens,
		Temperature: c.AI.Temperature,
		Timeout:     c.AI.Timeout,
	}
}

// Policy returns the file policy for AI file commands.
func (c *Config) Policy() files.Policy {
	exts := make([]string, len(c.Files.AllowedExtensions))
	for i, ext := range c.Files.AllowedExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[i] = ext
	}
	return files.Policy{AllowedExtensions: exts, MaxFileSize: c.Files.MaxFileSize}
}

// ExecutorOptions returns the executor options for the configured shell.
func (c *Config) ExecutorOptions() []localexec.Option {
	opts := []localexec.Option{localexec.WithShellMode(localexec.ShellMode(c.Executor.ShellMode))}
	if len(c.Executor.Shell) > 0 {
		opts = append(opts, localexec.WithShell(c.Executor.Shell))
	}
	return opts
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.AI.APIKey != "" {
		cp.AI.APIKey = "********"
	}
	return &cp
}
