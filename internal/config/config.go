package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"ragchat/internal/domain"
)

// CorpusConfig points at the line-delimited passage file.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig controls where and how the vector index artifact is stored.
type IndexConfig struct {
	Path              string `yaml:"path"`
	Format            string `yaml:"format"`
	BatchSize         int    `yaml:"batch_size"`
	VerifyFingerprint *bool  `yaml:"verify_fingerprint,omitempty"`
}

// Verify reports whether a loaded artifact must match the corpus fingerprint.
// Unset means true.
func (c IndexConfig) Verify() bool {
	return c.VerifyFingerprint == nil || *c.VerifyFingerprint
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKeyEnv         string `yaml:"api_key_env"`
	Model             string `yaml:"model"`
	RequestDimensions bool   `yaml:"request_dimensions"`
	TimeoutSecs       int    `yaml:"timeout_secs"`
	MaxRetries        int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChatConfig configures the completion backend.
type ChatConfig struct {
	Mode        string `yaml:"mode"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	MaxTokens   int    `yaml:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// REPLConfig configures the interactive loop.
type REPLConfig struct {
	ExitKeywords []string `yaml:"exit_keywords"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chat      ChatConfig      `yaml:"chat"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	REPL      REPLConfig      `yaml:"repl"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("%w: reading config %s: %v", domain.ErrIO, path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config %s: %v", domain.ErrInvalidArgument, path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault loads the first config found on searchPaths. When there is none
// it writes validated defaults to the per-user location and returns those. The
// returned path names the file the config came from.
func LoadDefault() (*AppConfig, string, error) {
	paths, err := searchPaths()
	if err != nil {
		return nil, "", err
	}
	for _, p := range paths {
		_, err := os.Stat(p)
		switch {
		case err == nil:
			cfg, err := Load(p)
			return cfg, p, err
		case !errors.Is(err, os.ErrNotExist):
			return nil, "", fmt.Errorf("%w: checking config %s: %v", domain.ErrIO, p, err)
		}
	}
	userPath := paths[len(paths)-1]
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save validates cfg and writes it as YAML to path, creating parent
// directories. An invalid config is never written.
func Save(path string, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating config dir for %s: %v", domain.ErrIO, path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing config %s: %v", domain.ErrIO, path, err)
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	if !slices.Contains([]string{"gob", "sqlite"}, c.Index.Format) {
		return fmt.Errorf("%w: index.format must be gob or sqlite, got %q", domain.ErrInvalidArgument, c.Index.Format)
	}
	if !slices.Contains([]string{"hashing", "openai"}, c.Embedder.Type) {
		return fmt.Errorf("%w: embedder.type must be hashing or openai, got %q", domain.ErrInvalidArgument, c.Embedder.Type)
	}
	if c.Embedder.Dimension <= 0 {
		return fmt.Errorf("%w: embedder.dimension must be positive, got %d", domain.ErrInvalidArgument, c.Embedder.Dimension)
	}
	if !slices.Contains([]string{"completion", "chat"}, c.Chat.Mode) {
		return fmt.Errorf("%w: chat.mode must be completion or chat, got %q", domain.ErrInvalidArgument, c.Chat.Mode)
	}
	if c.Chat.MaxTokens <= 0 {
		return fmt.Errorf("%w: chat.max_tokens must be positive, got %d", domain.ErrInvalidArgument, c.Chat.MaxTokens)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be at least 1, got %d", domain.ErrInvalidArgument, c.Retrieval.TopK)
	}
	return nil
}

// searchPaths lists config locations in lookup order: the working directory,
// then ragchat/config.yaml under the user config dir ($XDG_CONFIG_HOME or
// ~/.config on Linux).
func searchPaths() ([]string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("%w: locating user config dir: %v", domain.ErrIO, err)
	}
	return []string{"config.yaml", filepath.Join(dir, "ragchat", "config.yaml")}, nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "corpus.txt"
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "index.bin"
	}
	if cfg.Index.Format == "" {
		cfg.Index.Format = "gob"
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 320
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 3
		}
	}
	if cfg.Chat.Mode == "" {
		cfg.Chat.Mode = "completion"
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Chat.APIKeyEnv == "" {
		cfg.Chat.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "qwen2.5-0.5b-instruct"
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 1000
	}
	if cfg.Chat.TimeoutSecs == 0 {
		cfg.Chat.TimeoutSecs = 120
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if len(cfg.REPL.ExitKeywords) == 0 {
		cfg.REPL.ExitKeywords = []string{"exit", "quit"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
