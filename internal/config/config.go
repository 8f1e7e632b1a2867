package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"earnings-rag/internal/transcript"
)

// ErrMissingAPIKey is returned when a provider that needs a key has none.
var ErrMissingAPIKey = errors.New("missing API key")

// TranscriptsConfig locates the earnings call files and describes their names.
type TranscriptsConfig struct {
	Dir             string   `yaml:"dir"`
	FilenamePattern string   `yaml:"filename_pattern"`
	Ignore          []string `yaml:"ignore,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OpenAILLMConfig configures an OpenAI-compatible chat completions endpoint.
type OpenAILLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// LLMConfig selects the generator used for routing and answer synthesis.
type LLMConfig struct {
	Provider string           `yaml:"provider"`
	OpenAI   *OpenAILLMConfig `yaml:"openai,omitempty"`
	Gemini   *GeminiConfig    `yaml:"gemini,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
// APIKey is used as-is when set; otherwise the key is read from APIKeyEnv.
// URLEnv, when set in the environment, overrides URL.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	URLEnv      string `yaml:"url_env"`
	APIKey      string `yaml:"api_key,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Transcripts TranscriptsConfig `yaml:"transcripts"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/earnings-rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/earnings-rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "earnings-rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "openai"},
		LLM:         LLMConfig{Provider: "openai"},
		Chunker:     ChunkerConfig{Type: "sentence", SentencesPerChunk: 5, OverlapSentences: 1},
		VectorStore: VectorStoreConfig{Type: "qdrant"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Transcripts.Dir == "" {
		cfg.Transcripts.Dir = filepath.Join("data", "earnings_calls")
	}
	if cfg.Transcripts.FilenamePattern == "" {
		cfg.Transcripts.FilenamePattern = transcript.DefaultPattern
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "sentence"
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "earnings-rag.log"
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		e := cfg.Embedder.OpenAI
		if e.BaseURL == "" {
			e.BaseURL = "https://api.openai.com/v1"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.Model == "" {
			e.Model = "text-embedding-3-small"
		}
		if e.TimeoutSecs == 0 {
			e.TimeoutSecs = 30
		}
		if e.BatchSize == 0 {
			e.BatchSize = 32
		}
		if e.MaxRetries == 0 {
			e.MaxRetries = 3
		}
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAILLMConfig{}
		}
		l := cfg.LLM.OpenAI
		if l.BaseURL == "" {
			l.BaseURL = "https://api.openai.com/v1"
		}
		if l.APIKeyEnv == "" {
			l.APIKeyEnv = "OPENAI_API_KEY"
		}
		if l.Model == "" {
			l.Model = "gpt-4o-mini"
		}
		if l.TimeoutSecs == 0 {
			l.TimeoutSecs = 60
		}
	case "gemini":
		if cfg.LLM.Gemini == nil {
			cfg.LLM.Gemini = &GeminiConfig{}
		}
		g := cfg.LLM.Gemini
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "GEMINI_API_KEY"
		}
		if g.Model == "" {
			g.Model = "gemini-2.5-flash"
		}
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.URLEnv == "" {
			q.URLEnv = "QDRANT_URL"
		}
		if q.APIKeyEnv == "" {
			q.APIKeyEnv = "QDRANT_API_KEY"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 30
		}
	}
}

// Credentials are the secrets and endpoints resolved once at startup and
// passed explicitly to the components that need them.
type Credentials struct {
	EmbedderAPIKey string
	LLMAPIKey      string
	QdrantURL      string
	QdrantAPIKey   string
}

// LookupFunc reads a variable by name, like os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// ResolveCredentials reads every configured key through lookup. Providers
// that require a key fail with ErrMissingAPIKey. The Qdrant key is optional
// here; the store itself rejects a remote URL without one.
func (c *AppConfig) ResolveCredentials(lookup LookupFunc) (Credentials, error) {
	get := func(name string) string {
		if name == "" {
			return ""
		}
		v, _ := lookup(name)
		return v
	}
	var creds Credentials

	if c.Embedder.Type == "openai" && c.Embedder.OpenAI != nil {
		creds.EmbedderAPIKey = get(c.Embedder.OpenAI.APIKeyEnv)
		if creds.EmbedderAPIKey == "" {
			return Credentials{}, fmt.Errorf("embedder: %w (set %s)", ErrMissingAPIKey, c.Embedder.OpenAI.APIKeyEnv)
		}
	}

	switch {
	case c.LLM.Provider == "openai" && c.LLM.OpenAI != nil:
		creds.LLMAPIKey = get(c.LLM.OpenAI.APIKeyEnv)
		if creds.LLMAPIKey == "" {
			return Credentials{}, fmt.Errorf("llm: %w (set %s)", ErrMissingAPIKey, c.LLM.OpenAI.APIKeyEnv)
		}
	case c.LLM.Provider == "gemini" && c.LLM.Gemini != nil:
		creds.LLMAPIKey = get(c.LLM.Gemini.APIKeyEnv)
		if creds.LLMAPIKey == "" {
			return Credentials{}, fmt.Errorf("llm: %w (set %s)", ErrMissingAPIKey, c.LLM.Gemini.APIKeyEnv)
		}
	}

	if q := c.VectorStore.Qdrant; c.VectorStore.Type == "qdrant" && q != nil {
		creds.QdrantURL = q.URL
		if v := get(q.URLEnv); v != "" {
			creds.QdrantURL = v
		}
		creds.QdrantAPIKey = q.APIKey
		if creds.QdrantAPIKey == "" {
			creds.QdrantAPIKey = get(q.APIKeyEnv)
		}
	}
	return creds, nil
}

// Fingerprint identifies everything that determines what a built engine
// contains. Two configs with the same fingerprint can share one engine.
// Secrets are left out.
func (c *AppConfig) Fingerprint(creds Credentials) string {
	key := struct {
		Transcripts TranscriptsConfig
		Embedder    string
		LLM         string
		Chunker     ChunkerConfig
		Store       string
		TopK        int
	}{
		Transcripts: c.Transcripts,
		Embedder:    c.embedderModel(),
		LLM:         c.llmModel(),
		Chunker:     c.Chunker,
		Store:       c.VectorStore.Type + "|" + creds.QdrantURL,
		TopK:        c.Retrieval.TopK,
	}
	data, _ := json.Marshal(key)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func (c *AppConfig) embedderModel() string {
	if c.Embedder.OpenAI != nil {
		return c.Embedder.Type + ":" + c.Embedder.OpenAI.BaseURL + ":" + c.Embedder.OpenAI.Model
	}
	return c.Embedder.Type
}

func (c *AppConfig) llmModel() string {
	switch {
	case c.LLM.Provider == "openai" && c.LLM.OpenAI != nil:
		return "openai:" + c.LLM.OpenAI.BaseURL + ":" + c.LLM.OpenAI.Model
	case c.LLM.Provider == "gemini" && c.LLM.Gemini != nil:
		return "gemini:" + c.LLM.Gemini.Model
	}
	return c.LLM.Provider
}
