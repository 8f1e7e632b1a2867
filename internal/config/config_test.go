package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnings-rag/internal/transcript"
)

func env(vars map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "earnings_calls"), cfg.Transcripts.Dir)
	assert.Equal(t, transcript.DefaultPattern, cfg.Transcripts.FilenamePattern)
	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "earnings-rag.log", cfg.Logging.File)
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transcripts:
  dir: /srv/calls
  ignore: [".DS_Store"]
llm:
  provider: gemini
vector_store:
  type: memory
retrieval:
  top_k: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/calls", cfg.Transcripts.Dir)
	assert.Equal(t, []string{".DS_Store"}, cfg.Transcripts.Ignore)
	require.NotNil(t, cfg.LLM.Gemini)
	assert.Equal(t, "GEMINI_API_KEY", cfg.LLM.Gemini.APIKeyEnv)
	assert.Nil(t, cfg.LLM.OpenAI)
	assert.Nil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 5, cfg.Chunker.SentencesPerChunk)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transcripts: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 9
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestResolveCredentials(t *testing.T) {
	cfg := defaultConfig()

	_, err := cfg.ResolveCredentials(env(nil))
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	creds, err := cfg.ResolveCredentials(env(map[string]string{"OPENAI_API_KEY": "sk-test"}))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", creds.EmbedderAPIKey)
	assert.Equal(t, "sk-test", creds.LLMAPIKey)
	assert.Equal(t, "http://localhost:6333", creds.QdrantURL)
	assert.Empty(t, creds.QdrantAPIKey)

	creds, err = cfg.ResolveCredentials(env(map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"QDRANT_URL":     "https://cluster.qdrant.io",
		"QDRANT_API_KEY": "qk",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://cluster.qdrant.io", creds.QdrantURL)
	assert.Equal(t, "qk", creds.QdrantAPIKey)
}

func TestResolveCredentials_GeminiNeedsItsOwnKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM = LLMConfig{Provider: "gemini"}
	applyConfigDefaults(cfg)

	_, err := cfg.ResolveCredentials(env(map[string]string{"OPENAI_API_KEY": "sk"}))
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	creds, err := cfg.ResolveCredentials(env(map[string]string{"OPENAI_API_KEY": "sk", "GEMINI_API_KEY": "g"}))
	require.NoError(t, err)
	assert.Equal(t, "g", creds.LLMAPIKey)
}

func TestFingerprint(t *testing.T) {
	a := defaultConfig()
	b := defaultConfig()
	creds := Credentials{QdrantURL: "http://localhost:6333"}
	assert.Equal(t, a.Fingerprint(creds), b.Fingerprint(creds))

	withKey := creds
	withKey.QdrantAPIKey = "secret"
	assert.Equal(t, a.Fingerprint(creds), a.Fingerprint(withKey), "secrets do not change the fingerprint")

	b.Transcripts.Dir = "/elsewhere"
	assert.NotEqual(t, a.Fingerprint(creds), b.Fingerprint(creds))

	remote := Credentials{QdrantURL: "https://cluster.qdrant.io"}
	assert.NotEqual(t, a.Fingerprint(creds), a.Fingerprint(remote))
}
