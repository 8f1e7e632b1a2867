package cli

import (
	"context"
	"fmt"
	"time"

	"earnings-rag/internal/chunker"
	"earnings-rag/internal/collection"
	"earnings-rag/internal/common"
	"earnings-rag/internal/config"
	"earnings-rag/internal/domain"
	"earnings-rag/internal/embedding"
	embopenai "earnings-rag/internal/embedding/openai"
	"earnings-rag/internal/llm"
	"earnings-rag/internal/llm/gemini"
	llmopenai "earnings-rag/internal/llm/openai"
	"earnings-rag/internal/service"
	"earnings-rag/internal/transcript"
	"earnings-rag/internal/vectorstore"
	"earnings-rag/internal/vectorstore/memory"
	"earnings-rag/internal/vectorstore/qdrant"
)

func newParser(cfg *config.AppConfig) (*transcript.Parser, error) {
	return transcript.NewParser(cfg.Transcripts.FilenamePattern, cfg.Transcripts.Ignore)
}

// assemble builds the service from config. Credentials are passed in so no
// component reads the environment itself.
func assemble(ctx context.Context, cfg *config.AppConfig, creds config.Credentials, logger *common.Logger) (*service.Service, error) {
	parser, err := newParser(cfg)
	if err != nil {
		return nil, err
	}

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		e := cfg.Embedder.OpenAI
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           e.BaseURL,
			APIKey:            creds.EmbedderAPIKey,
			Model:             e.Model,
			Timeout:           time.Duration(e.TimeoutSecs) * time.Second,
			BatchSize:         e.BatchSize,
			MaxRetries:        e.MaxRetries,
			RequestsPerSecond: e.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "sentence", "":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var gen llm.Generator
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.OpenAI == nil {
			return nil, fmt.Errorf("openai llm config missing")
		}
		l := cfg.LLM.OpenAI
		client, err := llmopenai.NewClient(llmopenai.Config{
			BaseURL:     l.BaseURL,
			APIKey:      creds.LLMAPIKey,
			Model:       l.Model,
			Temperature: l.Temperature,
			MaxTokens:   l.MaxTokens,
			Timeout:     time.Duration(l.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai llm init failed: %w", err)
		}
		gen = client
	case "gemini":
		if cfg.LLM.Gemini == nil {
			return nil, fmt.Errorf("gemini llm config missing")
		}
		client, err := gemini.NewClient(ctx, creds.LLMAPIKey, cfg.LLM.Gemini.Model, cfg.LLM.Gemini.Temperature)
		if err != nil {
			return nil, fmt.Errorf("gemini llm init failed: %w", err)
		}
		gen = client
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory":
		st = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		qs, err := qdrant.NewStorage(qdrant.Config{
			URL:     creds.QdrantURL,
			APIKey:  creds.QdrantAPIKey,
			Timeout: time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant init failed: %w", err)
		}
		st = qs
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	logger.Debug().
		Str("embedder", emb.Name()).
		Str("llm", gen.ModelName()).
		Str("store", cfg.VectorStore.Type).
		Str("dir", cfg.Transcripts.Dir).
		Msg("components assembled")

	mgr := collection.NewManager(st, emb, ch, gen,
		collection.WithTopK(cfg.Retrieval.TopK),
		collection.WithLogger(logger),
	)
	return service.New(parser, mgr, gen, cfg.Transcripts.Dir, service.WithLogger(logger)), nil
}

// setup resolves credentials and assembles the service.
func setup(ctx context.Context, logger *common.Logger) (*service.Service, config.Credentials, error) {
	creds, err := cfg.ResolveCredentials(lookupEnv)
	if err != nil {
		return nil, config.Credentials{}, err
	}
	svc, err := assemble(ctx, cfg, creds, logger)
	if err != nil {
		return nil, config.Credentials{}, err
	}
	return svc, creds, nil
}
