// Package collection builds or reuses one vector collection per company and
// exposes it as a queryable index.
package collection

import (
	"context"
	"errors"
	"fmt"

	"earnings-rag/internal/common"
	"earnings-rag/internal/domain"
	"earnings-rag/internal/embedding"
	"earnings-rag/internal/llm"
	"earnings-rag/internal/loader"
	"earnings-rag/internal/transcript"
	"earnings-rag/internal/vectorstore"
)

const namePrefix = "earnings_calls_"

// Name returns the collection name for a company symbol.
func Name(symbol string) string { return namePrefix + symbol }

// Plan is what Ensure does with a collection after probing it.
type Plan int

const (
	// PlanReuse attaches to a healthy collection without embedding anything.
	PlanReuse Plan = iota
	// PlanBuild embeds the documents into a new collection.
	PlanBuild
	// PlanRebuild drops an unhealthy collection and then builds it.
	PlanRebuild
)

func (p Plan) String() string {
	switch p {
	case PlanReuse:
		return "reuse"
	case PlanBuild:
		return "build"
	case PlanRebuild:
		return "rebuild"
	default:
		return "unknown"
	}
}

// Decide maps a probed status onto a plan.
func Decide(st vectorstore.Status) Plan {
	switch st {
	case vectorstore.Healthy:
		return PlanReuse
	case vectorstore.Unhealthy:
		return PlanRebuild
	default:
		return PlanBuild
	}
}

// LoadFunc reads the transcript files of one company.
type LoadFunc func(symbol string, paths []string) ([]domain.Document, error)

// Manager owns the build-or-reuse decision for company collections.
type Manager struct {
	store    vectorstore.Storage
	embedder embedding.Embedder
	chunker  domain.Chunker
	gen      llm.Generator
	load     LoadFunc
	topK     int
	logger   *common.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTopK sets how many passages each index retrieves per question.
func WithTopK(k int) Option {
	return func(m *Manager) {
		if k > 0 {
			m.topK = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *common.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithLoader replaces the file loader.
func WithLoader(fn LoadFunc) Option {
	return func(m *Manager) { m.load = fn }
}

func NewManager(store vectorstore.Storage, embedder embedding.Embedder, chunker domain.Chunker, gen llm.Generator, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		gen:      gen,
		load:     loader.Load,
		topK:     5,
		logger:   common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Ensure probes the company's collection and reuses, builds or rebuilds it.
// Documents are only read and embedded on the build paths. Build errors are
// returned as-is; a half-written collection is left for the next run's probe.
func (m *Manager) Ensure(ctx context.Context, group transcript.Group) (*Index, error) {
	symbol, paths := group.Symbol, group.Paths
	name := Name(symbol)
	st, err := m.store.Probe(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", name, err)
	}
	plan := Decide(st)
	m.logger.Info().Str("collection", name).Str("status", st.String()).Str("plan", plan.String()).Msg("ensuring collection")

	switch plan {
	case PlanRebuild:
		if err := m.store.Delete(ctx, name); err != nil {
			return nil, fmt.Errorf("delete unhealthy %s: %w", name, err)
		}
		fallthrough
	case PlanBuild:
		n, err := m.build(ctx, name, symbol, paths)
		if err != nil {
			return nil, err
		}
		m.logger.Info().Str("collection", name).Int("chunks", n).Int("files", len(paths)).Msg("collection built")
	}

	return &Index{
		Symbol:     symbol,
		Collection: name,
		Plan:       plan,
		store:      m.store,
		embedder:   m.embedder,
		gen:        m.gen,
		topK:       m.topK,
	}, nil
}

func (m *Manager) build(ctx context.Context, name, symbol string, paths []string) (int, error) {
	docs, err := m.load(symbol, paths)
	if err != nil {
		return 0, err
	}
	var chunks []domain.Chunk
	for _, d := range docs {
		cs, err := m.chunker.Chunk(d)
		if err != nil {
			return 0, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return 0, errors.New("no text to index for " + symbol)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", name, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", name, len(vectors), len(chunks))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return 0, fmt.Errorf("embed %s: vector %d has dimension %d, want %d", name, i, len(v), dim)
		}
	}

	if err := m.store.Create(ctx, name, dim); err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	if err := m.store.Upsert(ctx, name, chunks, vectors); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", name, err)
	}
	return len(chunks), nil
}
