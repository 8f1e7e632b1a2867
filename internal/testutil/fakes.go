// Package testutil holds in-process fakes shared by package tests.
package testutil

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"earnings-rag/internal/domain"
	"earnings-rag/internal/vectorstore"
)

// HashEmbedder is a deterministic bag-of-words embedder. Texts that share
// words land close to each other, which is enough for ranking tests.
type HashEmbedder struct {
	Dim   int
	calls atomic.Int64
	texts atomic.Int64
}

func (e *HashEmbedder) Name() string { return "hash" }

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := e.Dim
	if dim <= 0 {
		dim = 32
	}
	e.calls.Add(1)
	e.texts.Add(int64(len(texts)))
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v := make([]float64, dim)
		for _, w := range strings.Fields(strings.ToLower(t)) {
			w = strings.Trim(w, ".,!?;:\"'()")
			if w == "" {
				continue
			}
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[int(h.Sum32())%dim]++
		}
		out[i] = v
	}
	return out, nil
}

// Calls reports how many Embed calls were made.
func (e *HashEmbedder) Calls() int { return int(e.calls.Load()) }

// Texts reports how many texts were embedded in total.
func (e *HashEmbedder) Texts() int { return int(e.texts.Load()) }

// Generator answers with a scripted function and records every prompt.
type Generator struct {
	Respond func(system, user string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (g *Generator) ModelName() string { return "fake" }

func (g *Generator) Generate(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.prompts = append(g.prompts, user)
	g.mu.Unlock()
	if g.Respond == nil {
		return "ok", nil
	}
	return g.Respond(system, user)
}

// Prompts returns a copy of the recorded user prompts.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// RecordingStore wraps a Storage and logs each call as "op:collection".
type RecordingStore struct {
	vectorstore.Storage

	mu  sync.Mutex
	ops []string
}

func NewRecordingStore(inner vectorstore.Storage) *RecordingStore {
	return &RecordingStore{Storage: inner}
}

func (s *RecordingStore) record(op, name string) {
	s.mu.Lock()
	s.ops = append(s.ops, op+":"+name)
	s.mu.Unlock()
}

// Ops returns the recorded calls in order.
func (s *RecordingStore) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ops...)
}

// Count reports how many times op was called.
func (s *RecordingStore) Count(op string) int {
	n := 0
	for _, o := range s.Ops() {
		if strings.HasPrefix(o, op+":") {
			n++
		}
	}
	return n
}

func (s *RecordingStore) Probe(ctx context.Context, name string) (vectorstore.Status, error) {
	s.record("probe", name)
	return s.Storage.Probe(ctx, name)
}

func (s *RecordingStore) Create(ctx context.Context, name string, dimension int) error {
	s.record("create", name)
	return s.Storage.Create(ctx, name, dimension)
}

func (s *RecordingStore) Delete(ctx context.Context, name string) error {
	s.record("delete", name)
	return s.Storage.Delete(ctx, name)
}

func (s *RecordingStore) Upsert(ctx context.Context, name string, chunks []domain.Chunk, vectors [][]float64) error {
	s.record("upsert", name)
	return s.Storage.Upsert(ctx, name, chunks, vectors)
}

func (s *RecordingStore) Search(ctx context.Context, name string, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.record("search", name)
	return s.Storage.Search(ctx, name, vector, topK)
}
