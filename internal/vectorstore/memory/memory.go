package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"earnings-rag/internal/domain"
	"earnings-rag/internal/vectorstore"
)

// Storage is an in-process vector store with named collections and
// brute-force cosine similarity. Contents do not survive a restart.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	unhealthy bool
	vectors   [][]float64
	chunks    []domain.Chunk
}

func NewStorage() *Storage {
	return &Storage{collections: make(map[string]*collection)}
}

func (s *Storage) Probe(_ context.Context, name string) (vectorstore.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	switch {
	case !ok:
		return vectorstore.Absent, nil
	case c.unhealthy:
		return vectorstore.Unhealthy, nil
	default:
		return vectorstore.Healthy, nil
	}
}

func (s *Storage) Create(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		if c.dimension != dimension {
			return fmt.Errorf("collection %s exists with dimension %d", name, c.dimension)
		}
		return nil
	}
	s.collections[name] = &collection{dimension: dimension}
	return nil
}

func (s *Storage) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// MarkUnhealthy flags an existing collection so the next Probe reports Unhealthy.
func (s *Storage) MarkUnhealthy(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		c.unhealthy = true
	}
}

func (s *Storage) Upsert(_ context.Context, name string, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %s not found", name)
	}
	for _, v := range vectors {
		if len(v) != c.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	c.chunks = append(c.chunks, chunks...)
	c.vectors = append(c.vectors, vectors...)
	return nil
}

func (s *Storage) Search(_ context.Context, name string, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, len(c.vectors))
	for i := range c.vectors {
		results[i] = domain.SearchResult{Chunk: c.chunks[i], Score: cosine(c.vectors[i], vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Len reports the number of stored vectors in a collection.
func (s *Storage) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.vectors)
	}
	return 0
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
