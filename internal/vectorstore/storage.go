package vectorstore

import (
	"context"
	"errors"

	"earnings-rag/internal/domain"
)

// ErrMissingCredential is returned when a remote store is configured without an API key.
var ErrMissingCredential = errors.New("vector store API key required for non-local URL")

// Status is the observed state of one collection.
type Status int

const (
	// Absent means the collection does not exist.
	Absent Status = iota
	// Healthy means the collection is ready to query.
	Healthy
	// Unhealthy means the collection exists but must be dropped and rebuilt.
	Unhealthy
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Healthy:
		return "healthy"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Storage persists vectors in named collections and supports similarity search.
// Probe reports absence as a Status; its error is reserved for real failures.
type Storage interface {
	Probe(ctx context.Context, collection string) (Status, error)
	Create(ctx context.Context, collection string, dimension int) error
	Delete(ctx context.Context, collection string) error
	Upsert(ctx context.Context, collection string, chunks []domain.Chunk, vectors [][]float64) error
	Search(ctx context.Context, collection string, vector []float64, topK int) ([]domain.SearchResult, error)
}
