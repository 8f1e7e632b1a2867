package domain

// Document is one transcript file loaded into memory.
type Document struct {
	ID      string
	Path    string
	Symbol  string
	Content string
}

// Chunk is a semantically meaningful part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Path       string
	Symbol     string
	Text       string
	Index      int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Answer is a synthesized response together with the passages it was built from.
type Answer struct {
	Text    string
	Sources []SearchResult
}
