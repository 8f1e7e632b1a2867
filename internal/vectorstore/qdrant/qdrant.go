package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"earnings-rag/internal/domain"
	"earnings-rag/internal/vectorstore"
)

// LocalURL is the default address of a Qdrant instance on this machine.
const LocalURL = "http://localhost:6333"

const upsertBatchSize = 128

// Storage is a minimal REST client to Qdrant.
// Collections use cosine distance.
type Storage struct {
	url    string
	apiKey string
	client *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// NewStorage validates the configuration and returns a client. A URL that
// does not point at the local machine must come with an API key.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.URL == "" {
		cfg.URL = LocalURL
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid qdrant url %q", cfg.URL)
	}
	if cfg.APIKey == "" && !isLocalHost(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrMissingCredential, cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func isLocalHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Probe reads the collection info; 404 means Absent and only a green status is Healthy.
func (s *Storage) Probe(ctx context.Context, collection string) (vectorstore.Status, error) {
	var resp struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	code, err := s.do(ctx, http.MethodGet, s.collectionURL(collection), nil, &resp)
	if code == http.StatusNotFound {
		return vectorstore.Absent, nil
	}
	if err != nil {
		return vectorstore.Absent, err
	}
	if resp.Result.Status == "green" {
		return vectorstore.Healthy, nil
	}
	return vectorstore.Unhealthy, nil
}

func (s *Storage) Create(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL(collection), body, nil)
	return err
}

// Delete drops the collection. Deleting a missing collection is not an error.
func (s *Storage) Delete(ctx context.Context, collection string) error {
	code, err := s.do(ctx, http.MethodDelete, s.collectionURL(collection), nil, nil)
	if code == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *Storage) Upsert(ctx context.Context, collection string, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, map[string]any{
				"id":     PointID(chunks[i].ChunkID),
				"vector": vectors[i],
				"payload": map[string]any{
					"document_id": chunks[i].DocumentID,
					"chunk_id":    chunks[i].ChunkID,
					"path":        chunks[i].Path,
					"symbol":      chunks[i].Symbol,
					"index":       chunks[i].Index,
					"text":        chunks[i].Text,
				},
			})
		}
		body := map[string]any{"points": points}
		if _, err := s.do(ctx, http.MethodPut, s.collectionURL(collection)+"/points?wait=true", body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, collection string, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL(collection)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		chunk := domain.Chunk{}
		if v, ok := r.Payload["document_id"].(string); ok {
			chunk.DocumentID = v
		}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			chunk.ChunkID = v
		}
		if v, ok := r.Payload["path"].(string); ok {
			chunk.Path = v
		}
		if v, ok := r.Payload["symbol"].(string); ok {
			chunk.Symbol = v
		}
		if v, ok := r.Payload["index"].(float64); ok {
			chunk.Index = int(v)
		}
		if v, ok := r.Payload["text"].(string); ok {
			chunk.Text = v
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: r.Score})
	}
	return results, nil
}

// PointID maps a chunk id onto the UUID space Qdrant accepts for point ids.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (s *Storage) collectionURL(collection string) string {
	return fmt.Sprintf("%s/collections/%s", s.url, url.PathEscape(collection))
}

// do sends a JSON request and decodes the response into out when non-nil.
// The HTTP status code is returned alongside any error so callers can
// branch on 404.
func (s *Storage) do(ctx context.Context, method, endpoint string, body any, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, endpoint, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
