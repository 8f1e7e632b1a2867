package collection

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"earnings-rag/internal/domain"
	"earnings-rag/internal/embedding"
	"earnings-rag/internal/llm"
	"earnings-rag/internal/vectorstore"
)

const answerSystemPrompt = "You answer questions about company earnings calls using only the transcript excerpts provided. " +
	"If the excerpts do not contain the answer, say so. Be concise and quote figures exactly."

// Index answers questions against one company's collection.
type Index struct {
	Symbol     string
	Collection string
	// Plan records what Ensure did to produce this index.
	Plan Plan

	store    vectorstore.Storage
	embedder embedding.Embedder
	gen      llm.Generator
	topK     int
}

// Query retrieves the closest passages and asks the generator to answer from them.
func (ix *Index) Query(ctx context.Context, question string) (domain.Answer, error) {
	vec, err := embedding.EmbedOne(ctx, ix.embedder, question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("embedding question: %w", err)
	}
	results, err := ix.store.Search(ctx, ix.Collection, vec, ix.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("searching %s: %w", ix.Collection, err)
	}
	if len(results) == 0 {
		return domain.Answer{Text: "No relevant passages found in the " + ix.Symbol + " transcripts."}, nil
	}

	text, err := ix.gen.Generate(ctx, answerSystemPrompt, buildPrompt(ix.Symbol, question, results))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	return domain.Answer{Text: strings.TrimSpace(text), Sources: results}, nil
}

func buildPrompt(symbol, question string, results []domain.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Company: ")
	sb.WriteString(symbol)
	sb.WriteString("\n\nContext:\n")
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Source: %s]\n%s", filepath.Base(r.Chunk.Path), r.Chunk.Text)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
