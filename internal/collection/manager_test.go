package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnings-rag/internal/chunker"
	"earnings-rag/internal/domain"
	"earnings-rag/internal/testutil"
	"earnings-rag/internal/transcript"
	"earnings-rag/internal/vectorstore"
	"earnings-rag/internal/vectorstore/memory"
)

func writeTranscripts(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, body := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func newTestManager(store vectorstore.Storage, emb *testutil.HashEmbedder, gen *testutil.Generator) *Manager {
	return NewManager(store, emb, chunker.NewSentenceChunker(2, 0), gen, WithTopK(2))
}

func TestName(t *testing.T) {
	assert.Equal(t, "earnings_calls_AAPL", Name("AAPL"))
}

func TestDecide(t *testing.T) {
	assert.Equal(t, PlanReuse, Decide(vectorstore.Healthy))
	assert.Equal(t, PlanBuild, Decide(vectorstore.Absent))
	assert.Equal(t, PlanRebuild, Decide(vectorstore.Unhealthy))
	assert.Equal(t, "rebuild", PlanRebuild.String())
}

func TestEnsure_BuildThenReuse(t *testing.T) {
	ctx := context.Background()
	paths := writeTranscripts(t, map[string]string{
		"AAPL_Q1_2023.txt": "Revenue grew eight percent. Services hit a record. iPhone demand was strong.",
	})
	store := testutil.NewRecordingStore(memory.NewStorage())
	emb := &testutil.HashEmbedder{}
	m := newTestManager(store, emb, &testutil.Generator{})

	ix, err := m.Ensure(ctx, transcript.Group{Symbol: "AAPL", Paths: paths})
	require.NoError(t, err)
	assert.Equal(t, PlanBuild, ix.Plan)
	assert.Equal(t, "earnings_calls_AAPL", ix.Collection)
	assert.Equal(t, 1, emb.Calls())
	assert.Equal(t, []string{"probe:earnings_calls_AAPL", "create:earnings_calls_AAPL", "upsert:earnings_calls_AAPL"}, store.Ops())

	ix, err = m.Ensure(ctx, transcript.Group{Symbol: "AAPL", Paths: paths})
	require.NoError(t, err)
	assert.Equal(t, PlanReuse, ix.Plan)
	assert.Equal(t, 1, emb.Calls(), "reuse must not embed")
	assert.Equal(t, 1, store.Count("create"))
}

func TestEnsure_ReuseDoesNotReadFiles(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStorage()
	require.NoError(t, mem.Create(ctx, Name("MSFT"), 4))

	emb := &testutil.HashEmbedder{}
	m := NewManager(mem, emb, chunker.NewSentenceChunker(2, 0), &testutil.Generator{},
		WithLoader(func(string, []string) ([]domain.Document, error) {
			return nil, errors.New("loader must not be called")
		}))

	ix, err := m.Ensure(ctx, transcript.Group{Symbol: "MSFT", Paths: []string{"/does/not/exist/MSFT_Q1_2023.txt"}})
	require.NoError(t, err)
	assert.Equal(t, PlanReuse, ix.Plan)
	assert.Zero(t, emb.Calls())
}

func TestEnsure_UnhealthyIsDeletedOnceThenBuilt(t *testing.T) {
	ctx := context.Background()
	paths := writeTranscripts(t, map[string]string{
		"NVDA_Q2_2024.txt": "Data center revenue doubled. Gaming was flat.",
	})
	mem := memory.NewStorage()
	require.NoError(t, mem.Create(ctx, Name("NVDA"), 7))
	mem.MarkUnhealthy(Name("NVDA"))

	store := testutil.NewRecordingStore(mem)
	emb := &testutil.HashEmbedder{Dim: 16}
	m := newTestManager(store, emb, &testutil.Generator{})

	ix, err := m.Ensure(ctx, transcript.Group{Symbol: "NVDA", Paths: paths})
	require.NoError(t, err)
	assert.Equal(t, PlanRebuild, ix.Plan)
	assert.Equal(t, []string{
		"probe:earnings_calls_NVDA",
		"delete:earnings_calls_NVDA",
		"create:earnings_calls_NVDA",
		"upsert:earnings_calls_NVDA",
	}, store.Ops())

	st, err := mem.Probe(ctx, Name("NVDA"))
	require.NoError(t, err)
	assert.Equal(t, vectorstore.Healthy, st)
	assert.Equal(t, 1, mem.Len(Name("NVDA")))
}

type failingProbe struct{ vectorstore.Storage }

func (failingProbe) Probe(context.Context, string) (vectorstore.Status, error) {
	return vectorstore.Absent, errors.New("connection refused")
}

func TestEnsure_ProbeErrorPropagates(t *testing.T) {
	m := newTestManager(failingProbe{memory.NewStorage()}, &testutil.HashEmbedder{}, &testutil.Generator{})
	_, err := m.Ensure(context.Background(), transcript.Group{Symbol: "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEnsure_EmptyTranscripts(t *testing.T) {
	paths := writeTranscripts(t, map[string]string{"AAPL_Q1_2023.txt": "   "})
	store := testutil.NewRecordingStore(memory.NewStorage())
	m := newTestManager(store, &testutil.HashEmbedder{}, &testutil.Generator{})

	_, err := m.Ensure(context.Background(), transcript.Group{Symbol: "AAPL", Paths: paths})
	require.Error(t, err)
	assert.Zero(t, store.Count("create"))
}

func TestIndex_Query(t *testing.T) {
	ctx := context.Background()
	paths := writeTranscripts(t, map[string]string{
		"AAPL_Q1_2023.txt": "Gross margin was forty three percent. Services revenue reached a record. " +
			"We returned cash to shareholders. Buybacks continued.",
	})
	gen := &testutil.Generator{Respond: func(_, user string) (string, error) {
		if strings.Contains(user, "Gross margin") {
			return " Gross margin was 43%. ", nil
		}
		return "unknown", nil
	}}
	m := newTestManager(memory.NewStorage(), &testutil.HashEmbedder{}, gen)
	ix, err := m.Ensure(ctx, transcript.Group{Symbol: "AAPL", Paths: paths})
	require.NoError(t, err)

	ans, err := ix.Query(ctx, "What was the gross margin?")
	require.NoError(t, err)
	assert.Equal(t, "Gross margin was 43%.", ans.Text)
	require.NotEmpty(t, ans.Sources)
	assert.Len(t, ans.Sources, 2)
	assert.Equal(t, "AAPL", ans.Sources[0].Chunk.Symbol)

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "[Source: AAPL_Q1_2023.txt]")
	assert.Contains(t, prompts[0], "Question: What was the gross margin?")
}

func TestIndex_QueryEmptyCollection(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStorage()
	require.NoError(t, mem.Create(ctx, Name("MSFT"), 32))
	gen := &testutil.Generator{}
	m := newTestManager(mem, &testutil.HashEmbedder{}, gen)

	ix, err := m.Ensure(ctx, transcript.Group{Symbol: "MSFT", Paths: nil})
	require.NoError(t, err)
	ans, err := ix.Query(ctx, "anything")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "MSFT")
	assert.Empty(t, gen.Prompts())
}

// gappyEmbedder leaves the last vector empty.
type gappyEmbedder struct{}

func (gappyEmbedder) Name() string { return "gappy" }

func (gappyEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := 0; i < len(texts)-1; i++ {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

func TestEnsure_MissingVectorRejectedBeforeCreate(t *testing.T) {
	paths := writeTranscripts(t, map[string]string{
		"AAPL_Q1_2023.txt": "Revenue grew eight percent. Services hit a record. iPhone demand was strong. Margins held.",
	})
	store := testutil.NewRecordingStore(memory.NewStorage())
	m := NewManager(store, gappyEmbedder{}, chunker.NewSentenceChunker(2, 0), &testutil.Generator{})

	_, err := m.Ensure(context.Background(), transcript.Group{Symbol: "AAPL", Paths: paths})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has dimension 0")
	assert.Zero(t, store.Count("create"))
}
