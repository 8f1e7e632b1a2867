package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Text(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "AAPL_Q1_2023.txt")
	b := filepath.Join(dir, "AAPL_Q2_2023.md")
	require.NoError(t, os.WriteFile(a, []byte("Gross margin was 43%."), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("# Q2\nGross margin was 44%."), 0o644))

	docs, err := Load("AAPL", []string{a, b})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "AAPL", docs[0].Symbol)
	assert.Equal(t, a, docs[0].Path)
	assert.Equal(t, "Gross margin was 43%.", docs[0].Content)
	assert.Equal(t, DocumentID(a), docs[0].ID)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("AAPL", []string{filepath.Join(t.TempDir(), "nope.txt")})
	assert.Error(t, err)
}

func TestLoad_BrokenPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "AAPL_Q1_2023.pdf")
	require.NoError(t, os.WriteFile(p, []byte("not a pdf"), 0o644))
	_, err := Load("AAPL", []string{p})
	assert.Error(t, err)
}

func TestDocumentID_Stable(t *testing.T) {
	assert.Equal(t, DocumentID("/a/b.txt"), DocumentID("/a/b.txt"))
	assert.Len(t, DocumentID("/a/b.txt"), 16)
}
