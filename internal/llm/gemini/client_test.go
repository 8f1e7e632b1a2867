package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "", 0)
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "Revenue "}, {Text: "grew."}}},
		}},
	}
	out, err := extractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew.", out)
}

func TestExtractText_Empty(t *testing.T) {
	_, err := extractText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
	_, err = extractText(nil)
	assert.Error(t, err)
}
