package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const call = `Good morning everyone and thank you for joining the call.
Revenue grew eight percent to a record ninety billion dollars this quarter.
Services revenue reached a record high and services margin expanded.
Operator, please go ahead with the next question.
We expect revenue growth to continue and services margin to stay strong.`

func TestHighlights_PrefersContentOverPleasantries(t *testing.T) {
	got := NewExtractive().Highlights(call, 2)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.NotContains(t, s, "Good morning")
		assert.NotContains(t, s, "Operator")
	}
}

func TestHighlights_KeepsOriginalOrder(t *testing.T) {
	got := NewExtractive().Highlights(call, 3)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "Revenue grew")
	assert.Contains(t, got[2], "We expect")
}

func TestHighlights_ShortOrEmptyText(t *testing.T) {
	s := NewExtractive()
	assert.Nil(t, s.Highlights("   ", 2))
	assert.Equal(t, []string{"Q1 recap"}, s.Highlights("Q1 recap", 2))
}
