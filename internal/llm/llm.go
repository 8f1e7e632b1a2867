// Package llm defines the text generation port used for answer synthesis
// and question decomposition.
package llm

import "context"

// Generator produces text from a system prompt and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ModelName() string
}
