package domain

import "context"

// Llm abstracts any text generation provider.
type Llm interface {
	// Generate takes a prompt and returns the model's reply as free text.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateJSON asks the provider for a JSON reply. Providers without a
	// structured output mode may still wrap the JSON in prose.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}
