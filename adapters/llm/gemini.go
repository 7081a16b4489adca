package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/satriahrh/client-talk/domain"
)

const DefaultModel = "gemini-2.5-flash-lite"

type GeminiClient struct {
	client           *genai.Client
	model            string
	structuredOutput bool
}

type GeminiOption func(*GeminiClient)

// WithModel overrides DefaultModel.
func WithModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.model = model
		}
	}
}

// WithStructuredOutput makes GenerateJSON request an application/json
// response from the model.
func WithStructuredOutput(enabled bool) GeminiOption {
	return func(g *GeminiClient) { g.structuredOutput = enabled }
}

// NewGeminiClient builds the process-wide model client. It is created once
// and injected wherever a domain.Llm is needed.
func NewGeminiClient(ctx context.Context, apiKey string, opts ...GeminiOption) (domain.Llm, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	g := &GeminiClient{client: client, model: DefaultModel}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, nil)
}

func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if g.structuredOutput {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}
	return g.generate(ctx, prompt, cfg)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	// pull out the text
	return resp.Text(), nil
}
