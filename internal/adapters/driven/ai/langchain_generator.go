package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// Ensure LangchainGenerator implements TextGenerator
var _ driven.TextGenerator = (*LangchainGenerator)(nil)

// LangchainGenerator produces answers with a langchaingo chat model
type LangchainGenerator struct {
	llm         llms.Model
	model       string
	temperature float64
	maxTokens   int
}

// NewLangchainGenerator wraps a langchaingo model
func NewLangchainGenerator(llm llms.Model, model string) *LangchainGenerator {
	return &LangchainGenerator{
		llm:         llm,
		model:       model,
		temperature: 0.1,
		maxTokens:   1024,
	}
}

func (g *LangchainGenerator) Generate(ctx context.Context, prompt driven.Prompt) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.System),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.User),
	}

	resp, err := g.llm.GenerateContent(ctx, content,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrGenerationUnavailable)
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (g *LangchainGenerator) Model() string {
	return g.model
}

// Ping reports whether a model is configured. Chat models have no cheap
// liveness probe, so reachability surfaces on the first Generate.
func (g *LangchainGenerator) Ping(ctx context.Context) error {
	if g.llm == nil {
		return fmt.Errorf("%w: no model configured", domain.ErrGenerationUnavailable)
	}
	return nil
}

func (g *LangchainGenerator) Close() error {
	return nil
}
