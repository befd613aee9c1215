package ai

import (
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Provider names
const (
	ProviderLocal      = "local"
	ProviderExtractive = "extractive"
	ProviderOpenAI     = "openai"
	ProviderOllama     = "ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// EmbeddingOptions selects and configures the embedder
type EmbeddingOptions struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	RateLimit  float64 // requests per second, 0 disables
	RateBurst  int
}

// GeneratorOptions selects and configures the text generator
type GeneratorOptions struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// Factory creates AI services based on configuration
type Factory struct {
	embedding EmbeddingOptions
	generator GeneratorOptions
}

// NewFactory creates a new AI service factory
func NewFactory(embedding EmbeddingOptions, generator GeneratorOptions) *Factory {
	return &Factory{embedding: embedding, generator: generator}
}

// CreateEmbedder creates the configured embedder
func (f *Factory) CreateEmbedder() (driven.Embedder, error) {
	opts := f.embedding

	var (
		embedder driven.Embedder
		err      error
	)

	switch opts.Provider {
	case "", ProviderLocal:
		// Local hashing never needs throttling
		return NewLocalEmbedding(opts.Dimensions), nil
	case ProviderOpenAI:
		embedder, err = NewOpenAIEmbedding(opts.APIKey, opts.Model, opts.BaseURL, opts.Dimensions)
	case ProviderOllama:
		embedder, err = newOllamaEmbedding(opts)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if opts.RateLimit > 0 {
		embedder = NewRateLimitedEmbedding(embedder, opts.RateLimit, opts.RateBurst)
	}
	return embedder, nil
}

// CreateGenerator creates the configured text generator
func (f *Factory) CreateGenerator() (driven.TextGenerator, error) {
	opts := f.generator

	switch opts.Provider {
	case "", ProviderExtractive:
		return NewExtractiveGenerator(), nil
	case ProviderOpenAI:
		if opts.Model == "" {
			opts.Model = "gpt-4o-mini"
		}
		clientOpts := []openai.Option{
			openai.WithModel(opts.Model),
			openai.WithToken(opts.APIKey),
		}
		if opts.BaseURL != "" {
			clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
		}
		llm, err := openai.New(clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating OpenAI client: %w", err)
		}
		return NewLangchainGenerator(llm, opts.Model), nil
	case ProviderOllama:
		if opts.Model == "" {
			opts.Model = "mistral"
		}
		if opts.BaseURL == "" {
			opts.BaseURL = defaultOllamaURL
		}
		llm, err := ollama.New(ollama.WithModel(opts.Model), ollama.WithServerURL(opts.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("creating Ollama client: %w", err)
		}
		return NewLangchainGenerator(llm, opts.Model), nil
	default:
		return nil, fmt.Errorf("%w: unknown generator provider %q", domain.ErrInvalidInput, opts.Provider)
	}
}

func newOllamaEmbedding(opts EmbeddingOptions) (driven.Embedder, error) {
	if opts.Model == "" {
		opts.Model = "nomic-embed-text"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultOllamaURL
	}
	if opts.Dimensions <= 0 {
		opts.Dimensions = 768
	}

	client, err := ollama.New(ollama.WithModel(opts.Model), ollama.WithServerURL(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("creating Ollama client: %w", err)
	}
	return NewLangchainEmbedding(client, opts.Model, opts.Dimensions, 32)
}
