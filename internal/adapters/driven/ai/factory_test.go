package ai

import (
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

func TestFactory_ImplementsInterface(t *testing.T) {
	var _ driven.AIServiceFactory = NewFactory(EmbeddingOptions{}, GeneratorOptions{})
}

func TestFactory_CreateEmbedder(t *testing.T) {
	testCases := []struct {
		name     string
		opts     EmbeddingOptions
		wantType string
		wantDims int
	}{
		{"default local", EmbeddingOptions{}, "local", DefaultLocalDimensions},
		{"local custom dims", EmbeddingOptions{Provider: ProviderLocal, Dimensions: 64}, "local", 64},
		{"openai", EmbeddingOptions{Provider: ProviderOpenAI, APIKey: "sk-test"}, "openai", 1536},
		{"openai rate limited", EmbeddingOptions{Provider: ProviderOpenAI, APIKey: "sk-test", RateLimit: 5}, "ratelimited", 1536},
		{"ollama", EmbeddingOptions{Provider: ProviderOllama}, "langchain", 768},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			emb, err := NewFactory(tc.opts, GeneratorOptions{}).CreateEmbedder()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var got string
			switch emb.(type) {
			case *LocalEmbedding:
				got = "local"
			case *OpenAIEmbedding:
				got = "openai"
			case *RateLimitedEmbedding:
				got = "ratelimited"
			case *LangchainEmbedding:
				got = "langchain"
			}
			if got != tc.wantType {
				t.Errorf("expected %s embedder, got %T", tc.wantType, emb)
			}
			if emb.Dimensions() != tc.wantDims {
				t.Errorf("expected %d dimensions, got %d", tc.wantDims, emb.Dimensions())
			}
		})
	}
}

func TestFactory_CreateEmbedder_Errors(t *testing.T) {
	_, err := NewFactory(EmbeddingOptions{Provider: "voyage"}, GeneratorOptions{}).CreateEmbedder()
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown provider, got %v", err)
	}

	_, err = NewFactory(EmbeddingOptions{Provider: ProviderOpenAI}, GeneratorOptions{}).CreateEmbedder()
	if err == nil {
		t.Error("expected error for missing OpenAI key")
	}
}

func TestFactory_CreateGenerator(t *testing.T) {
	gen, err := NewFactory(EmbeddingOptions{}, GeneratorOptions{}).CreateGenerator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gen.(*ExtractiveGenerator); !ok {
		t.Errorf("expected extractive generator by default, got %T", gen)
	}

	gen, err = NewFactory(EmbeddingOptions{}, GeneratorOptions{Provider: ProviderOllama, Model: "llama3"}).CreateGenerator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.Model() != "llama3" {
		t.Errorf("expected model llama3, got %s", gen.Model())
	}

	gen, err = NewFactory(EmbeddingOptions{}, GeneratorOptions{Provider: ProviderOpenAI, APIKey: "sk-test"}).CreateGenerator()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gen.(*LangchainGenerator); !ok {
		t.Errorf("expected langchain generator, got %T", gen)
	}

	_, err = NewFactory(EmbeddingOptions{}, GeneratorOptions{Provider: "anthropic"}).CreateGenerator()
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
