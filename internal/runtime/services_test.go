package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven/mocks"
)

// stubEmbedder overrides health and close on the shared mock
type stubEmbedder struct {
	*mocks.MockEmbedder
	healthCheckErr error
	closed         bool
}

func (m *stubEmbedder) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *stubEmbedder) Close() error {
	m.closed = true
	return nil
}

type stubGenerator struct {
	*mocks.MockTextGenerator
	closed bool
}

func (m *stubGenerator) Close() error {
	m.closed = true
	return nil
}

func newStubs() (*stubEmbedder, *stubGenerator) {
	return &stubEmbedder{MockEmbedder: mocks.NewMockEmbedder()},
		&stubGenerator{MockTextGenerator: mocks.NewMockTextGenerator("ok")}
}

func TestNewServices(t *testing.T) {
	config := domain.NewRuntimeConfig("redis", "memory", "memory")
	embedder, generator := newStubs()
	services := NewServices(config, embedder, generator)

	if services.Config() != config {
		t.Error("expected config to match")
	}
	if services.Embedder() != embedder {
		t.Error("expected the embedder to be kept")
	}
	if services.Generator() != generator {
		t.Error("expected the generator to be kept")
	}
	if config.CanAnswer() {
		t.Error("capabilities are unknown until checked")
	}
}

func TestServices_CheckHealth(t *testing.T) {
	tests := []struct {
		name          string
		embedErr      error
		pingErr       error
		wantEmbedding bool
		wantGenerator bool
	}{
		{name: "both healthy", wantEmbedding: true, wantGenerator: true},
		{name: "embedder down", embedErr: domain.ErrEmbeddingUnavailable, wantGenerator: true},
		{name: "generator down", pingErr: domain.ErrGenerationUnavailable, wantEmbedding: true},
		{name: "both down", embedErr: domain.ErrEmbeddingUnavailable, pingErr: domain.ErrGenerationUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := domain.NewRuntimeConfig("redis", "qdrant", "nats")
			embedder, generator := newStubs()
			embedder.healthCheckErr = tt.embedErr
			pingErr := tt.pingErr
			generator.PingFn = func(ctx context.Context) error { return pingErr }

			caps, err := NewServices(config, embedder, generator).CheckHealth(context.Background())

			if caps.EmbeddingAvailable != tt.wantEmbedding || caps.GeneratorAvailable != tt.wantGenerator {
				t.Errorf("unexpected capabilities %+v", caps)
			}
			if caps.IndexBackend != "qdrant" || caps.EventBackend != "nats" {
				t.Errorf("expected static backends in the snapshot, got %+v", caps)
			}
			wantErr := !tt.wantEmbedding || !tt.wantGenerator
			if (err != nil) != wantErr {
				t.Errorf("expected error=%v, got %v", wantErr, err)
			}
			if tt.embedErr != nil && !errors.Is(err, tt.embedErr) {
				t.Errorf("expected %v in %v", tt.embedErr, err)
			}
			if config.CanAnswer() != (tt.wantEmbedding && tt.wantGenerator) {
				t.Error("CanAnswer does not match the checked capabilities")
			}
		})
	}
}

func TestServices_CheckHealth_NotConfigured(t *testing.T) {
	config := domain.NewRuntimeConfig("postgres", "memory", "memory")
	caps, err := NewServices(config, nil, nil).CheckHealth(context.Background())
	if err == nil {
		t.Fatal("expected an error without backends")
	}
	if caps.EmbeddingAvailable || caps.GeneratorAvailable {
		t.Errorf("unexpected capabilities %+v", caps)
	}
}

func TestServices_Close(t *testing.T) {
	config := domain.NewRuntimeConfig("redis", "memory", "memory")
	embedder, generator := newStubs()
	services := NewServices(config, embedder, generator)

	if _, err := services.CheckHealth(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := services.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !embedder.closed || !generator.closed {
		t.Error("expected both backends to be closed")
	}
	if services.Embedder() != nil || services.Generator() != nil {
		t.Error("expected backends to be released")
	}
	if config.EmbeddingAvailable() || config.GeneratorAvailable() {
		t.Error("expected capabilities to be cleared")
	}
}
