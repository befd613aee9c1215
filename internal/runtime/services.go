package runtime

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// Services holds the AI backends chosen at startup and tracks whether they
// are currently reachable. Thread-safe for concurrent access.
type Services struct {
	mu sync.RWMutex

	// Config tracks capability flags
	config *domain.RuntimeConfig

	embedder  driven.Embedder
	generator driven.TextGenerator
}

// NewServices creates a new Services registry
func NewServices(config *domain.RuntimeConfig, embedder driven.Embedder, generator driven.TextGenerator) *Services {
	return &Services{
		config:    config,
		embedder:  embedder,
		generator: generator,
	}
}

// Config returns the runtime configuration
func (s *Services) Config() *domain.RuntimeConfig {
	return s.config
}

// Embedder returns the configured embedder (may be nil)
func (s *Services) Embedder() driven.Embedder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedder
}

// Generator returns the configured text generator (may be nil)
func (s *Services) Generator() driven.TextGenerator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator
}

// CheckHealth probes the embedder and the generator, updates the capability
// flags and returns the combined error of the unreachable ones.
func (s *Services) CheckHealth(ctx context.Context) (domain.Capabilities, error) {
	embedder, generator := s.Embedder(), s.Generator()

	var errs []error
	embedOK := embedder != nil
	if embedOK {
		if err := embedder.HealthCheck(ctx); err != nil {
			embedOK = false
			errs = append(errs, err)
		}
	} else {
		errs = append(errs, errors.New("no embedder configured"))
	}

	genOK := generator != nil
	if genOK {
		if err := generator.Ping(ctx); err != nil {
			genOK = false
			errs = append(errs, err)
		}
	} else {
		errs = append(errs, errors.New("no text generator configured"))
	}

	s.config.SetEmbeddingAvailable(embedOK)
	s.config.SetGeneratorAvailable(genOK)

	return s.config.Snapshot(), errors.Join(errs...)
}

// Close shuts down all services
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
		s.embedder = nil
	}
	if s.generator != nil {
		errs = append(errs, s.generator.Close())
		s.generator = nil
	}

	s.config.SetEmbeddingAvailable(false)
	s.config.SetGeneratorAvailable(false)

	return errors.Join(errs...)
}
