package domain

import "sync"

// RuntimeConfig tracks which backends were chosen at startup and which AI
// capabilities are currently reachable. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis" or "postgres"
	IndexBackend   string // "memory", "pgvector", "chromem" or "qdrant"
	EventBackend   string // "memory", "redis" or "nats"

	// Dynamic capability flags
	embeddingAvailable bool
	generatorAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, indexBackend, eventBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		IndexBackend:   indexBackend,
		EventBackend:   eventBackend,
	}
}

// EmbeddingAvailable returns whether an embedder is configured and healthy
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// GeneratorAvailable returns whether a text generator is configured and healthy
func (c *RuntimeConfig) GeneratorAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatorAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetGeneratorAvailable updates the generator availability flag
func (c *RuntimeConfig) SetGeneratorAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generatorAvailable = available
}

// CanAnswer returns true if both halves of the query path are available
func (c *RuntimeConfig) CanAnswer() bool {
	return c.EmbeddingAvailable() && c.GeneratorAvailable()
}

// Capabilities is the serialisable view of RuntimeConfig
type Capabilities struct {
	SessionBackend     string `json:"session_backend"`
	IndexBackend       string `json:"index_backend"`
	EventBackend       string `json:"event_backend"`
	EmbeddingAvailable bool   `json:"embedding_available"`
	GeneratorAvailable bool   `json:"generator_available"`
}

// Snapshot returns the current capabilities
func (c *RuntimeConfig) Snapshot() Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Capabilities{
		SessionBackend:     c.SessionBackend,
		IndexBackend:       c.IndexBackend,
		EventBackend:       c.EventBackend,
		EmbeddingAvailable: c.embeddingAvailable,
		GeneratorAvailable: c.generatorAvailable,
	}
}
