package driven

// AIServiceFactory creates the embedder and text generator from configuration
type AIServiceFactory interface {
	// CreateEmbedder builds the configured embedder
	CreateEmbedder() (Embedder, error)

	// CreateGenerator builds the configured text generator
	CreateGenerator() (TextGenerator, error)
}
