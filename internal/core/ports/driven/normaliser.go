package driven

// Normaliser pulls plain text out of one family of document formats.
type Normaliser interface {
	// Normalise returns the text of content. Unreadable payloads return an
	// error wrapping domain.ErrMalformedDocument.
	Normalise(content []byte, mimeType string) (string, error)

	// SupportedTypes may hold exact types or wildcards such as "text/*"
	SupportedTypes() []string

	// Priority breaks ties between matching normalisers; the highest wins.
	// Format readers (PDF, HTML, Markdown) sit at 50 and above, the plain
	// text fallback below 10.
	Priority() int
}

// NormaliserRegistry picks a Normaliser by MIME type.
type NormaliserRegistry interface {
	// Get returns nil when nothing handles mimeType
	Get(mimeType string) Normaliser

	// GetAll lists every match, highest priority first
	GetAll(mimeType string) []Normaliser

	Register(normaliser Normaliser)

	// List returns the MIME types with at least one normaliser
	List() []string

	// Extract normalises with the best match. An unsupported type or a
	// document with no text wraps domain.ErrMalformedDocument.
	Extract(content []byte, mimeType string) (string, error)
}

// PostProcessor is one stage of chunking. The first stage receives the
// whole document as a single Chunk and later stages reshape the slice.
type PostProcessor interface {
	Process(chunks []Chunk) []Chunk
	Name() string

	// Order positions the stage; lower runs first
	Order() int
}

// Chunk is a span of normalised text. Offsets are rune offsets into the
// document, EndOffset exclusive.
type Chunk struct {
	Content     string
	Position    int
	StartOffset int
	EndOffset   int
	Metadata    map[string]string
}

// PostProcessorPipeline runs PostProcessors in Order. Text that cleans up
// to nothing yields no chunks.
type PostProcessorPipeline interface {
	Process(content string) []Chunk
	Add(processor PostProcessor)

	// List names the stages in run order
	List() []string
}
