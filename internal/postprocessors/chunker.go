package postprocessors

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// ErrInvalidChunkConfig is returned when the chunk settings cannot satisfy
// the overlap invariant.
var ErrInvalidChunkConfig = errors.New("invalid chunk config")

// ChunkConfig configures the chunker behavior. Sizes are in characters
// (Unicode code points), not bytes.
type ChunkConfig struct {
	// MaxChars is the maximum characters per chunk
	MaxChars int

	// Overlap is the number of characters each chunk repeats from the end
	// of the previous one. Must be smaller than MaxChars.
	Overlap int

	// BoundaryWindow is how far back from the window edge the chunker looks
	// for a paragraph, sentence or word boundary
	BoundaryWindow int
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:       1000,
		Overlap:        200,
		BoundaryWindow: 100,
	}
}

// Validate checks the config can produce overlapping chunks.
func (c ChunkConfig) Validate() error {
	if c.MaxChars <= 0 {
		return fmt.Errorf("%w: max chars must be positive, got %d", ErrInvalidChunkConfig, c.MaxChars)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidChunkConfig, c.Overlap)
	}
	if c.Overlap >= c.MaxChars {
		return fmt.Errorf("%w: overlap (%d) must be less than max chars (%d)", ErrInvalidChunkConfig, c.Overlap, c.MaxChars)
	}
	if c.BoundaryWindow < 0 {
		return fmt.Errorf("%w: boundary window must not be negative, got %d", ErrInvalidChunkConfig, c.BoundaryWindow)
	}
	return nil
}

// Chunker splits content into overlapping chunks. It runs as the final
// stage, after WhitespaceNormalizer has cleaned the whole text.
//
// Every chunk is at most MaxChars long and every chunk after the first
// starts exactly Overlap characters before the end of its predecessor.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker, rejecting configs that violate the
// overlap invariant.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Config returns the chunker settings.
func (c *Chunker) Config() ChunkConfig {
	return c.config
}

// Split chunks a single text. Empty text yields no chunks.
func (c *Chunker) Split(text string) []driven.Chunk {
	if text == "" {
		return nil
	}
	return c.Process([]driven.Chunk{{Content: text}})
}

// Process splits every input chunk and renumbers the output from 0.
func (c *Chunker) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	position := 0

	for _, chunk := range chunks {
		result = append(result, c.splitContent(chunk, &position)...)
	}

	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 0.
func (c *Chunker) Order() int {
	return 0
}

func (c *Chunker) splitContent(in driven.Chunk, position *int) []driven.Chunk {
	runes := []rune(in.Content)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []driven.Chunk
	start := 0

	for {
		end := start + c.config.MaxChars
		if end >= n {
			end = n
		} else {
			end = c.findBreakPoint(runes, start, end)
		}

		chunks = append(chunks, driven.Chunk{
			Content:     string(runes[start:end]),
			Position:    *position,
			StartOffset: in.StartOffset + start,
			EndOffset:   in.StartOffset + end,
			Metadata:    in.Metadata,
		})
		*position++

		if end == n {
			break
		}

		// end > start+Overlap is guaranteed by findBreakPoint, so this advances
		start = end - c.config.Overlap
	}

	return chunks
}

// findBreakPoint returns the exclusive end of the window starting at start.
// It prefers a paragraph break, then a sentence end, then whitespace, within
// the last BoundaryWindow characters, but never returns a position that
// would stop the next window from advancing.
func (c *Chunker) findBreakPoint(runes []rune, start, maxEnd int) int {
	searchStart := maxEnd - c.config.BoundaryWindow
	if floor := start + c.config.Overlap; searchStart < floor {
		searchStart = floor
	}
	if searchStart >= maxEnd {
		return maxEnd
	}

	window := runes[searchStart:maxEnd]

	// Paragraph boundary (double newline)
	for i := len(window) - 2; i >= 0; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			return searchStart + i + 2
		}
	}

	// Sentence boundary: terminator followed by whitespace
	for i := len(window) - 2; i >= 0; i-- {
		if isSentenceEnd(window[i]) && unicode.IsSpace(window[i+1]) {
			return searchStart + i + 2
		}
	}

	// Word boundary
	for i := len(window) - 1; i >= 0; i-- {
		if unicode.IsSpace(window[i]) {
			return searchStart + i + 1
		}
	}

	return maxEnd
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
