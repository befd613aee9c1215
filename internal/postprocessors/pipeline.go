package postprocessors

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline keeps its stages sorted by Order as they are added, so
// Process never reorders. Safe for concurrent use.
type Pipeline struct {
	mu     sync.RWMutex
	stages []driven.PostProcessor
}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// NewDefaultPipeline cleans whitespace over the whole text, then chunks it.
func NewDefaultPipeline(config ChunkConfig) (*Pipeline, error) {
	chunker, err := NewChunker(config)
	if err != nil {
		return nil, err
	}
	p := NewPipeline()
	p.Add(NewWhitespaceNormalizer())
	p.Add(chunker)
	return p, nil
}

// Add inserts processor after every stage with an Order not above its own.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	at := sort.Search(len(p.stages), func(i int) bool {
		return p.stages[i].Order() > processor.Order()
	})
	p.stages = append(p.stages, nil)
	copy(p.stages[at+1:], p.stages[at:])
	p.stages[at] = processor
}

// Process feeds content through every stage. Offsets in the result count
// runes of the cleaned text.
func (p *Pipeline) Process(content string) []driven.Chunk {
	if content == "" {
		return nil
	}

	p.mu.RLock()
	stages := append([]driven.PostProcessor(nil), p.stages...)
	p.mu.RUnlock()

	chunks := []driven.Chunk{{
		Content:   content,
		EndOffset: utf8.RuneCountInString(content),
	}}
	for _, stage := range stages {
		if chunks = stage.Process(chunks); len(chunks) == 0 {
			return nil
		}
	}
	return chunks
}

func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.Name())
	}
	return names
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// WhitespaceNormalizer tidies line endings and spacing. It has to see the
// whole text: cleaning chunks after the split would break their overlap.
type WhitespaceNormalizer struct{}

var _ driven.PostProcessor = (*WhitespaceNormalizer)(nil)

func NewWhitespaceNormalizer() *WhitespaceNormalizer {
	return &WhitespaceNormalizer{}
}

// Process collapses spaces within lines, keeps at most one blank line
// between paragraphs and drops chunks that end up empty.
func (w *WhitespaceNormalizer) Process(chunks []driven.Chunk) []driven.Chunk {
	out := make([]driven.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		text := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(chunk.Content)

		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = strings.Join(strings.Fields(line), " ")
		}
		text = strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
		if text == "" {
			continue
		}

		chunk.Content = text
		chunk.EndOffset = chunk.StartOffset + utf8.RuneCountInString(text)
		out = append(out, chunk)
	}
	return out
}

func (w *WhitespaceNormalizer) Name() string {
	return "whitespace-normalizer"
}

// Order puts it ahead of the chunker
func (w *WhitespaceNormalizer) Order() int {
	return -10
}
