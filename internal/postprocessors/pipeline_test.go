package postprocessors

import (
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

type recordingProcessor struct {
	name  string
	order int
	calls *[]string
}

func (r *recordingProcessor) Process(chunks []driven.Chunk) []driven.Chunk {
	*r.calls = append(*r.calls, r.name)
	return chunks
}

func (r *recordingProcessor) Name() string { return r.name }
func (r *recordingProcessor) Order() int   { return r.order }

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if len(p.List()) != 0 {
		t.Errorf("expected empty processors, got %d", len(p.List()))
	}
}

func TestNewDefaultPipeline(t *testing.T) {
	p, err := NewDefaultPipeline(DefaultChunkConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := p.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 processors, got %v", names)
	}
	if names[0] != "whitespace-normalizer" || names[1] != "chunker" {
		t.Errorf("expected normalisation before the final chunker, got %v", names)
	}
}

func TestNewDefaultPipeline_InvalidConfig(t *testing.T) {
	if _, err := NewDefaultPipeline(ChunkConfig{MaxChars: 10, Overlap: 10}); err == nil {
		t.Fatal("expected config error")
	}
}

func TestPipeline_Process_EmptyContent(t *testing.T) {
	p, _ := NewDefaultPipeline(DefaultChunkConfig())

	if chunks := p.Process(""); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
	if chunks := p.Process(" \n\t \r\n"); len(chunks) != 0 {
		t.Errorf("expected whitespace-only content to yield no chunks, got %d", len(chunks))
	}
}

func TestPipeline_Process_OrderedProcessors(t *testing.T) {
	var calls []string
	p := NewPipeline()
	p.Add(&recordingProcessor{name: "second", order: 10, calls: &calls})
	p.Add(&recordingProcessor{name: "first", order: -5, calls: &calls})

	p.Process("content")

	if strings.Join(calls, ",") != "first,second" {
		t.Errorf("expected first,second, got %v", calls)
	}
}

func TestPipeline_Process_NormalizesBeforeChunking(t *testing.T) {
	p, _ := NewDefaultPipeline(ChunkConfig{MaxChars: 12, Overlap: 4})

	chunks := p.Process("  alpha    beta\r\n\r\n\r\n\r\ngamma   delta  ")

	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	joined := chunks[0].Content
	if strings.Contains(joined, "  ") || strings.Contains(joined, "\r") {
		t.Errorf("expected normalized content, got %q", joined)
	}
	for i := 0; i < len(chunks)-1; i++ {
		a, b := []rune(chunks[i].Content), []rune(chunks[i+1].Content)
		if string(a[len(a)-4:]) != string(b[:4]) {
			t.Errorf("overlap broken between chunk %d and %d", i, i+1)
		}
	}
}

func TestWhitespaceNormalizer(t *testing.T) {
	w := NewWhitespaceNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"windows line endings", "hello\r\nworld", "hello\nworld"},
		{"old mac line endings", "hello\rworld", "hello\nworld"},
		{"collapses spaces", "hello    world", "hello world"},
		{"tabs", "a\t\tb", "a b"},
		{"blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"trims", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := w.Process([]driven.Chunk{{Content: tt.input}})
			if len(result) != 1 {
				t.Fatalf("expected 1 chunk, got %d", len(result))
			}
			if result[0].Content != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result[0].Content)
			}
			if result[0].EndOffset != len([]rune(tt.expected)) {
				t.Errorf("expected end offset %d, got %d", len([]rune(tt.expected)), result[0].EndOffset)
			}
		})
	}
}

func TestWhitespaceNormalizer_RemovesEmptyChunks(t *testing.T) {
	w := NewWhitespaceNormalizer()
	result := w.Process([]driven.Chunk{{Content: "   "}, {Content: "kept"}})
	if len(result) != 1 || result[0].Content != "kept" {
		t.Errorf("expected only the non-empty chunk, got %+v", result)
	}
	if w.Order() >= 0 {
		t.Errorf("expected normalizer to run before the chunker")
	}
}
