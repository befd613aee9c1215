package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-corpus/internal/metrics"
)

func newTestQueryService(t *testing.T, answer string) (*pipelineFixture, *mocks.MockTextGenerator, *metrics.Metrics, driving.QueryService) {
	t.Helper()
	f := newPipelineFixture(t, 0)
	generator := mocks.NewMockTextGenerator(answer)
	m := metrics.New()
	svc := NewQueryService(QueryServiceConfig{
		Retriever:   newTestRetriever(f.docs, f.index, f.embedder),
		Synthesizer: NewSynthesizer(SynthesizerConfig{Generator: generator}),
		DefaultTopK: 2,
		Metrics:     m,
	})
	return f, generator, m, svc
}

func TestQueryService_Ask(t *testing.T) {
	f, generator, m, svc := newTestQueryService(t, "Alpha comes first.")
	ctx := context.Background()

	doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, doc.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	result, err := svc.Ask(ctx, "owner-1", driving.QueryRequest{Question: "alpha beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "Alpha comes first." {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if len(result.Sources) != 2 {
		t.Errorf("expected the default of 2 sources, got %d", len(result.Sources))
	}
	if result.Took <= 0 {
		t.Error("expected duration to be recorded")
	}
	if len(generator.Prompts()) != 1 {
		t.Errorf("expected one generation, got %d", len(generator.Prompts()))
	}
	if n := testutil.CollectAndCount(m.QueryDuration); n != 1 {
		t.Errorf("expected query duration to be observed, got %d series", n)
	}

	one := 1
	result, err = svc.Ask(ctx, "owner-1", driving.QueryRequest{Question: "alpha", TopK: &one})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(result.Sources))
	}
}

func TestQueryService_Ask_Errors(t *testing.T) {
	zero := 0

	tests := []struct {
		name    string
		seed    bool
		req     driving.QueryRequest
		answer  string
		wantErr error
		code    domain.ErrorCode
	}{
		{
			name:    "empty corpus",
			req:     driving.QueryRequest{Question: "anything"},
			answer:  "x",
			wantErr: domain.ErrEmptyCorpus,
			code:    domain.CodeEmptyCorpus,
		},
		{
			name:    "blank question",
			seed:    true,
			req:     driving.QueryRequest{Question: "   "},
			answer:  "x",
			wantErr: domain.ErrInvalidInput,
			code:    domain.CodeValidation,
		},
		{
			name:    "explicit zero k",
			seed:    true,
			req:     driving.QueryRequest{Question: "alpha", TopK: &zero},
			answer:  "x",
			wantErr: domain.ErrInvalidInput,
			code:    domain.CodeValidation,
		},
		{
			name:    "blank generation",
			seed:    true,
			req:     driving.QueryRequest{Question: "alpha"},
			answer:  "",
			wantErr: domain.ErrGenerationUnavailable,
			code:    domain.CodeGenerationUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, m, svc := newTestQueryService(t, tt.answer)
			ctx := context.Background()
			if tt.seed {
				doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
				if err := f.pipeline.Process(ctx, doc.ID); err != nil {
					t.Fatalf("ingest: %v", err)
				}
			}

			_, err := svc.Ask(ctx, "owner-1", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := testutil.ToFloat64(m.QueryErrors.WithLabelValues(string(tt.code))); got != 1 {
				t.Errorf("expected one %s error to be counted, got %v", tt.code, got)
			}
		})
	}
}

func TestQueryService_GenerationFailureKeepsSources(t *testing.T) {
	f, _, _, svc := newTestQueryService(t, "")
	ctx := context.Background()

	doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, doc.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	_, err := svc.Ask(ctx, "owner-1", driving.QueryRequest{Question: "alpha"})
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %v", err)
	}
	if len(genErr.Sources) == 0 {
		t.Fatal("expected citations with the generation failure")
	}
	for _, s := range genErr.Sources {
		if s.DocumentID != doc.ID || !strings.HasPrefix(s.DocumentName, "notes") {
			t.Errorf("unexpected source %+v", s)
		}
	}
}
