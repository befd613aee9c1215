package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

func TestExtractiveGenerator_QuotesBestSentence(t *testing.T) {
	g := NewExtractiveGenerator()

	answer, err := g.Generate(context.Background(), driven.Prompt{
		Question: "How many days of annual leave do employees get?",
		Passages: []driven.Passage{
			{DocumentName: "Leave Policy.txt", ChunkIndex: 0, Content: "Leave Policy. Employees receive 15 days of annual leave per year. Unused leave expires in March."},
			{DocumentName: "Cafeteria.txt", ChunkIndex: 0, Content: "Lunch is served at noon."},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(answer, "15") {
		t.Errorf("expected answer to contain 15, got %q", answer)
	}
	if strings.Contains(answer, "Lunch") {
		t.Errorf("unrelated passage leaked into answer: %q", answer)
	}
}

func TestExtractiveGenerator_KeepsReadingOrder(t *testing.T) {
	g := NewExtractiveGenerator()

	answer, _ := g.Generate(context.Background(), driven.Prompt{
		Question: "refund policy window",
		Passages: []driven.Passage{
			{Content: "Refunds follow the policy. The refund window is 30 days."},
		},
	})

	if answer != "Refunds follow the policy. The refund window is 30 days." {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestExtractiveGenerator_Insufficient(t *testing.T) {
	g := NewExtractiveGenerator()

	answer, err := g.Generate(context.Background(), driven.Prompt{
		Question: "What is the parking policy?",
		Passages: []driven.Passage{{Content: "Lunch is served at noon."}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != InsufficientAnswer {
		t.Errorf("expected insufficient answer, got %q", answer)
	}
}

func TestExtractiveGenerator_CancelledContext(t *testing.T) {
	g := NewExtractiveGenerator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Generate(ctx, driven.Prompt{Question: "q"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
