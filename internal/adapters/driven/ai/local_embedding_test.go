package ai

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalEmbedding_Deterministic(t *testing.T) {
	emb := NewLocalEmbedding(0)
	ctx := context.Background()

	a, _ := emb.Embed(ctx, "Employees receive 15 days of annual leave")
	b, _ := emb.Embed(ctx, "Employees receive 15 days of annual leave")

	if len(a) != DefaultLocalDimensions {
		t.Fatalf("expected %d dimensions, got %d", DefaultLocalDimensions, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("embedding is not deterministic")
		}
	}
}

func TestLocalEmbedding_UnitLength(t *testing.T) {
	emb := NewLocalEmbedding(128)

	for _, text := range []string{"hello world", "the of and", ""} {
		vec, err := emb.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if math.Abs(norm-1) > 1e-5 {
			t.Errorf("%q: expected unit vector, got norm %f", text, norm)
		}
	}
}

func TestLocalEmbedding_LexicalSimilarity(t *testing.T) {
	emb := NewLocalEmbedding(0)
	ctx := context.Background()

	question, _ := emb.Embed(ctx, "How many days of annual leave do employees get?")
	related, _ := emb.Embed(ctx, "Employees are entitled to 15 days of annual leave per year.")
	unrelated, _ := emb.Embed(ctx, "The cafeteria serves lunch between noon and two.")

	if cosine(question, related) <= cosine(question, unrelated) {
		t.Errorf("expected related text to score higher: related=%f unrelated=%f",
			cosine(question, related), cosine(question, unrelated))
	}
}

func TestLocalEmbedding_BatchMatchesSingle(t *testing.T) {
	emb := NewLocalEmbedding(64)
	ctx := context.Background()
	texts := []string{"alpha beta", "gamma", "delta epsilon zeta"}

	batch, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, text := range texts {
		single, _ := emb.Embed(ctx, text)
		for j := range single {
			if single[j] != batch[i][j] {
				t.Fatalf("batch embedding %d differs from single", i)
			}
		}
	}
}

func TestLocalEmbedding_CancelledContext(t *testing.T) {
	emb := NewLocalEmbedding(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := emb.Embed(ctx, "text"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("How many Days of annual-leave? 15!")
	want := []string{"day", "annual", "leave", "15"}

	if len(got) != len(want) {
		t.Fatalf("tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tokenize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one!\nThird line\n\nVersion 1.5 ships.")
	want := []string{"First one.", "Second one!", "Third line", "Version 1.5 ships."}

	if len(got) != len(want) {
		t.Fatalf("splitSentences() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}
