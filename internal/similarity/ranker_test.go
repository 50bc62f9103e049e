package similarity

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-board/internal/vectorstore"
)

var vocabulary = []string{"backend", "engineer", "distributed", "systems", "barista", "coffee"}

// bagEmbedder embeds text as vocabulary term counts.
type bagEmbedder struct {
	calls map[string]int
	model string
}

func (b *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if b.calls == nil {
		b.calls = map[string]int{}
	}
	b.calls[text]++

	lower := strings.ToLower(text)
	vector := make([]float32, len(vocabulary))
	for i, term := range vocabulary {
		vector[i] = float32(strings.Count(lower, term))
	}
	return vector, nil
}

func (b *bagEmbedder) Model() string {
	if b.model == "" {
		return "bag-of-words"
	}
	return b.model
}

func newRanker(t *testing.T) (*Ranker, *bagEmbedder, *vectorstore.SQLite) {
	t.Helper()

	store, err := vectorstore.NewSQLite(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := &bagEmbedder{}
	ranker, err := NewRanker(embedder, store, zap.NewNop())
	if err != nil {
		t.Fatalf("new ranker: %v", err)
	}
	return ranker, embedder, store
}

var docs = []Document{
	{URL: "a", Text: "senior backend engineer, distributed systems"},
	{URL: "b", Text: "barista, coffee shop"},
}

func TestRankOrdersBackendResumeFirst(t *testing.T) {
	ranker, _, _ := newRanker(t)

	results, err := ranker.Rank(context.Background(), "Backend engineer building distributed systems in Go", docs, "", 0)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "a" || results[1].URL != "b" {
		t.Fatalf("expected a before b, got %s then %s", results[0].URL, results[1].URL)
	}
	if results[0].Distance > results[1].Distance {
		t.Fatalf("results not sorted by distance: %+v", results)
	}
	if results[0].Text != docs[0].Text {
		t.Fatalf("unexpected text %q", results[0].Text)
	}
}

func TestRankEmbedsEachURLOnce(t *testing.T) {
	ranker, embedder, store := newRanker(t)
	ctx := context.Background()
	resume := "backend engineer"

	for i := 0; i < 2; i++ {
		if _, err := ranker.Rank(ctx, resume, docs, vectorstore.DefaultCollection, 0); err != nil {
			t.Fatalf("rank #%d: %v", i+1, err)
		}
	}

	for _, doc := range docs {
		if got := embedder.calls[doc.Text]; got != 1 {
			t.Fatalf("expected %s embedded once, got %d", doc.URL, got)
		}
	}
	if got := embedder.calls[resume]; got != 2 {
		t.Fatalf("expected resume embedded per call, got %d", got)
	}

	count, err := store.Count(ctx, vectorstore.ScopedCollection(vectorstore.DefaultCollection, embedder.Model()))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stored vectors, got %d", count)
	}
}

func TestRankHonoursLimit(t *testing.T) {
	ranker, _, _ := newRanker(t)

	results, err := ranker.Rank(context.Background(), "coffee", docs, "", 1)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(results) != 1 || results[0].URL != "b" {
		t.Fatalf("expected only b, got %+v", results)
	}
}

func TestRankRejectsEmptyResume(t *testing.T) {
	ranker, embedder, _ := newRanker(t)

	if _, err := ranker.Rank(context.Background(), "  ", docs, "", 0); err == nil {
		t.Fatal("expected error for empty resume")
	}
	if len(embedder.calls) != 0 {
		t.Fatalf("expected no embedding calls, got %v", embedder.calls)
	}
}

func TestRankKeepsEmbeddingModelsApart(t *testing.T) {
	ranker, first, store := newRanker(t)
	ctx := context.Background()

	if _, err := ranker.Rank(ctx, "backend engineer", docs, "", 0); err != nil {
		t.Fatalf("rank: %v", err)
	}

	second := &bagEmbedder{model: "other-model"}
	other, err := NewRanker(second, store, zap.NewNop())
	if err != nil {
		t.Fatalf("new ranker: %v", err)
	}

	results, err := other.Rank(ctx, "backend engineer", docs[:1], "", 0)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(results) != 1 || results[0].URL != "a" {
		t.Fatalf("expected only the job embedded by the second model, got %+v", results)
	}
	if second.calls[docs[0].Text] != 1 {
		t.Fatalf("expected the second model to embed a itself, got %d calls", second.calls[docs[0].Text])
	}

	for _, tt := range []struct {
		model string
		want  int
	}{
		{model: first.Model(), want: 2},
		{model: second.Model(), want: 1},
	} {
		count, err := store.Count(ctx, vectorstore.ScopedCollection(vectorstore.DefaultCollection, tt.model))
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != tt.want {
			t.Fatalf("expected %d vectors for %s, got %d", tt.want, tt.model, count)
		}
	}
}
