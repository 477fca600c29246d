package tools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/scireview/internal/collection"
	"github.com/hyperjump/scireview/internal/embedding"
	"github.com/hyperjump/scireview/internal/models"
)

func seeded(t *testing.T) *collection.Collection {
	t.Helper()
	dir := t.TempDir()
	c, err := collection.Open(context.Background(), collection.Options{
		DatabasePath: filepath.Join(dir, "records.db"),
		Embedder:     embedding.NewHashEmbedder(128),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	_, err = c.Upsert(context.Background(), []models.Chunk{
		{Index: "id0", Text: "protein folding of enzymes", Metadata: map[string]string{models.MetaArea: "biology", models.MetaTitle: "Folding"}},
		{Index: "id1", Text: "interest rates and inflation", Metadata: map[string]string{models.MetaArea: "economics"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSearchArticles(t *testing.T) {
	a := New(seeded(t))
	hits, err := a.SearchArticles(context.Background(), "protein enzymes", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2 (fewer than the default of 3 stored)", len(hits))
	}
	if hits[0].ID != "id0" || hits[0].Title != "Folding" || hits[0].Area != "biology" {
		t.Errorf("top hit = %+v", hits[0])
	}
	if hits[1].Title != "Unknown" {
		t.Errorf("missing title should read Unknown, got %q", hits[1].Title)
	}
	if hits[0].Score > hits[1].Score {
		t.Error("scores must be ascending distances")
	}

	if _, err := a.SearchArticles(context.Background(), "  ", 3); err == nil {
		t.Error("blank query should fail")
	}
}

func TestGetArticleContent(t *testing.T) {
	a := New(seeded(t))
	got, err := a.GetArticleContent(context.Background(), "id1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "interest rates and inflation" || got.Area != "economics" || got.Error != "" {
		t.Errorf("content = %+v", got)
	}

	got, err = a.GetArticleContent(context.Background(), "id99")
	if err != nil {
		t.Fatal(err)
	}
	if got.Error != "Article with ID id99 not found." || got.Content != "" {
		t.Errorf("missing id = %+v", got)
	}
}

func TestGenerationTools(t *testing.T) {
	a := New(seeded(t))
	tools := a.GenerationTools()
	if len(tools) != 2 || tools[0].Name != SearchArticlesName || tools[1].Name != GetArticleContentName {
		t.Fatalf("tools = %+v", tools)
	}

	out, err := tools[0].Handler(context.Background(), map[string]any{"query": "inflation", "n_results": 1.0})
	if err != nil {
		t.Fatal(err)
	}
	hits := out.([]ArticleHit)
	if len(hits) != 1 || hits[0].ID != "id1" {
		t.Errorf("search handler = %+v", hits)
	}

	out, err = tools[1].Handler(context.Background(), map[string]any{"article_id": "id0"})
	if err != nil {
		t.Fatal(err)
	}
	if out.(*ArticleContent).Title != "Folding" {
		t.Errorf("content handler = %+v", out)
	}
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{2.0, 2}, {5, 5}, {int64(7), 7}, {"3", 0}, {nil, 0},
	}
	for _, tt := range tests {
		if got := intArg(tt.in); got != tt.want {
			t.Errorf("intArg(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
