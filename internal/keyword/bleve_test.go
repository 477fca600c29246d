package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/scireview/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func record(id, text, title, area string) *models.Record {
	return &models.Record{
		ID:       id,
		Document: text,
		Metadata: map[string]string{models.MetaTitle: title, models.MetaArea: area},
	}
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	if err := idx.IndexRecords(ctx, []*models.Record{
		record("id0", "We apply the Bayes rule to sparse priors.", "Priors", "statistics"),
		record("id1", "Transformers attend over tokens.", "Attention", "ml"),
	}); err != nil {
		t.Fatalf("IndexRecords: %v", err)
	}

	results, err := idx.Search(ctx, "bayes", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "id0" {
		t.Fatalf("expected id0, got %+v", results)
	}
}

func TestBleveIndex_TitleBoost(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.IndexRecords(ctx, []*models.Record{
		record("body", "graphs appear once in this body about graphs", "Other topic", "cs"),
		record("title", "unrelated words here", "Graphs", "cs"),
	})
	results, err := idx.Search(ctx, "graphs", 10, &SearchOptions{TitleBoost: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "title" {
		t.Fatalf("expected title match first, got %+v", results)
	}
}

func TestBleveIndex_AreaFilterAndFuzzy(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.IndexRecords(ctx, []*models.Record{
		record("a", "protein folding dynamics", "P", "biology"),
		record("b", "protein markets and prices", "M", "economics"),
	})
	results, err := idx.Search(ctx, "protein", 10, &SearchOptions{Area: "economics"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "b" {
		t.Fatalf("area filter: got %+v", results)
	}
	results, err = idx.Search(ctx, "protien", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("fuzzy: expected 2 hits, got %+v", results)
	}
}

func TestBleveIndex_UpsertDeleteReset(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	_ = idx.IndexRecords(ctx, []*models.Record{record("x", "alpha", "", "")})
	_ = idx.IndexRecords(ctx, []*models.Record{record("x", "beta", "", "")})
	if n, _ := idx.DocCount(); n != 1 {
		t.Fatalf("DocCount = %d, want 1 after overwrite", n)
	}
	if res, _ := idx.Search(ctx, "alpha", 10, nil); len(res) != 0 {
		t.Errorf("old text still indexed: %+v", res)
	}
	if err := idx.Delete(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	_ = idx.IndexRecords(ctx, []*models.Record{record("y", "gamma", "", "")})
	if err := idx.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("DocCount after Reset = %d", n)
	}
	if err := idx.IndexRecords(ctx, []*models.Record{record("z", "delta", "", "")}); err != nil {
		t.Fatalf("index after Reset: %v", err)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = idx.IndexRecords(ctx, []*models.Record{record("x", "persistent text", "", "")})
	_ = idx.Close()

	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("DocCount after reopen = %d", n)
	}
}

func TestTokenizeQuery(t *testing.T) {
	got := tokenizeQuery("Deep-Learning, for NLP!")
	want := []string{"deep", "learning", "for", "nlp"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
