package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/scireview/internal/collection"
	"github.com/hyperjump/scireview/internal/config"
	"github.com/hyperjump/scireview/internal/embedding"
	"github.com/hyperjump/scireview/internal/models"
)

func newTestEngine(t *testing.T, withKeyword bool) *Engine {
	t.Helper()
	dir := t.TempDir()
	opts := collection.Options{
		DatabasePath: filepath.Join(dir, "records.db"),
		Embedder:     embedding.NewHashEmbedder(128),
	}
	if withKeyword {
		opts.KeywordIndexPath = filepath.Join(dir, "keyword.bleve")
	}
	coll, err := collection.Open(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { coll.Close() })

	chunk := func(id, text, area, title string) models.Chunk {
		return models.Chunk{Index: id, Text: text, Metadata: map[string]string{models.MetaArea: area, models.MetaTitle: title}}
	}
	_, err = coll.Upsert(context.Background(), []models.Chunk{
		chunk("id0", "machine learning algorithms for protein structure", "biology", "Learning Proteins"),
		chunk("id1", "gradient descent trains deep neural networks", "computer_science", "Deep Learning"),
		chunk("id2", "monetary policy and interest rates", "economics", "Rates"),
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.SearchConfig{DefaultLimit: 10, MaxLimit: 100, TopKCandidates: 20, KeywordWeight: 0.4, SemanticWeight: 0.6}
	return NewEngine(coll, cfg)
}

func TestEngine_Search(t *testing.T) {
	engine := newTestEngine(t, true)
	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "interest rates"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total < 1 || len(resp.Results) < 1 {
		t.Fatalf("expected results, got %+v", resp)
	}
	top := resp.Results[0]
	if top.Record.ID != "id2" || top.Rank != 1 {
		t.Errorf("top = %s rank %d, want id2 rank 1", top.Record.ID, top.Rank)
	}
	if top.KeywordScore != 1 {
		t.Errorf("top keyword score = %f, want 1", top.KeywordScore)
	}
}

func TestEngine_AreaFilterAndLimit(t *testing.T) {
	engine := newTestEngine(t, true)
	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "learning", Area: "biology"})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.Record.Area() != "biology" {
			t.Errorf("result %s from area %s", r.Record.ID, r.Record.Area())
		}
	}

	resp, err = engine.Search(context.Background(), &models.SearchQuery{Query: "learning", Limit: 1, SemanticEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("limit 1 returned %d results", len(resp.Results))
	}
	if resp.Results[0].KeywordScore != 0 {
		t.Error("semantic-only search should not carry keyword scores")
	}
}

func TestEngine_WithoutKeywordIndex(t *testing.T) {
	engine := newTestEngine(t, false)
	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "neural networks gradient"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Record.ID != "id1" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestEngine_EmptyQuery(t *testing.T) {
	engine := newTestEngine(t, false)
	if _, err := engine.Search(context.Background(), &models.SearchQuery{}); err == nil {
		t.Error("empty query should fail")
	}
}

func TestProcessQuery(t *testing.T) {
	cfg := &config.SearchConfig{DefaultLimit: 7, MaxLimit: 20}
	q := &models.SearchQuery{Query: "x"}
	if err := ProcessQuery(q, cfg); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 7 || !q.KeywordEnabled || !q.SemanticEnabled {
		t.Errorf("defaults not applied: %+v", q)
	}
	q = &models.SearchQuery{Query: "x", Limit: 50}
	_ = ProcessQuery(q, cfg)
	if q.Limit != 20 {
		t.Errorf("limit = %d, want capped at 20", q.Limit)
	}
}
