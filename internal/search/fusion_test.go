package search

import (
	"testing"

	"github.com/hyperjump/scireview/internal/keyword"
	"github.com/hyperjump/scireview/internal/vector"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.KeywordResult{
		{ID: "a", Score: 2},
		{ID: "b", Score: 4},
		{ID: "c", Score: 1},
	}
	m := NormalizeKeywordScores(results)
	if m["b"] != 1.0 {
		t.Errorf("max score should be 1.0, got %f", m["b"])
	}
	if m["a"] != 0.5 {
		t.Errorf("a should be 0.5, got %f", m["a"])
	}
	if len(m) != 3 {
		t.Errorf("expected 3 entries, got %d", len(m))
	}
	if len(NormalizeKeywordScores(nil)) != 0 {
		t.Error("nil results should give an empty map")
	}
}

func TestNormalizeSemanticScores(t *testing.T) {
	results := []*vector.Result{
		{ID: "c1", Distance: 0.25},
		{ID: "c2", Distance: 1.5},
	}
	m := NormalizeSemanticScores(results)
	if m["c1"] != 0.75 || m["c2"] != 0 {
		t.Errorf("unexpected map %v", m)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"a": 1.0, "b": 0.5}
	sem := map[string]float64{"b": 1.0, "c": 0.4}
	got := Fuse(kw, sem, 0.5, 0.5)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "b" || got[0].Score != 0.75 {
		t.Errorf("top = %+v, want b with 0.75", got[0])
	}
	if got[1].ID != "a" || got[2].ID != "c" {
		t.Errorf("order = %s, %s", got[1].ID, got[2].ID)
	}
}

func TestFuse_TiesByID(t *testing.T) {
	got := Fuse(map[string]float64{"z": 1, "a": 1}, nil, 1, 0)
	if got[0].ID != "a" || got[1].ID != "z" {
		t.Errorf("ties should break by id: %s, %s", got[0].ID, got[1].ID)
	}
}
