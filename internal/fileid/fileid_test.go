package fileid

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSourceID(t *testing.T) {
	id1 := SourceID("/corpus", "/corpus/biology/a.pdf")
	id2 := SourceID("/corpus", "/corpus/biology/a.pdf")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if len(id1) != len(prefix)+32 {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestSourceID_relocatedCorpus(t *testing.T) {
	a := SourceID("/old/corpus", "/old/corpus/physics/p.pdf")
	b := SourceID("/new/place", "/new/place/physics/p.pdf")
	if a != b {
		t.Errorf("moving the corpus should not change the ID: %q vs %q", a, b)
	}
}

func TestSourceID_differentPaths(t *testing.T) {
	if SourceID("/c", "/c/x/a.pdf") == SourceID("/c", "/c/y/a.pdf") {
		t.Error("different areas should give different IDs")
	}
}

func TestSourceID_outsideRoot(t *testing.T) {
	id := SourceID("/corpus", "/elsewhere/a.pdf")
	if id != SourceID("/other", "/elsewhere/a.pdf") {
		t.Error("paths outside root should hash the path itself")
	}
	if id == SourceID("/elsewhere", "/elsewhere/a.pdf") {
		t.Error("inside and outside root should differ")
	}
}

func TestSourceID_cleansPath(t *testing.T) {
	if SourceID("/c", "/c/bio/../bio/a.pdf") != SourceID("/c", filepath.Join("/c", "bio", "a.pdf")) {
		t.Error("equivalent paths should give the same ID")
	}
}
