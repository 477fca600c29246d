package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/pipeline"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "test query",
		QueryTime: 42,
		Total:     1,
		Results: []*models.SearchResult{
			{
				Rank:          1,
				Score:         0.9,
				KeywordScore:  0.8,
				SemanticScore: 0.95,
				Record: &models.Record{
					ID:       "id3",
					Document: "Content here",
					Metadata: map[string]string{models.MetaArea: "physics", models.MetaTitle: "Test Doc"},
				},
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(strings.NewReader(buf.String())).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "test query" || decoded.QueryTime != 42 {
		t.Errorf("decoded query=%q query_time=%d", decoded.Query, decoded.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Record.ID != "id3" {
		t.Errorf("decoded results = %+v", decoded.Results)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results in 42ms", "ID: id3 | Area: physics", "Title: Test Doc", "Content here"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, &models.SearchResponse{}, OutputFormat("xml")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("got %q", buf.String())
	}
}

func sampleResult() pipeline.Result {
	return pipeline.Result{
		Area: "biology",
		Extraction: pipeline.Extraction{
			Problem:    "Why <cells> divide",
			Steps:      []string{"Observe", "Model"},
			Conclusion: "They do.",
		},
		ReviewMarkdown: "## Pontos positivos\n- ok\n",
	}
}

func TestSaveArtifacts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "paper.v2.pdf")

	a, err := SaveArtifacts(input, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if a.Full != filepath.Join(dir, "paper.v2_full.json") ||
		a.Extraction != filepath.Join(dir, "paper.v2_extraction.json") ||
		a.Review != filepath.Join(dir, "paper.v2_review.md") {
		t.Errorf("artifacts = %+v", a)
	}

	full, err := os.ReadFile(a.Full)
	if err != nil {
		t.Fatal(err)
	}
	var top map[string]any
	if err := json.Unmarshal(full, &top); err != nil {
		t.Fatal(err)
	}
	if len(top) != 3 || top["area"] != "biology" {
		t.Errorf("full = %v", top)
	}
	if !strings.Contains(string(full), "<cells>") {
		t.Error("HTML characters should not be escaped")
	}

	ext, err := os.ReadFile(a.Extraction)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(ext), pipeline.KeyProblem) {
		t.Errorf("extraction file should use external keys: %s", ext)
	}

	review, err := os.ReadFile(a.Review)
	if err != nil {
		t.Fatal(err)
	}
	if string(review) != "## Pontos positivos\n- ok\n" {
		t.Errorf("review = %q", review)
	}
}

func TestSaveArtifacts_unwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := SaveArtifacts(filepath.Join(blocker, "paper.pdf"), sampleResult())
	if err == nil {
		t.Fatal("expected an error when the parent is a file")
	}
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Area: biology", "  2. Model", "Conclusion: They do."} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := WriteResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var back pipeline.Result
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if back.Area != "biology" || len(back.Extraction.Steps) != 2 {
		t.Errorf("round trip = %+v", back)
	}
}

func TestWriteRecord(t *testing.T) {
	var buf bytes.Buffer
	rec := &models.Record{ID: "id1", Document: "body", Metadata: map[string]string{models.MetaArea: "physics"}}
	if err := WriteRecord(&buf, rec, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Area: physics") || !strings.Contains(buf.String(), "body") {
		t.Errorf("got %q", buf.String())
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"empty", "", 3, ""},
		{"few words", "one two", 3, "one two"},
		{"exact", "one two three", 3, "one two three"},
		{"more", "one two three four", 3, "one two three..."},
		{"single long", "word", 1, "word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateWords(tt.s, tt.maxWords)
			if got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
