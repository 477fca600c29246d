// Package cli provides output helpers for the scireview command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/pipeline"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const snippetWords = 40

// Artifacts are the files written next to a reviewed article.
type Artifacts struct {
	Full       string
	Extraction string
	Review     string
}

// SaveArtifacts writes <stem>_full.json, <stem>_extraction.json and
// <stem>_review.md into the directory of inputPath.
func SaveArtifacts(inputPath string, result pipeline.Result) (*Artifacts, error) {
	dir := filepath.Dir(inputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	a := &Artifacts{
		Full:       filepath.Join(dir, stem+"_full.json"),
		Extraction: filepath.Join(dir, stem+"_extraction.json"),
		Review:     filepath.Join(dir, stem+"_review.md"),
	}
	if err := writeJSON(a.Full, result); err != nil {
		return nil, err
	}
	if err := writeJSON(a.Extraction, result.Extraction); err != nil {
		return nil, err
	}
	if err := os.WriteFile(a.Review, []byte(result.ReviewMarkdown), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", a.Review, err)
	}
	return a, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer f.Close()
	if err := encodeJSON(f, v); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// encodeJSON writes indented JSON without escaping HTML characters, so
// markdown and non-ASCII text stay readable.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteResult writes a pipeline result: JSON as is, text as a short report.
func WriteResult(w io.Writer, result pipeline.Result, format OutputFormat) error {
	if format == OutputJSON {
		return encodeJSON(w, result)
	}
	e := result.Extraction
	fmt.Fprintf(w, "Area: %s\n\n", result.Area)
	fmt.Fprintf(w, "Problem: %s\n", e.Problem)
	fmt.Fprintln(w, "Steps:")
	for i, s := range e.Steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, s)
	}
	fmt.Fprintf(w, "Conclusion: %s\n\n", e.Conclusion)
	fmt.Fprintln(w, result.ReviewMarkdown)
	return nil
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return encodeJSON(w, response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
		result.Rank, result.Score, result.KeywordScore, result.SemanticScore)
	if result.Record == nil {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "ID: %s | Area: %s\n", result.Record.ID, result.Record.Area())
	if title := result.Record.Title(); title != "" {
		fmt.Fprintf(w, "Title: %s\n", title)
	}
	fmt.Fprintf(w, "\n%s\n", TruncateWords(result.Record.Document, snippetWords))
	fmt.Fprintln(w)
}

// WriteRecord writes one stored chunk.
func WriteRecord(w io.Writer, rec *models.Record, format OutputFormat) error {
	if format == OutputJSON {
		return encodeJSON(w, rec)
	}
	fmt.Fprintf(w, "ID: %s\nArea: %s\nTitle: %s\n\n%s\n", rec.ID, rec.Area(), rec.Title(), rec.Document)
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
