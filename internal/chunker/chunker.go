// Package chunker groups sentences into overlapping fixed-size windows.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/scireview/internal/models"
)

// Defaults used by ingestion.
const (
	DefaultMaxSentences = 5
	DefaultOverlap      = 1
)

// ErrInvalidWindow is returned when the window does not advance: maxSentences
// must be positive and overlap must lie in [0, maxSentences).
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunker splits documents into sentence windows.
type Chunker struct {
	splitter     SentenceSplitter
	maxSentences int
	overlap      int
}

// NewChunker creates a chunker. It fails with ErrInvalidWindow for a window that would not advance.
func NewChunker(splitter SentenceSplitter, maxSentences, overlap int) (*Chunker, error) {
	if splitter == nil {
		return nil, errors.New("sentence splitter is required")
	}
	if err := validateWindow(maxSentences, overlap); err != nil {
		return nil, err
	}
	return &Chunker{splitter: splitter, maxSentences: maxSentences, overlap: overlap}, nil
}

// Chunk splits text into windows using the chunker's window settings.
func (c *Chunker) Chunk(text string) []string {
	chunks, _ := Windows(c.splitter.Split(text), c.maxSentences, c.overlap)
	return chunks
}

// ChunkText splits text with an explicit window.
func ChunkText(splitter SentenceSplitter, text string, maxSentences, overlap int) ([]string, error) {
	if err := validateWindow(maxSentences, overlap); err != nil {
		return nil, err
	}
	return Windows(splitter.Split(text), maxSentences, overlap)
}

// Windows joins sentences [i, i+maxSentences) with a single space, advancing
// i by maxSentences-overlap until i passes the end. Trailing windows may hold
// fewer sentences.
func Windows(sentences []string, maxSentences, overlap int) ([]string, error) {
	if err := validateWindow(maxSentences, overlap); err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	step := maxSentences - overlap
	chunks := make([]string, 0, len(sentences)/step+1)
	for i := 0; i < len(sentences); i += step {
		end := i + maxSentences
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
	}
	return chunks, nil
}

// ChunkDocuments chunks every document in order. Each chunk carries its
// document's metadata, and indices ("id0", "id1", ...) increase across the
// whole batch.
func (c *Chunker) ChunkDocuments(docs []models.RawDocument) []models.Chunk {
	var out []models.Chunk
	n := 0
	for _, doc := range docs {
		meta := doc.Metadata()
		for _, text := range c.Chunk(doc.Text) {
			m := make(map[string]string, len(meta))
			for k, v := range meta {
				m[k] = v
			}
			out = append(out, models.Chunk{
				Index:    fmt.Sprintf("id%d", n),
				Text:     text,
				Metadata: m,
			})
			n++
		}
	}
	return out
}

func validateWindow(maxSentences, overlap int) error {
	if maxSentences <= 0 {
		return fmt.Errorf("%w: max sentences %d must be positive", ErrInvalidWindow, maxSentences)
	}
	if overlap < 0 || overlap >= maxSentences {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidWindow, overlap, maxSentences)
	}
	return nil
}
