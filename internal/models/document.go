// Package models defines core data structures for articles, chunks, records, and search results.
package models

// Metadata keys carried by every chunk and record.
const (
	MetaTitle    = "title"
	MetaAuthor   = "author"
	MetaKeywords = "keywords"
	MetaDate     = "date"
	MetaArea     = "area"
	MetaFilename = "filename"
	MetaSourceID = "source_id"
)

// RawDocument is one ingested article before chunking. Text is already cleaned.
type RawDocument struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Keywords string `json:"keywords"`
	Date     string `json:"date,omitempty"`
	Text     string `json:"text"`
	Area     string `json:"area"`
	Filename string `json:"filename"`
	SourceID string `json:"source_id,omitempty"`
}

// Metadata returns every non-empty field except Text, keyed by the Meta* constants.
func (d RawDocument) Metadata() map[string]string {
	m := make(map[string]string, 7)
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set(MetaTitle, d.Title)
	set(MetaAuthor, d.Author)
	set(MetaKeywords, d.Keywords)
	set(MetaDate, d.Date)
	set(MetaArea, d.Area)
	set(MetaFilename, d.Filename)
	set(MetaSourceID, d.SourceID)
	return m
}

// Chunk is a window of consecutive sentences from one document.
type Chunk struct {
	Index    string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}
