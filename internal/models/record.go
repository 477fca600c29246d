package models

import "time"

// Record is the stored form of a chunk: its text, metadata and embedding.
type Record struct {
	ID        string            `json:"id"`
	Document  string            `json:"document"`
	Metadata  map[string]string `json:"metadata"`
	Embedding []float32         `json:"-"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Area returns the record's area tag, or "" when absent.
func (r *Record) Area() string {
	if r == nil {
		return ""
	}
	return r.Metadata[MetaArea]
}

// Title returns the record's title tag, or "" when absent.
func (r *Record) Title() string {
	if r == nil {
		return ""
	}
	return r.Metadata[MetaTitle]
}

// QueryResult is one nearest-neighbour hit. Lower Distance means more similar.
type QueryResult struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Distance float64           `json:"distance"`
}

// Area returns the hit's area tag, or "" when absent.
func (q QueryResult) Area() string {
	return q.Metadata[MetaArea]
}
