package extract

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Defaults for PDF Info fields that are absent or blank.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
	NoKeywords    = "No Keywords"
)

// PDFDocument is the text and Info-dictionary metadata of a PDF.
type PDFDocument struct {
	Text         string
	Title        string
	Author       string
	Keywords     string
	CreationDate string
}

// LoadPDF reads a PDF from path. Pages are joined with newlines. Title, Author
// and Keywords fall back to UnknownTitle, UnknownAuthor and NoKeywords.
func LoadPDF(path string) (*PDFDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parsePDF(content)
}

// parsePDF recovers from panics inside the PDF parser, which malformed
// files can trigger, and reports them as errors.
func parsePDF(content []byte) (doc *PDFDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}

	info := r.Trailer().Key("Info")
	return &PDFDocument{
		Text:         buf.String(),
		Title:        infoString(info, "Title", UnknownTitle),
		Author:       infoString(info, "Author", UnknownAuthor),
		Keywords:     infoString(info, "Keywords", NoKeywords),
		CreationDate: FormatPDFDate(infoString(info, "CreationDate", "")),
	}, nil
}

func infoString(info pdf.Value, key, fallback string) string {
	if info.IsNull() {
		return fallback
	}
	v := info.Key(key)
	if v.IsNull() {
		return fallback
	}
	if s := strings.TrimSpace(v.Text()); s != "" {
		return s
	}
	return fallback
}

// FormatPDFDate turns a PDF date string ("D:20230115093000+01'00'") into
// "2023-01-15". Strings that do not start with a full date are returned trimmed.
func FormatPDFDate(s string) string {
	d := strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(d) < 8 {
		return strings.TrimSpace(s)
	}
	for _, c := range d[:8] {
		if c < '0' || c > '9' {
			return strings.TrimSpace(s)
		}
	}
	return d[0:4] + "-" + d[4:6] + "-" + d[6:8]
}
