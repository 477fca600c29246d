// Package reader turns an input file into article text for the pipeline.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/extract"
	"github.com/hyperjump/scireview/pkg/utils"
)

const (
	defaultArxivBase = "https://arxiv.org"
	maxDownloadBytes = 64 << 20
)

var (
	// ErrInvalidURL is returned for a .url file that does not hold an http(s) link.
	ErrInvalidURL = errors.New("invalid URL in .url file")
	// ErrEmptyText is returned when no text could be extracted.
	ErrEmptyText = errors.New("no text extracted")
	// ErrTooLarge is returned when a download exceeds the size limit.
	ErrTooLarge = errors.New("download too large")
)

// Reader reads articles from .pdf, .url (arXiv link), .docx, .odt, .rtf and
// plain text files.
type Reader struct {
	client    *http.Client
	arxivBase string
	maxBytes  int64
	extractor *extract.Extractor
	logger    *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithHTTPClient sets the client used to download arXiv papers.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reader) { r.client = c }
}

// WithArxivBaseURL overrides https://arxiv.org.
func WithArxivBaseURL(base string) Option {
	return func(r *Reader) { r.arxivBase = strings.TrimRight(base, "/") }
}

// WithMaxDownloadBytes caps the size of a downloaded paper.
func WithMaxDownloadBytes(n int64) Option {
	return func(r *Reader) { r.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// New creates a Reader.
func New(opts ...Option) *Reader {
	r := &Reader{
		client:    &http.Client{Timeout: 2 * time.Minute},
		arxivBase: defaultArxivBase,
		maxBytes:  maxDownloadBytes,
		extractor: extract.NewExtractor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.LoggerOrNop(r.logger)
	return r
}

// ReadArticle returns the text of the article at p.
func (r *Reader) ReadArticle(ctx context.Context, p string) (string, error) {
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("input file not found: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(p))
	r.logger.Info("reading article", zap.String("path", p), zap.String("type", ext))

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		var doc *extract.PDFDocument
		if doc, err = extract.LoadPDF(p); err == nil {
			text = doc.Text
		}
	case ".url":
		text, err = r.readArxiv(ctx, p)
	default:
		text, err = r.extractor.Extract(p)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		r.logger.Warn("no text extracted", zap.String("path", p))
		return "", fmt.Errorf("%w: %s", ErrEmptyText, p)
	}
	return text, nil
}

func (r *Reader) readArxiv(ctx context.Context, p string) (string, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	id, err := ArxivID(string(raw))
	if err != nil {
		return "", err
	}
	r.logger.Info("downloading arXiv paper", zap.String("arxiv_id", id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.arxivBase+"/pdf/"+id, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download arXiv %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download arXiv %s: status %d", id, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("download arXiv %s: %w", id, err)
	}
	if int64(len(body)) > r.maxBytes {
		return "", fmt.Errorf("download arXiv %s: %w: over %d bytes", id, ErrTooLarge, r.maxBytes)
	}
	return r.extractor.ExtractBytes(body, ".pdf")
}

// ArxivID extracts the paper id from the first line of a .url file, which
// may be a bare link or an InternetShortcut "URL=" entry. The id is the last
// path element without a .pdf suffix; old-style ids keep their archive
// prefix (hep-th/9901001).
func ArxivID(content string) (string, error) {
	link := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "URL=")
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			link = line
			break
		}
	}
	if link == "" {
		return "", ErrInvalidURL
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: no paper id in %s", ErrInvalidURL, link)
	}
	rest := parts[1:]
	id := strings.TrimSuffix(path.Join(rest...), ".pdf")
	if id == "" {
		return "", fmt.Errorf("%w: no paper id in %s", ErrInvalidURL, link)
	}
	return id, nil
}
