// Package ingest builds the article collection from a corpus directory laid
// out as <root>/<area>/<file>.pdf.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/chunker"
	"github.com/hyperjump/scireview/internal/extract"
	"github.com/hyperjump/scireview/internal/fileid"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/textclean"
	"github.com/hyperjump/scireview/pkg/utils"
)

// ErrInvalidRoot is returned when the corpus root is missing or not a directory.
var ErrInvalidRoot = errors.New("corpus root is not a directory")

// Store receives the chunk batch. *collection.Collection satisfies it.
type Store interface {
	Upsert(ctx context.Context, chunks []models.Chunk) (int, error)
	Reset(ctx context.Context) error
}

// Loader reads one PDF.
type Loader func(path string) (*extract.PDFDocument, error)

// Ingester walks a corpus and writes its chunks to a Store.
type Ingester struct {
	store   Store
	chunker *chunker.Chunker
	loader  Loader
	reset   bool
	logger  *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger for progress and skipped files.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingester) { i.logger = l }
}

// WithLoader replaces the PDF loader (extract.LoadPDF by default).
func WithLoader(l Loader) Option {
	return func(i *Ingester) { i.loader = l }
}

// WithReset empties the store before writing.
func WithReset(reset bool) Option {
	return func(i *Ingester) { i.reset = reset }
}

// NewIngester creates an ingester writing to store.
func NewIngester(store Store, ch *chunker.Chunker, opts ...Option) *Ingester {
	i := &Ingester{
		store:   store,
		chunker: ch,
		loader:  extract.LoadPDF,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = utils.LoggerOrNop(i.logger)
	return i
}

// Ingest loads every PDF directly inside each immediate subdirectory of root,
// tags it with the subdirectory name as its area, chunks all documents as one
// batch and upserts the batch. Files that fail to load are logged and skipped.
// Returns the number of chunks written.
func (i *Ingester) Ingest(ctx context.Context, root string) (int, error) {
	start := time.Now()
	docs, err := i.LoadCorpus(ctx, root)
	if err != nil {
		return 0, err
	}
	if i.reset {
		if err := i.store.Reset(ctx); err != nil {
			return 0, fmt.Errorf("failed to reset collection: %w", err)
		}
	}
	chunks := i.chunker.ChunkDocuments(docs)
	n, err := i.store.Upsert(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to index chunks: %w", err)
	}
	i.logger.Info("ingestion finished",
		zap.String("root", root),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", n),
		zap.Duration("took", time.Since(start)),
	)
	return n, nil
}

// LoadCorpus returns the cleaned, tagged documents of the corpus, ordered by
// area then file name.
func (i *Ingester) LoadCorpus(ctx context.Context, root string) ([]models.RawDocument, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}
	areas, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	var docs []models.RawDocument
	for _, area := range areas {
		if !area.IsDir() || strings.HasPrefix(area.Name(), ".") {
			continue
		}
		areaDir := filepath.Join(root, area.Name())
		entries, err := os.ReadDir(areaDir)
		if err != nil {
			i.logger.Warn("skipping unreadable area", zap.String("area", area.Name()), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !e.Type().IsRegular() || !IsPDF(e.Name()) {
				continue
			}
			path := filepath.Join(areaDir, e.Name())
			doc, err := i.loadOne(root, area.Name(), path)
			if err != nil {
				i.logger.Warn("skipping file",
					zap.String("area", area.Name()),
					zap.String("file", e.Name()),
					zap.Error(err),
				)
				continue
			}
			i.logger.Debug("loaded file", zap.String("area", area.Name()), zap.String("file", e.Name()))
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (i *Ingester) loadOne(root, area, path string) (models.RawDocument, error) {
	pdf, err := i.loader(path)
	if err != nil {
		return models.RawDocument{}, err
	}
	return models.RawDocument{
		Title:    pdf.Title,
		Author:   pdf.Author,
		Keywords: pdf.Keywords,
		Date:     pdf.CreationDate,
		Text:     textclean.Clean(pdf.Text),
		Area:     area,
		Filename: filepath.Base(path),
		SourceID: fileid.SourceID(root, path),
	}, nil
}

// IsPDF reports whether name has a .pdf extension, ignoring case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
