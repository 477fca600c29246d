// Package collection is the persistent, searchable store of article chunks.
// Records live in SQLite with their embeddings; an in-memory vector index
// answers nearest-neighbour queries and a Bleve index answers keyword queries.
// Reopening a collection reloads stored embeddings without re-embedding.
package collection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/embedding"
	"github.com/hyperjump/scireview/internal/keyword"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/storage"
	"github.com/hyperjump/scireview/internal/vector"
	"github.com/hyperjump/scireview/pkg/utils"
)

var (
	// ErrNotFound is returned by Get for an unknown id.
	ErrNotFound = storage.ErrNotFound
	// ErrMissingText is returned by Upsert when a chunk has no text. The whole batch is rejected.
	ErrMissingText = errors.New("chunk has no text")
	// ErrEmbeddingMismatch is returned by Open when stored vectors were made by another model.
	ErrEmbeddingMismatch = errors.New("collection was built with a different embedding model")
)

const (
	metaModel      = "embedding_model"
	metaDimensions = "embedding_dimensions"
)

// defaultMetadata replaces empty chunk metadata.
var defaultMetadata = map[string]string{"source": "default"}

// Options configures Open.
type Options struct {
	// DatabasePath is the SQLite file holding records.
	DatabasePath string
	// KeywordIndexPath is the Bleve directory. Empty disables keyword search.
	KeywordIndexPath string
	Embedder         embedding.Embedder
	Logger           *zap.Logger
}

// Collection is an open handle on the chunk store. Close it when done.
type Collection struct {
	store    storage.Storage
	vectors  vector.Index
	keywords keyword.KeywordIndex
	embedder embedding.Embedder
	logger   *zap.Logger
	writeMu  sync.Mutex
}

// Open opens (or creates) the collection and loads stored embeddings into memory.
func Open(ctx context.Context, opts Options) (*Collection, error) {
	if opts.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	logger := utils.LoggerOrNop(opts.Logger)

	store, err := storage.NewSQLiteStorage(opts.DatabasePath)
	if err != nil {
		return nil, err
	}
	vectors, err := vector.NewMemoryIndex(opts.Embedder.Dimensions())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	c := &Collection{
		store:    store,
		vectors:  vectors,
		embedder: opts.Embedder,
		logger:   logger,
	}
	if opts.KeywordIndexPath != "" {
		kw, err := keyword.NewBleveIndex(opts.KeywordIndexPath)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		c.keywords = kw
	}
	if err := c.checkModel(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.load(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	logger.Debug("collection opened",
		zap.String("database", opts.DatabasePath),
		zap.Int("records", c.vectors.Size()),
		zap.String("embedding_model", opts.Embedder.ModelName()),
	)
	return c, nil
}

// checkModel fails when the stored vectors come from a different embedder.
func (c *Collection) checkModel(ctx context.Context) error {
	model, ok, err := c.store.GetMeta(ctx, metaModel)
	if err != nil {
		return fmt.Errorf("failed to read collection metadata: %w", err)
	}
	if !ok {
		return nil
	}
	dims, _, err := c.store.GetMeta(ctx, metaDimensions)
	if err != nil {
		return fmt.Errorf("failed to read collection metadata: %w", err)
	}
	want := strconv.Itoa(c.embedder.Dimensions())
	if model != c.embedder.ModelName() || dims != want {
		return fmt.Errorf("%w: stored %s/%s, configured %s/%s (rebuild with --reset-db)",
			ErrEmbeddingMismatch, model, dims, c.embedder.ModelName(), want)
	}
	return nil
}

func (c *Collection) load(ctx context.Context) error {
	records, err := c.store.ListRecords(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	vecs := make([][]float32, len(records))
	for i, r := range records {
		ids[i] = r.ID
		vecs[i] = r.Embedding
	}
	if err := c.vectors.Upsert(ctx, ids, vecs); err != nil {
		return fmt.Errorf("failed to load vectors: %w", err)
	}
	return nil
}

// Upsert embeds and stores chunks as records (id = chunk index, document =
// chunk text, metadata = chunk metadata or {"source":"default"} when empty).
// An id already present is overwritten: last write wins. Returns the number
// of records written.
func (c *Collection) Upsert(ctx context.Context, chunks []models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		if ch.Text == "" {
			return 0, fmt.Errorf("%w: %s", ErrMissingText, ch.Index)
		}
		texts[i] = ch.Text
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	vecs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
	}
	// Nothing is written unless every vector fits the index.
	want := c.vectors.Dimensions()
	for i, v := range vecs {
		if len(v) != want {
			return 0, fmt.Errorf("%w: chunk %s got %d, expected %d", vector.ErrDimensionMismatch, chunks[i].Index, len(v), want)
		}
	}

	records := make([]*models.Record, len(chunks))
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		meta := ch.Metadata
		if len(meta) == 0 {
			meta = defaultMetadata
		}
		records[i] = &models.Record{
			ID:        ch.Index,
			Document:  ch.Text,
			Metadata:  copyMap(meta),
			Embedding: vecs[i],
		}
		ids[i] = ch.Index
	}

	if err := c.store.UpsertRecords(ctx, records); err != nil {
		return 0, err
	}
	if err := c.pinModel(ctx); err != nil {
		return 0, err
	}
	if err := c.vectors.Upsert(ctx, ids, vecs); err != nil {
		return 0, err
	}
	if c.keywords != nil {
		if err := c.keywords.IndexRecords(ctx, records); err != nil {
			c.logger.Warn("keyword indexing failed", zap.Int("records", len(records)), zap.Error(err))
		}
	}
	c.logger.Debug("upserted records", zap.Int("count", len(records)))
	return len(records), nil
}

func (c *Collection) pinModel(ctx context.Context) error {
	if _, ok, err := c.store.GetMeta(ctx, metaModel); err != nil || ok {
		return err
	}
	if err := c.store.SetMeta(ctx, metaModel, c.embedder.ModelName()); err != nil {
		return err
	}
	return c.store.SetMeta(ctx, metaDimensions, strconv.Itoa(c.embedder.Dimensions()))
}

// Query returns, for each text, up to n records ordered by ascending cosine
// distance. An empty collection yields empty lists.
func (c *Collection) Query(ctx context.Context, texts []string, n int) ([][]models.QueryResult, error) {
	out := make([][]models.QueryResult, len(texts))
	if n <= 0 || c.vectors.Size() == 0 {
		for i := range out {
			out[i] = []models.QueryResult{}
		}
		return out, nil
	}
	vecs, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	for i, vec := range vecs {
		hits, err := c.vectors.Search(ctx, vec, n)
		if err != nil {
			return nil, err
		}
		results := make([]models.QueryResult, 0, len(hits))
		for _, h := range hits {
			rec, err := c.store.GetRecord(ctx, h.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load hit %s: %w", h.ID, err)
			}
			results = append(results, models.QueryResult{
				ID:       rec.ID,
				Document: rec.Document,
				Metadata: rec.Metadata,
				Distance: h.Distance,
			})
		}
		out[i] = results
	}
	return out, nil
}

// Get returns the record with id, or an error wrapping ErrNotFound.
func (c *Collection) Get(ctx context.Context, id string) (*models.Record, error) {
	return c.store.GetRecord(ctx, id)
}

// Count returns the number of records.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.store.CountRecords(ctx)
}

// Sources returns the number of distinct source files.
func (c *Collection) Sources(ctx context.Context) (int64, error) {
	return c.store.CountSources(ctx)
}

// Areas returns the distinct area labels, sorted.
func (c *Collection) Areas(ctx context.Context) ([]string, error) {
	return c.store.Areas(ctx)
}

// KeywordIndex returns the keyword index, or nil when disabled.
func (c *Collection) KeywordIndex() keyword.KeywordIndex {
	return c.keywords
}

// Embedder returns the embedder used for records and queries.
func (c *Collection) Embedder() embedding.Embedder {
	return c.embedder
}

// VectorIndex returns the in-memory vector index.
func (c *Collection) VectorIndex() vector.Index {
	return c.vectors
}

// Reset removes every record from all three stores.
func (c *Collection) Reset(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	c.vectors.Reset()
	if c.keywords != nil {
		if err := c.keywords.Reset(ctx); err != nil {
			return err
		}
	}
	c.logger.Info("collection reset")
	return nil
}

// Close releases the database and indices.
func (c *Collection) Close() error {
	var errs []error
	if c.keywords != nil {
		errs = append(errs, c.keywords.Close())
	}
	errs = append(errs, c.vectors.Close(), c.store.Close())
	return errors.Join(errs...)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
