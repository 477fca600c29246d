package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/scireview/internal/collection"
	"github.com/hyperjump/scireview/internal/config"
	"github.com/hyperjump/scireview/internal/embedding"
	"github.com/hyperjump/scireview/internal/keyword"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/vector"
)

// Source is the collection the engine searches. *collection.Collection satisfies it.
type Source interface {
	KeywordIndex() keyword.KeywordIndex
	Embedder() embedding.Embedder
	VectorIndex() vector.Index
	Get(ctx context.Context, id string) (*models.Record, error)
}

// Engine runs hybrid (keyword + semantic) search over chunks.
type Engine struct {
	source Source
	config *config.SearchConfig
}

// NewEngine creates a search engine over source.
func NewEngine(source Source, cfg *config.SearchConfig) *Engine {
	return &Engine{source: source, config: cfg}
}

// Search runs hybrid search and returns chunk-level results.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	topK := e.config.TopKCandidates
	if topK < query.Limit {
		topK = query.Limit
	}
	kw := e.source.KeywordIndex()

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.Result
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if query.KeywordEnabled && kw != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := kw.Search(ctx, query.Query, topK, &keyword.SearchOptions{
				TitleBoost:   2.0,
				FuzzyEnabled: query.FuzzyEnabled,
				Area:         query.Area,
			})
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if query.SemanticEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := e.source.Embedder().Embed(ctx, query.Query)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			results, err := e.source.VectorIndex().Search(ctx, queryEmbedding, topK)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	kwWeight, semWeight := e.weights(query)
	fused := Fuse(NormalizeKeywordScores(keywordResults), NormalizeSemanticScores(semanticResults), kwWeight, semWeight)

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, query.Limit),
		Query:   query.Query,
	}
	for _, r := range fused {
		if query.MinScore > 0 && r.Score < query.MinScore {
			continue
		}
		rec, err := e.source.Get(ctx, r.ID)
		if errors.Is(err, collection.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if query.Area != "" && !strings.EqualFold(rec.Area(), query.Area) {
			continue
		}
		response.Total++
		if len(response.Results) < query.Limit {
			response.Results = append(response.Results, &models.SearchResult{
				Record:        rec,
				Score:         r.Score,
				KeywordScore:  r.KeywordScore,
				SemanticScore: r.SemanticScore,
				Rank:          len(response.Results) + 1,
			})
		}
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// weights returns the fusion weights, giving the whole weight to the only
// enabled side when the other is off.
func (e *Engine) weights(query *models.SearchQuery) (float64, float64) {
	kw, sem := e.config.KeywordWeight, e.config.SemanticWeight
	if kw <= 0 && sem <= 0 {
		kw, sem = 0.5, 0.5
	}
	switch {
	case !query.KeywordEnabled || e.source.KeywordIndex() == nil:
		return 0, 1
	case !query.SemanticEnabled:
		return 1, 0
	}
	return kw, sem
}
