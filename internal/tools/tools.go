// Package tools exposes the article collection as two model-callable tools:
// search_articles and get_article_content.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/scireview/internal/collection"
	"github.com/hyperjump/scireview/internal/generation"
	"github.com/hyperjump/scireview/internal/models"
)

const (
	SearchArticlesName    = "search_articles"
	GetArticleContentName = "get_article_content"

	// DefaultResults is the search_articles default for n_results.
	DefaultResults = 3
	maxResults     = 50

	unknown = "Unknown"
)

const (
	SearchArticlesDescription = "Find the articles in the database most semantically similar to a query. " +
		"Pass relevant information or a summary of the input article as the query, then look at the " +
		"'area' field of the results: if the top results are mostly one area, that is likely the input's area. " +
		"Returns id (needed for get_article_content), title, area and score (distance, lower is better)."
	GetArticleContentDescription = "Retrieve the full text of one article by the id obtained from search_articles. " +
		"Use it only when the search results alone are not enough to decide the area. " +
		"Returns id, title, area and content, or error when the id is unknown."
)

// Collection is the read side of the article collection.
type Collection interface {
	Query(ctx context.Context, texts []string, n int) ([][]models.QueryResult, error)
	Get(ctx context.Context, id string) (*models.Record, error)
}

// ArticleHit is one search_articles result.
type ArticleHit struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Area  string  `json:"area"`
	Score float64 `json:"score"`
}

// ArticleContent is the get_article_content result. Only Error is set when
// the id is unknown.
type ArticleContent struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Area    string `json:"area,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Articles implements the tools over a collection.
type Articles struct {
	coll Collection
}

// New creates the article tools.
func New(coll Collection) *Articles {
	return &Articles{coll: coll}
}

// SearchArticles returns the n nearest chunks to query. n <= 0 means DefaultResults.
func (a *Articles) SearchArticles(ctx context.Context, query string, n int) ([]ArticleHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	if n <= 0 {
		n = DefaultResults
	}
	if n > maxResults {
		n = maxResults
	}
	res, err := a.coll.Query(ctx, []string{query}, n)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	hits := []ArticleHit{}
	if len(res) == 0 {
		return hits, nil
	}
	for _, r := range res[0] {
		hits = append(hits, ArticleHit{
			ID:    r.ID,
			Title: orUnknown(r.Metadata[models.MetaTitle]),
			Area:  orUnknown(r.Area()),
			Score: r.Distance,
		})
	}
	return hits, nil
}

// GetArticleContent returns the stored chunk with the given id. An unknown id
// is reported in the Error field, not as an error.
func (a *Articles) GetArticleContent(ctx context.Context, id string) (*ArticleContent, error) {
	rec, err := a.coll.Get(ctx, id)
	if errors.Is(err, collection.ErrNotFound) {
		return &ArticleContent{Error: fmt.Sprintf("Article with ID %s not found.", id)}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ArticleContent{
		ID:      rec.ID,
		Title:   orUnknown(rec.Title()),
		Area:    orUnknown(rec.Area()),
		Content: rec.Document,
	}, nil
}

// GenerationTools returns both tools in the form the generation service calls.
func (a *Articles) GenerationTools() []generation.Tool {
	return []generation.Tool{
		{
			Name:        SearchArticlesName,
			Description: SearchArticlesDescription,
			Params: []generation.Param{
				{Name: "query", Description: "Text or summary of the article being analysed.", Type: generation.String, Required: true},
				{Name: "n_results", Description: "Number of matches to return (default 3).", Type: generation.Integer},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query, _ := args["query"].(string)
				return a.SearchArticles(ctx, query, intArg(args["n_results"]))
			},
		},
		{
			Name:        GetArticleContentName,
			Description: GetArticleContentDescription,
			Params: []generation.Param{
				{Name: "article_id", Description: "Article id returned by search_articles.", Type: generation.String, Required: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, _ := args["article_id"].(string)
				return a.GetArticleContent(ctx, id)
			},
		},
	}
}

func intArg(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
