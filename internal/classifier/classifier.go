// Package classifier assigns an area to an article by majority vote over its
// nearest neighbours in the collection, asking the generation service to break
// ties.
package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/generation"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/tools"
	"github.com/hyperjump/scireview/pkg/utils"
)

// Unclassified is returned whenever no area can be decided.
const Unclassified = "unclassified"

const (
	DefaultTopK         = 3
	DefaultExcerptWords = 300
	neighbourChars      = 4000
)

// CategorySchema is the structured output of a tie-break call.
var CategorySchema = &generation.Schema{
	Name: "classification",
	Fields: []generation.Field{
		{Name: "category", Type: generation.String, Description: "The name of the area."},
	},
}

const systemPrompt = `You are a senior librarian. Your only job is to classify a scientific article into one of the existing areas of the article database.
Use search_articles to find similar articles and look at their 'area' field. If the results are mixed, prefer the majority.
If there is no clear match, use get_article_content to read one relevant article and decide from its content.
Answer with one of the listed areas, spelled exactly as listed.`

// Collection is what the classifier reads from the article collection.
type Collection interface {
	tools.Collection
	Areas(ctx context.Context) ([]string, error)
}

// Classifier implements retrieval-augmented classification.
type Classifier struct {
	coll         Collection
	gen          generation.Service
	tools        []generation.Tool
	topK         int
	excerptWords int
	logger       *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// WithTopK sets how many neighbours vote. Non-positive values keep the default.
func WithTopK(k int) Option {
	return func(c *Classifier) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithExcerptWords sets how many leading words of the article form the query.
func WithExcerptWords(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.excerptWords = n
		}
	}
}

// New creates a classifier. gen may be nil, in which case ties are unclassified.
func New(coll Collection, gen generation.Service, opts ...Option) *Classifier {
	c := &Classifier{
		coll:         coll,
		gen:          gen,
		tools:        tools.New(coll).GenerationTools(),
		topK:         DefaultTopK,
		excerptWords: DefaultExcerptWords,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.LoggerOrNop(c.logger)
	return c
}

// Classify returns the article's area or Unclassified. It never fails.
func (c *Classifier) Classify(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return Unclassified
	}
	excerpt := utils.FirstWords(text, c.excerptWords)
	res, err := c.coll.Query(ctx, []string{excerpt}, c.topK)
	if err != nil {
		c.logger.Warn("classifier query failed", zap.Error(err))
		return Unclassified
	}
	if len(res) == 0 || len(res[0]) == 0 {
		c.logger.Info("classifier found no neighbours")
		return Unclassified
	}
	neighbours := res[0]
	if area, ok := Majority(neighbours); ok {
		c.logger.Debug("classified by majority", zap.String("area", area), zap.Int("neighbours", len(neighbours)))
		return area
	}
	return c.tieBreak(ctx, excerpt, neighbours)
}

// Majority returns the area held by more than half of the neighbours.
// Neighbours without an area count towards the total but never win.
func Majority(neighbours []models.QueryResult) (string, bool) {
	counts := make(map[string]int)
	for _, n := range neighbours {
		if a := n.Area(); a != "" {
			counts[a]++
		}
	}
	for area, n := range counts {
		if 2*n > len(neighbours) {
			return area, true
		}
	}
	return "", false
}

func (c *Classifier) tieBreak(ctx context.Context, excerpt string, neighbours []models.QueryResult) string {
	if c.gen == nil {
		return Unclassified
	}
	areas, err := c.coll.Areas(ctx)
	if err != nil || len(areas) == 0 {
		c.logger.Warn("classifier could not list areas", zap.Error(err))
		return Unclassified
	}
	nearest, err := c.coll.Get(ctx, neighbours[0].ID)
	if err != nil {
		c.logger.Warn("classifier lookup failed", zap.String("id", neighbours[0].ID), zap.Error(err))
		return Unclassified
	}

	resp, err := c.gen.Invoke(ctx, generation.Request{
		System: systemPrompt,
		Prompt: tieBreakPrompt(areas, excerpt, neighbours, nearest),
		Tools:  c.tools,
		Schema: CategorySchema,
	})
	if err != nil {
		c.logger.Warn("classifier tie-break failed", zap.Error(err))
		return Unclassified
	}
	label, _ := resp.Fields["category"].(string)
	if area, ok := matchArea(areas, label); ok {
		c.logger.Debug("classified by tie-break", zap.String("area", area))
		return area
	}
	c.logger.Warn("classifier returned an unknown area", zap.String("label", label))
	return Unclassified
}

func tieBreakPrompt(areas []string, excerpt string, neighbours []models.QueryResult, nearest *models.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Known areas: %s\n\n", strings.Join(areas, ", "))

	b.WriteString("Nearest articles in the database (distance, lower is closer):\n")
	for _, n := range neighbours {
		area := n.Area()
		if area == "" {
			area = "unknown"
		}
		fmt.Fprintf(&b, "- %s [%s] %.4f\n", n.ID, area, n.Distance)
	}
	fmt.Fprintf(&b, "\nFull text of the nearest article %s (area %s):\n%s\n",
		nearest.ID, nearest.Area(), utils.Truncate(nearest.Document, neighbourChars))
	fmt.Fprintf(&b, "\nArticle to classify:\n%s\n", excerpt)
	return b.String()
}

// matchArea returns the canonical spelling of label among areas, ignoring case.
func matchArea(areas []string, label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	sorted := append([]string(nil), areas...)
	sort.Strings(sorted)
	for _, a := range sorted {
		if strings.EqualFold(a, label) {
			return a, true
		}
	}
	return "", false
}
