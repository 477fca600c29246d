// Package pipeline runs an article through classify, extract and review.
// Every stage has a fallback, so a run always yields a complete Result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/scireview/internal/classifier"
	"github.com/hyperjump/scireview/internal/generation"
	"github.com/hyperjump/scireview/pkg/utils"
)

var errNoGenerator = errors.New("generation service is not configured")

const extractSystemPrompt = `You are a research assistant. Extract the core problem, the step by step method and the conclusion of the scientific article you are given. Use only information present in the article.`

// Classifier decides an article's area. *classifier.Classifier satisfies it.
type Classifier interface {
	Classify(ctx context.Context, text string) string
}

// Pipeline is the classify → extract → review state machine.
type Pipeline struct {
	classifier Classifier
	gen        generation.Service
	concurrent bool
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithConcurrentStages runs extract and review side by side after classify.
func WithConcurrentStages(on bool) Option {
	return func(p *Pipeline) { p.concurrent = on }
}

// New creates a pipeline. Either collaborator may be nil; the affected stages
// then produce their fallbacks.
func New(cls Classifier, gen generation.Service, opts ...Option) *Pipeline {
	p := &Pipeline{classifier: cls, gen: gen}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.LoggerOrNop(p.logger)
	return p
}

// Run processes one article. It never fails: stage failures are recorded as
// fallback values inside the Result.
func (p *Pipeline) Run(ctx context.Context, text string) Result {
	return p.RunState(ctx, text).Result()
}

// RunState is Run returning the final State.
func (p *Pipeline) RunState(ctx context.Context, text string) *State {
	log := p.logger.With(zap.String("run_id", uuid.NewString()))
	state := NewState(text)
	start := time.Now()

	_ = state.SetArea(p.classify(ctx, log, text))

	if p.concurrent {
		var g errgroup.Group
		g.Go(func() error { return state.SetExtraction(p.extract(ctx, log, text)) })
		g.Go(func() error { return state.SetReview(p.review(ctx, log, text)) })
		_ = g.Wait()
	} else {
		_ = state.SetExtraction(p.extract(ctx, log, text))
		_ = state.SetReview(p.review(ctx, log, text))
	}

	log.Info("pipeline finished",
		zap.String("stage", state.Stage().String()),
		zap.String("area", state.Result().Area),
		zap.Duration("took", time.Since(start)),
	)
	return state
}

func (p *Pipeline) classify(ctx context.Context, log *zap.Logger, text string) (area string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("classify stage panicked", zap.Any("panic", r))
			area = classifier.Unclassified
		}
	}()
	if p.classifier == nil {
		return classifier.Unclassified
	}
	area = p.classifier.Classify(ctx, text)
	if area == "" {
		area = classifier.Unclassified
	}
	log.Debug("classify stage done", zap.String("area", area))
	return area
}

func (p *Pipeline) extract(ctx context.Context, log *zap.Logger, text string) (out Extraction) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("extract stage panicked", zap.Any("panic", r))
			out = FallbackExtraction(fmt.Errorf("panic: %v", r))
		}
	}()
	if p.gen == nil {
		return FallbackExtraction(errNoGenerator)
	}
	resp, err := p.gen.Invoke(ctx, generation.Request{
		System: extractSystemPrompt,
		Prompt: "Article:\n" + text,
		Schema: ExtractionSchema,
	})
	if err != nil {
		log.Warn("extract stage failed", zap.Error(err))
		return FallbackExtraction(err)
	}
	e, err := ExtractionFromFields(resp.Fields)
	if err != nil {
		log.Warn("extract stage returned invalid output", zap.Error(err))
		return FallbackExtraction(err)
	}
	log.Debug("extract stage done", zap.Int("steps", len(e.Steps)))
	return e
}

func (p *Pipeline) review(ctx context.Context, log *zap.Logger, text string) (md string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("review stage panicked", zap.Any("panic", r))
			md = FallbackReview(fmt.Errorf("panic: %v", r))
		}
	}()
	if p.gen == nil {
		return FallbackReview(errNoGenerator)
	}
	resp, err := p.gen.Invoke(ctx, generation.Request{
		System: reviewSystemPrompt,
		Prompt: reviewPrompt(text),
	})
	if err != nil {
		log.Warn("review stage failed", zap.Error(err))
		return FallbackReview(err)
	}
	if err := ValidateReview(resp.Text); err != nil {
		log.Warn("review stage returned invalid output", zap.Error(err))
		return FallbackReview(err)
	}
	log.Debug("review stage done", zap.Int("chars", len(resp.Text)))
	return resp.Text
}
