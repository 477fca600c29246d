// Package server provides the HTTP API for scireview.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/config"
	"github.com/hyperjump/scireview/internal/embedding"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/pipeline"
	"github.com/hyperjump/scireview/internal/vector"
	"github.com/hyperjump/scireview/pkg/utils"
)

// Collection is the read side of the article collection used by the API.
// *collection.Collection satisfies it.
type Collection interface {
	Get(ctx context.Context, id string) (*models.Record, error)
	Count(ctx context.Context) (int64, error)
	Sources(ctx context.Context) (int64, error)
	Areas(ctx context.Context) ([]string, error)
	VectorIndex() vector.Index
	Embedder() embedding.Embedder
}

// Searcher runs hybrid chunk search.
type Searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
}

// Classifier assigns an area to article text.
type Classifier interface {
	Classify(ctx context.Context, text string) string
}

// Reviewer runs the full pipeline.
type Reviewer interface {
	Run(ctx context.Context, text string) pipeline.Result
}

// Deps are the components behind the API. MCP is optional and, when set, is
// mounted at /mcp.
type Deps struct {
	Collection Collection
	Engine     Searcher
	Classifier Classifier
	Pipeline   Reviewer
	MCP        http.Handler
}

// Server is the HTTP server for the scireview API.
type Server struct {
	deps   Deps
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		deps:   deps,
		config: cfg,
		logger: utils.LoggerOrNop(logger),
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.deps.MCP != nil {
		r.Handle("/mcp", s.deps.MCP)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Use(middleware.Compress(5))
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/chunks/{id}", s.handleGetChunk)
			r.With(middleware.Timeout(60*time.Second)).Post("/search", s.handleSearch)
			// generation-backed routes get the generation timeout plus headroom for retries
			timeout := s.generationTimeout()
			r.With(middleware.Timeout(timeout)).Post("/classify", s.handleClassify)
			r.With(middleware.Timeout(timeout)).Post("/review", s.handleReview)
		})
	})
	return r
}

func (s *Server) generationTimeout() time.Duration {
	secs := 120
	retries := 2
	if s.config != nil && s.config.Generation.TimeoutSeconds > 0 {
		secs = s.config.Generation.TimeoutSeconds
		retries = s.config.Generation.MaxRetries
	}
	// two stages, each with its own retries
	return 2 * time.Duration(retries+1) * time.Duration(secs) * time.Second
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
