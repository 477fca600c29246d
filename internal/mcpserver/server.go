// Package mcpserver exposes the article tools over the Model Context Protocol.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/tools"
	"github.com/hyperjump/scireview/pkg/utils"
)

// Version is the MCP server version.
const Version = "0.1.0"

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// SearchArticlesInput is the input schema for search_articles.
type SearchArticlesInput struct {
	Query    string `json:"query" jsonschema:"text or summary of the article being analysed"`
	NResults int    `json:"n_results,omitempty" jsonschema:"number of matches to return (default 3)"`
}

// SearchArticlesOutput is the output schema for search_articles.
type SearchArticlesOutput struct {
	Results []tools.ArticleHit `json:"results"`
}

// GetArticleContentInput is the input schema for get_article_content.
type GetArticleContentInput struct {
	ArticleID string `json:"article_id" jsonschema:"article id returned by search_articles"`
}

// Server is the MCP server for the article collection.
type Server struct {
	articles *tools.Articles
	server   *mcp.Server
	logger   *zap.Logger
}

// NewServer creates an MCP server over the given collection.
func NewServer(coll tools.Collection, logger *zap.Logger) *Server {
	s := &Server{
		articles: tools.New(coll),
		server:   mcp.NewServer(&mcp.Implementation{Name: "scireview", Version: Version}, nil),
		logger:   utils.LoggerOrNop(logger),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        tools.SearchArticlesName,
		Description: tools.SearchArticlesDescription,
	}, s.handleSearchArticles)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        tools.GetArticleContentName,
		Description: tools.GetArticleContentDescription,
	}, s.handleGetArticleContent)
}

func (s *Server) handleSearchArticles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchArticlesInput,
) (*mcp.CallToolResult, SearchArticlesOutput, error) {
	s.logger.Debug("mcp search_articles", zap.String("query", input.Query), zap.Int("n_results", input.NResults))
	hits, err := s.articles.SearchArticles(ctx, input.Query, input.NResults)
	if err != nil {
		return nil, SearchArticlesOutput{}, err
	}
	return nil, SearchArticlesOutput{Results: hits}, nil
}

func (s *Server) handleGetArticleContent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetArticleContentInput,
) (*mcp.CallToolResult, tools.ArticleContent, error) {
	s.logger.Debug("mcp get_article_content", zap.String("article_id", input.ArticleID))
	content, err := s.articles.GetArticleContent(ctx, input.ArticleID)
	if err != nil {
		return nil, tools.ArticleContent{}, err
	}
	return nil, *content, nil
}

// Run serves over the named transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport, addr string) error {
	switch transport {
	case "", TransportStdio:
		return s.RunStdio(ctx)
	case TransportHTTP:
		return s.RunHTTP(ctx, addr)
	default:
		return fmt.Errorf("transport %q is not supported", transport)
	}
}

// RunStdio serves over stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t. Used for in-process clients.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

// Handler returns the streamable HTTP handler, for mounting in another router.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info("Starting MCP server", zap.String("addr", addr))
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
