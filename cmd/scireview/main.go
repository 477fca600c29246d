// Package main is the scireview CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/chunker"
	"github.com/hyperjump/scireview/internal/classifier"
	"github.com/hyperjump/scireview/internal/cli"
	"github.com/hyperjump/scireview/internal/collection"
	"github.com/hyperjump/scireview/internal/config"
	"github.com/hyperjump/scireview/internal/embedding"
	"github.com/hyperjump/scireview/internal/generation"
	"github.com/hyperjump/scireview/internal/ingest"
	"github.com/hyperjump/scireview/internal/mcpserver"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/pipeline"
	"github.com/hyperjump/scireview/internal/reader"
	"github.com/hyperjump/scireview/internal/search"
	"github.com/hyperjump/scireview/internal/server"
	"github.com/hyperjump/scireview/internal/storage"
	"github.com/hyperjump/scireview/internal/watcher"
	"github.com/hyperjump/scireview/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/scireview/config.yaml"
	defaultCorpusDir  = "articles"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists. When no file exists at the default path
// either, built-in defaults are used with secrets from the environment and ./.env.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := config.Default()
			if err := config.LoadSecrets(cfg, ".env"); err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "create":
		runCreate()
	case "run":
		runReview()
	case "search":
		runSearch()
	case "get":
		runGet()
	case "status":
		runStatus()
	case "server":
		runServer()
	case "mcp":
		runMCP()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("scireview version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger and components. It exits on failure.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

func runCreate() {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	inputDir := fs.String("input-dir", "", "corpus root: one subdirectory per area, PDFs inside (default: watch.root or ./articles)")
	reset := fs.Bool("reset-db", false, "delete every record before ingesting")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	root := corpusRoot(*inputDir, cfg)
	ing, err := components.Ingester(*reset)
	if err != nil {
		logger.Fatal("Failed to build ingester", zap.Error(err))
	}
	n, err := ing.Ingest(context.Background(), root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d chunk(s) from %s\n", n, root)
}

func runReview() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	filePath := fs.String("file-path", "", "article to review (.pdf, .url, .docx, .odt, .rtf or plain text)")
	outputFormat := fs.String("format", "text", "output format: text or json")
	noSave := fs.Bool("no-save", false, "do not write result files next to the article")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	path := *filePath
	if path == "" && fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fmt.Println("Usage: scireview run --file-path <article>")
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	if components.Generator == nil {
		logger.Warn("GEMINI_API_KEY is not set; extraction and review will fall back")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := reader.New(reader.WithLogger(logger)).ReadArticle(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read article: %v\n", err)
		os.Exit(1)
	}
	result := components.Pipeline.Run(ctx, text)

	if !*noSave {
		artifacts, err := cli.SaveArtifacts(path, result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save results: %v\n", err)
			os.Exit(1)
		}
		logger.Info("results saved",
			zap.String("full", artifacts.Full),
			zap.String("extraction", artifacts.Extraction),
			zap.String("review", artifacts.Review),
		)
	}
	if err := cli.WriteResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: scireview search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  scireview search protein folding
  scireview search --area biology "gene expression"
  scireview search --keyword=false neural networks   # semantic-only
  scireview search --fuzzy enzime                     # typo-tolerant search
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the collection directly)")
	limit := fs.Int("limit", 10, "number of results")
	area := fs.String("area", "", "restrict results to one area")
	minScore := fs.Float64("min-score", 0, "minimum fused score")
	kwEnabled := fs.Bool("keyword", true, "enable keyword search")
	semEnabled := fs.Bool("semantic", true, "enable semantic search")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		Query:           queryStr,
		Limit:           *limit,
		Area:            *area,
		MinScore:        *minScore,
		KeywordEnabled:  *kwEnabled,
		SemanticEnabled: *semEnabled,
		FuzzyEnabled:    *fuzzyEnabled,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		// the running server holds the Bleve lock
		response, err = postJSON[models.SearchResponse](*serverURL+"/api/v1/search", searchQuery)
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		response, err = components.Engine.Search(context.Background(), searchQuery)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runGet() {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: scireview get [flags] <chunk-id>")
		os.Exit(1)
	}
	format, err := parseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	rec, err := components.Collection.Get(context.Background(), fs.Arg(0))
	if errors.Is(err, collection.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Chunk %s not found\n", fs.Arg(0))
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Get failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecord(os.Stdout, rec, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusConfig holds configuration info returned by status.
type statusConfig struct {
	EmbeddingModel      string `json:"embedding_model,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	GenerationModel     string `json:"generation_model,omitempty"`
	MaxSentences        int    `json:"max_sentences,omitempty"`
	Overlap             int    `json:"overlap"`
	DatabasePath        string `json:"database_path,omitempty"`
	KeywordIndexPath    string `json:"keyword_index_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Chunks          int64         `json:"chunks"`
	Articles        int64         `json:"articles"`
	Areas           []string      `json:"areas"`
	VectorIndexSize int           `json:"vector_index_size"`
	DiskUsageBytes  *int64        `json:"disk_usage_bytes,omitempty"`
	Config          *statusConfig `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open the collection directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status *statusResponse
	var err error
	if *serverURL != "" {
		status, err = getJSON[statusResponse](*serverURL + "/api/v1/status")
	} else {
		cfg, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		status, err = localStatus(context.Background(), cfg, components.Collection)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeStatus(os.Stdout, status, *outputFormat); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func localStatus(ctx context.Context, cfg *config.Config, coll *collection.Collection) (*statusResponse, error) {
	chunks, err := coll.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	articles, err := coll.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	areas, err := coll.Areas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	status := &statusResponse{
		Chunks:          chunks,
		Articles:        articles,
		Areas:           areas,
		VectorIndexSize: coll.VectorIndex().Size(),
		Config: &statusConfig{
			EmbeddingModel:      coll.Embedder().ModelName(),
			EmbeddingDimensions: coll.Embedder().Dimensions(),
			GenerationModel:     cfg.Generation.Model,
			MaxSentences:        cfg.Chunking.MaxSentences,
			Overlap:             cfg.Chunking.OverlapOrDefault(),
			DatabasePath:        cfg.Storage.DatabasePath,
			KeywordIndexPath:    cfg.Storage.KeywordIndexPath,
		},
	}
	paths := storage.DatabaseFiles(cfg.Storage.DatabasePath)
	if cfg.Storage.KeywordIndexPath != "" {
		paths = append(paths, cfg.Storage.KeywordIndexPath)
	}
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatus(w io.Writer, status *statusResponse, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "text":
		fmt.Fprintf(w, "chunks:             %d   # count of stored chunks\n", status.Chunks)
		fmt.Fprintf(w, "articles:           %d   # count of ingested articles\n", status.Articles)
		fmt.Fprintf(w, "areas:              %s\n", strings.Join(status.Areas, ", "))
		fmt.Fprintf(w, "vector_index_size:  %d   # count of vectors in memory\n", status.VectorIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + keyword index on disk\n", *status.DiskUsageBytes)
		}
		if c := status.Config; c != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "# configuration")
			fmt.Fprintf(w, "embedding_model:    %s (%d dims)\n", c.EmbeddingModel, c.EmbeddingDimensions)
			if c.GenerationModel != "" {
				fmt.Fprintf(w, "generation_model:   %s\n", c.GenerationModel)
			}
			fmt.Fprintf(w, "chunking:           %d sentences, overlap %d\n", c.MaxSentences, c.Overlap)
			if c.DatabasePath != "" {
				fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
			}
			if c.KeywordIndexPath != "" {
				fmt.Fprintf(w, "keyword_index_path: %s\n", c.KeywordIndexPath)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q; use text or json", format)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	noWatch := fs.Bool("no-watch", false, "do not re-ingest when the corpus changes")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !*noWatch && cfg.Watch.Root != "" {
		w, err := components.Watcher(cfg.Watch.Root)
		if err != nil {
			logger.Fatal("Failed to build watcher", zap.Error(err))
		}
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(server.Deps{
		Collection: components.Collection,
		Engine:     components.Engine,
		Classifier: components.Classifier,
		Pipeline:   components.Pipeline,
		MCP:        mcpserver.NewServer(components.Collection, logger).Handler(),
	}, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func runMCP() {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	httpAddr := fs.String("http", "", "serve streamable HTTP on this address instead of stdio")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := mcpserver.TransportStdio
	if *httpAddr != "" {
		transport = mcpserver.TransportHTTP
	}
	if err := mcpserver.NewServer(components.Collection, logger).Run(ctx, transport, *httpAddr); err != nil && ctx.Err() == nil {
		logger.Fatal("MCP server failed", zap.Error(err))
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	inputDir := fs.String("input-dir", "", "corpus root to watch (default: watch.root or ./articles)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := corpusRoot(*inputDir, cfg)
	w, err := components.Watcher(root)
	if err != nil {
		logger.Fatal("Failed to build watcher", zap.Error(err))
	}
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", root)
	<-ctx.Done()
}

func corpusRoot(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.Watch.Root != "" {
		return cfg.Watch.Root
	}
	return defaultCorpusDir
}

func parseFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func getJSON[T any](url string) (*T, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse[T](resp)
}

func postJSON[T any](url string, body any) (*T, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse[T](resp)
}

func decodeResponse[T any](resp *http.Response) (*T, error) {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Components holds initialized services.
type Components struct {
	Config     *config.Config
	Logger     *zap.Logger
	GenAI      *genai.Client
	Collection *collection.Collection
	Generator  generation.Service
	Classifier *classifier.Classifier
	Pipeline   *pipeline.Pipeline
	Engine     *search.Engine
}

func (c *Components) Close() {
	if c.Collection != nil {
		_ = c.Collection.Close()
		_ = c.Collection.Embedder().Close()
	}
	if c.GenAI != nil {
		_ = c.GenAI.Close()
	}
}

// Ingester builds the corpus ingester over the collection.
func (c *Components) Ingester(reset bool) (*ingest.Ingester, error) {
	splitter, err := chunker.NewPunktSplitter()
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence splitter: %w", err)
	}
	ch, err := chunker.NewChunker(splitter, c.Config.Chunking.MaxSentences, c.Config.Chunking.OverlapOrDefault())
	if err != nil {
		return nil, err
	}
	return ingest.NewIngester(c.Collection, ch, ingest.WithLogger(c.Logger), ingest.WithReset(reset)), nil
}

// Watcher builds a watcher that rebuilds the collection from root whenever
// the corpus changes.
func (c *Components) Watcher(root string) (*watcher.Watcher, error) {
	ing, err := c.Ingester(true)
	if err != nil {
		return nil, err
	}
	onChange := func(ctx context.Context) {
		n, err := ing.Ingest(ctx, root)
		if err != nil {
			c.Logger.Warn("re-ingest failed", zap.String("root", root), zap.Error(err))
			return
		}
		c.Logger.Info("corpus re-ingested", zap.String("root", root), zap.Int("chunks", n))
	}
	return watcher.NewWatcher(root, onChange,
		watcher.WithLogger(c.Logger),
		watcher.WithDebounce(time.Duration(c.Config.Watch.DebounceMillis)*time.Millisecond),
	), nil
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: logger}

	if cfg.Secrets.GeminiAPIKey != "" {
		client, err := generation.NewClient(ctx, cfg.Secrets.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		c.GenAI = client
		c.Generator = generation.NewGemini(client, cfg.Generation, generation.WithLogger(logger))
	}

	embedder, err := embedding.New(cfg.Embedding, c.GenAI, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	coll, err := collection.Open(ctx, collection.Options{
		DatabasePath:     cfg.Storage.DatabasePath,
		KeywordIndexPath: cfg.Storage.KeywordIndexPath,
		Embedder:         embedder,
		Logger:           logger,
	})
	if err != nil {
		_ = embedder.Close()
		c.Close()
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	c.Collection = coll

	c.Classifier = classifier.New(coll, c.Generator,
		classifier.WithLogger(logger),
		classifier.WithTopK(cfg.Classifier.TopK),
		classifier.WithExcerptWords(cfg.Classifier.ExcerptWords),
	)
	c.Pipeline = pipeline.New(c.Classifier, c.Generator,
		pipeline.WithLogger(logger),
		pipeline.WithConcurrentStages(cfg.Pipeline.ConcurrentStages),
	)
	c.Engine = search.NewEngine(coll, &cfg.Search)
	return c, nil
}

func printUsage() {
	fmt.Println(`scireview - classify, extract and review scientific articles

Usage:
  scireview create [flags]            Build the article collection from a corpus directory
  scireview run [flags] <article>     Classify, extract and review one article
  scireview search [flags] <query>    Hybrid search over stored chunks
  scireview get [flags] <chunk-id>    Show one stored chunk
  scireview status [flags]            Show collection status
  scireview server [flags]            Start the HTTP API (and /mcp)
  scireview mcp [flags]               Serve the article tools over MCP
  scireview watch [flags]             Re-ingest the corpus whenever it changes
  scireview version                   Show version
  scireview help                      Show this help

Create Flags:
  --input-dir string   Corpus root, one subdirectory per area (default: watch.root or ./articles)
  --reset-db           Delete every record before ingesting

Run Flags:
  --file-path string   Article path (.pdf, .url, .docx, .odt, .rtf or plain text)
  --format string      Output format: text or json (default: text)
  --no-save            Do not write <name>_full.json, <name>_extraction.json, <name>_review.md

Search Flags:
  --server string      Server URL; empty opens the collection directly
  --limit int          Number of results (default: 10)
  --area string        Restrict to one area
  --min-score float    Minimum fused score
  --keyword, --semantic, --fuzzy
  --output string      Output format: text or json

MCP Flags:
  --http string        Serve streamable HTTP on this address instead of stdio

Common Flags:
  --config string      Config file path (default: /usr/local/etc/scireview/config.yaml, or ./config.yaml)
  --debug              Enable debug logging

Environment:
  GEMINI_API_KEY                 Enables generation (and Gemini embeddings)
  SCIREVIEW_GENERATION_MODEL     Overrides generation.model
  SCIREVIEW_EMBEDDING_MODEL      Overrides embedding.model

Examples:
  scireview create --input-dir ./articles --reset-db
  scireview run --file-path paper.pdf
  scireview run --format json --no-save paper.url
  scireview search --area economics "interest rates"
  scireview mcp --http localhost:8090`)
}
