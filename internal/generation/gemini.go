package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/hyperjump/scireview/internal/config"
	"github.com/hyperjump/scireview/pkg/utils"
)

// ErrToolLoop is returned when the model keeps calling tools past the round limit.
var ErrToolLoop = errors.New("tool call limit reached")

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}

// chatSession is the part of *genai.ChatSession the tool loop needs.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini is a Service backed by the Gemini API. Calls are rate limited,
// guarded by a circuit breaker and retried on failure.
type Gemini struct {
	client   *genai.Client
	cfg      config.GenerationConfig
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	backoff  time.Duration
	logger   *zap.Logger
	generate func(ctx context.Context, req Request) (string, error)
}

// GeminiOption configures a Gemini service.
type GeminiOption func(*Gemini)

// WithLogger sets the logger for retries and breaker state changes.
func WithLogger(l *zap.Logger) GeminiOption {
	return func(g *Gemini) { g.logger = l }
}

// NewGemini creates a Gemini-backed Service.
func NewGemini(client *genai.Client, cfg config.GenerationConfig, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		client:  client,
		cfg:     cfg,
		backoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = utils.LoggerOrNop(g.logger)
	g.generate = g.generateContent

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	// RPM limit with some buffer
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)*0.9/60.0), burst)
	} else {
		g.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return g
}

// Invoke runs the request, retrying up to MaxRetries times. Open-breaker and
// context errors are not retried.
func (g *Gemini) Invoke(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := g.backoff << (attempt - 1)
			g.logger.Debug("retrying generation", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		resp, err := g.invokeOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (g *Gemini) invokeOnce(ctx context.Context, req Request) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if g.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(g.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	text := result.(string)
	out := &Response{Text: text}
	if req.Schema != nil {
		fields, err := req.Schema.Parse(text)
		if err != nil {
			return nil, err
		}
		out.Fields = fields
	}
	return out, nil
}

func (g *Gemini) generateContent(ctx context.Context, req Request) (string, error) {
	if g.client == nil {
		return "", errors.New("gemini client is not configured")
	}
	model := g.client.GenerativeModel(g.cfg.Model)
	model.SetTemperature(g.cfg.Temperature)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	prompt := req.Prompt
	if len(req.Tools) > 0 {
		// JSON mode cannot be combined with function calling
		model.Tools = toolset(req.Tools)
		if req.Schema != nil {
			prompt += "\n\n" + req.Schema.Instructions()
		}
	} else if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = req.Schema.genaiSchema()
	}
	return runChat(ctx, model.StartChat(), prompt, req.Tools, g.cfg.MaxToolRounds, g.logger)
}

// runChat sends the prompt and answers function calls until the model replies
// with text or maxRounds tool rounds have been used.
func runChat(ctx context.Context, cs chatSession, prompt string, tools []Tool, maxRounds int, logger *zap.Logger) (string, error) {
	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	for round := 0; ; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}
		if round >= maxRounds {
			return "", fmt.Errorf("%w after %d rounds", ErrToolLoop, round)
		}
		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			logger.Debug("tool call", zap.String("tool", call.Name), zap.Any("args", call.Args))
			parts = append(parts, callTool(ctx, tools, call))
		}
		if resp, err = cs.SendMessage(ctx, parts...); err != nil {
			return "", err
		}
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			calls = append(calls, p)
		case *genai.FunctionCall:
			calls = append(calls, *p)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
