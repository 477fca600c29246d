package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/scireview/internal/config"
)

// scriptedChat replays canned responses and records what was sent.
type scriptedChat struct {
	replies []*genai.GenerateContentResponse
	sent    [][]genai.Part
}

func (s *scriptedChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.sent = append(s.sent, parts)
	if len(s.replies) == 0 {
		return nil, errors.New("no more replies")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func reply(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

var echoTool = Tool{
	Name:   "lookup",
	Params: []Param{{Name: "id", Type: String, Required: true}},
	Handler: func(_ context.Context, args map[string]any) (any, error) {
		if args["id"] == "missing" {
			return nil, errors.New("not found")
		}
		return []map[string]string{{"id": args["id"].(string)}}, nil
	},
}

func TestRunChat_ToolLoop(t *testing.T) {
	chat := &scriptedChat{replies: []*genai.GenerateContentResponse{
		reply(genai.FunctionCall{Name: "lookup", Args: map[string]any{"id": "id7"}}),
		reply(genai.FunctionCall{Name: "lookup", Args: map[string]any{"id": "missing"}}, genai.FunctionCall{Name: "nope"}),
		reply(genai.Text(`{"category": "biology"}`)),
	}}

	text, err := runChat(context.Background(), chat, "classify", []Tool{echoTool}, 4, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, `{"category": "biology"}`, text)
	require.Len(t, chat.sent, 3)

	first := chat.sent[1][0].(genai.FunctionResponse)
	assert.Equal(t, "lookup", first.Name)
	assert.Equal(t, []any{map[string]any{"id": "id7"}}, first.Response["result"])

	second := chat.sent[2]
	require.Len(t, second, 2)
	assert.Equal(t, "not found", second[0].(genai.FunctionResponse).Response["error"])
	assert.Contains(t, second[1].(genai.FunctionResponse).Response["error"], "unknown tool")
}

func TestRunChat_RoundLimit(t *testing.T) {
	call := reply(genai.FunctionCall{Name: "lookup", Args: map[string]any{"id": "x"}})
	chat := &scriptedChat{replies: []*genai.GenerateContentResponse{call, call, call}}

	_, err := runChat(context.Background(), chat, "loop", []Tool{echoTool}, 2, zap.NewNop())
	assert.ErrorIs(t, err, ErrToolLoop)
}

func TestRunChat_EmptyResponse(t *testing.T) {
	chat := &scriptedChat{replies: []*genai.GenerateContentResponse{{}}}
	_, err := runChat(context.Background(), chat, "hi", nil, 1, zap.NewNop())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func testGemini(retries int, gen func(ctx context.Context, req Request) (string, error)) *Gemini {
	g := NewGemini(nil, config.GenerationConfig{Model: "test", MaxRetries: retries})
	g.backoff = time.Millisecond
	g.generate = gen
	return g
}

func TestGemini_RetriesThenSucceeds(t *testing.T) {
	calls := 0
	g := testGemini(2, func(context.Context, Request) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return `{"problem": "p", "steps": ["s"]}`, nil
	})

	resp, err := g.Invoke(context.Background(), Request{Prompt: "x", Schema: testSchema})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"s"}, resp.Fields["steps"])
}

func TestGemini_InvalidOutputIsRetriedAndReported(t *testing.T) {
	calls := 0
	g := testGemini(1, func(context.Context, Request) (string, error) {
		calls++
		return `{"problem": ""}`, nil
	})

	_, err := g.Invoke(context.Background(), Request{Schema: testSchema})
	assert.ErrorIs(t, err, ErrInvalidOutput)
	assert.Equal(t, 2, calls)
}

func TestGemini_BreakerOpens(t *testing.T) {
	calls := 0
	g := testGemini(0, func(context.Context, Request) (string, error) {
		calls++
		return "", errors.New("down")
	})

	for i := 0; i < 3; i++ {
		_, err := g.Invoke(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
	}
	_, err := g.Invoke(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls)
}

func TestGemini_CancelledContext(t *testing.T) {
	g := testGemini(2, func(ctx context.Context, _ Request) (string, error) {
		return "", ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Invoke(ctx, Request{Prompt: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGemini_NoClient(t *testing.T) {
	g := NewGemini(nil, config.GenerationConfig{Model: "test"})
	_, err := g.Invoke(context.Background(), Request{Prompt: "x"})
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	var svc Service = Func(func(_ context.Context, req Request) (*Response, error) {
		return &Response{Text: req.Prompt}, nil
	})
	resp, err := svc.Invoke(context.Background(), Request{Prompt: "echo"})
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.Text)
}

func TestToolDeclaration(t *testing.T) {
	tools := toolset([]Tool{echoTool})
	require.Len(t, tools, 1)
	decl := tools[0].FunctionDeclarations[0]
	assert.Equal(t, "lookup", decl.Name)
	assert.Equal(t, []string{"id"}, decl.Parameters.Required)
	assert.Nil(t, toolset(nil))
}
