package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// Param is one tool argument.
type Param struct {
	Name        string
	Description string
	Type        FieldType
	Required    bool
}

// Tool is a function the model may call while answering. Handler receives
// decoded JSON arguments (numbers as float64) and returns any JSON-encodable
// value.
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Handler     func(ctx context.Context, args map[string]any) (any, error)
}

func (t Tool) declaration() *genai.FunctionDeclaration {
	params := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(t.Params)),
	}
	for _, p := range t.Params {
		params.Properties[p.Name] = fieldSchema(p.Type, p.Description)
		if p.Required {
			params.Required = append(params.Required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  params,
	}
}

func toolset(tools []Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = t.declaration()
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// callTool runs the named tool. Failures are reported back to the model as an
// "error" field rather than aborting the call.
func callTool(ctx context.Context, tools []Tool, call genai.FunctionCall) genai.FunctionResponse {
	for _, t := range tools {
		if t.Name != call.Name {
			continue
		}
		out, err := t.Handler(ctx, call.Args)
		if err != nil {
			return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": err.Error()}}
		}
		resp, err := toObject(out)
		if err != nil {
			return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": err.Error()}}
		}
		return genai.FunctionResponse{Name: call.Name, Response: resp}
	}
	return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}}
}

// toObject converts v to plain JSON values. Non-object results are wrapped
// under "result".
func toObject(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil && obj != nil {
		return obj, nil
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, fmt.Errorf("failed to decode tool result: %w", err)
	}
	return map[string]any{"result": plain}, nil
}
