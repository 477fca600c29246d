// Package generation is the language-model boundary: a Service turns a prompt,
// optional tools and an optional output schema into text or validated fields.
package generation

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model produced no candidate text.
var ErrEmptyResponse = errors.New("empty model response")

// Request is one generation call.
type Request struct {
	System string
	Prompt string
	Tools  []Tool
	// Schema, when set, makes the call return validated Fields.
	Schema *Schema
}

// Response holds the raw text and, for schema requests, the parsed fields.
type Response struct {
	Text   string
	Fields map[string]any
}

// Service invokes a language model.
type Service interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to Service.
type Func func(ctx context.Context, req Request) (*Response, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
