package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// ErrInvalidOutput marks model output that does not match the requested schema.
var ErrInvalidOutput = errors.New("invalid model output")

// InvalidOutputError describes which field failed validation.
type InvalidOutputError struct {
	Schema string
	Field  string
	Reason string
}

func (e *InvalidOutputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s: %s", ErrInvalidOutput, e.Schema, e.Reason)
	}
	return fmt.Sprintf("%s: %s.%q: %s", ErrInvalidOutput, e.Schema, e.Field, e.Reason)
}

func (e *InvalidOutputError) Unwrap() error { return ErrInvalidOutput }

// FieldType is the JSON type of a schema field or tool parameter.
type FieldType int

const (
	String FieldType = iota
	StringArray
	Integer
)

// Field is one key of a flat output object. Name is the exact external key.
type Field struct {
	Name        string
	Description string
	Type        FieldType
}

// Schema describes a flat JSON object whose fields are all required.
type Schema struct {
	Name   string
	Fields []Field
}

// Validate checks that every field is present with the right type and that
// strings are non-blank. String arrays may be []string or []any of strings.
func (s *Schema) Validate(fields map[string]any) error {
	if fields == nil {
		return &InvalidOutputError{Schema: s.Name, Reason: "no object"}
	}
	for _, f := range s.Fields {
		v, ok := fields[f.Name]
		if !ok {
			return &InvalidOutputError{Schema: s.Name, Field: f.Name, Reason: "missing"}
		}
		switch f.Type {
		case String:
			str, ok := v.(string)
			if !ok {
				return &InvalidOutputError{Schema: s.Name, Field: f.Name, Reason: fmt.Sprintf("want string, got %T", v)}
			}
			if strings.TrimSpace(str) == "" {
				return &InvalidOutputError{Schema: s.Name, Field: f.Name, Reason: "empty"}
			}
		case StringArray:
			if _, err := toStrings(v); err != nil {
				return &InvalidOutputError{Schema: s.Name, Field: f.Name, Reason: err.Error()}
			}
		case Integer:
			if _, ok := v.(float64); !ok {
				if _, ok := v.(int); !ok {
					return &InvalidOutputError{Schema: s.Name, Field: f.Name, Reason: fmt.Sprintf("want integer, got %T", v)}
				}
			}
		}
	}
	return nil
}

// Parse decodes a JSON object from text (markdown code fences are tolerated),
// validates it and returns it with string arrays as []string.
func (s *Schema) Parse(text string) (map[string]any, error) {
	raw := stripFences(text)
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, &InvalidOutputError{Schema: s.Name, Reason: "not a JSON object: " + err.Error()}
	}
	if err := s.Validate(fields); err != nil {
		return nil, err
	}
	for _, f := range s.Fields {
		if f.Type == StringArray {
			fields[f.Name], _ = toStrings(fields[f.Name])
		}
	}
	return fields, nil
}

// Instructions renders the schema as a plain-text output contract, for calls
// where JSON mode cannot be combined with tools.
func (s *Schema) Instructions() string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else, with exactly these keys:\n")
	for _, f := range s.Fields {
		kind := "string"
		switch f.Type {
		case StringArray:
			kind = "array of strings"
		case Integer:
			kind = "integer"
		}
		fmt.Fprintf(&b, "- %q (%s)", f.Name, kind)
		if f.Description != "" {
			b.WriteString(": " + f.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *Schema) genaiSchema() *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		out.Properties[f.Name] = fieldSchema(f.Type, f.Description)
		out.Required = append(out.Required, f.Name)
	}
	return out
}

func fieldSchema(t FieldType, desc string) *genai.Schema {
	switch t {
	case StringArray:
		return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
	case Integer:
		return &genai.Schema{Type: genai.TypeInteger, Description: desc}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
}

func toStrings(v any) ([]string, error) {
	switch arr := v.(type) {
	case []string:
		return arr, nil
	case []any:
		out := make([]string, 0, len(arr))
		for i, item := range arr {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: want string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want array of strings, got %T", v)
	}
}

func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		t = strings.TrimSuffix(strings.TrimSpace(t), "```")
		return strings.TrimSpace(t)
	}
	if i, j := strings.Index(t, "{"), strings.LastIndex(t, "}"); i >= 0 && j > i {
		return t[i : j+1]
	}
	return t
}
