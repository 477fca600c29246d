package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/scireview/internal/generation"
)

// External keys of the extraction object. The misspelling in KeyProblem is
// part of the output contract.
const (
	KeyProblem    = "what problem does the artcle propose to solve?"
	KeySteps      = "step by step on how to solve it"
	KeyConclusion = "conclusion"
)

const (
	FallbackProblem = "Error during extraction"
	FallbackStep    = "Error"
)

// fieldMap maps canonical field names to their external keys.
var fieldMap = []struct {
	canonical string
	external  string
	typ       generation.FieldType
	desc      string
}{
	{"problem", KeyProblem, generation.String, "A concise statement of the core problem or research question."},
	{"steps", KeySteps, generation.StringArray, "A chronological list of high-level methodological steps or phases."},
	{"conclusion", KeyConclusion, generation.String, "Summary of findings and implications."},
}

// ExtractionSchema is the structured output requested from the extract stage.
var ExtractionSchema = func() *generation.Schema {
	s := &generation.Schema{Name: "extraction"}
	for _, f := range fieldMap {
		s.Fields = append(s.Fields, generation.Field{Name: f.external, Type: f.typ, Description: f.desc})
	}
	return s
}()

// Extraction is the structured summary of an article. A successful extraction
// serialises with the external keys; a fallback serialises with the canonical
// ones (problem, steps, conclusion).
type Extraction struct {
	Problem    string
	Steps      []string
	Conclusion string
	Fallback   bool
}

type externalExtraction struct {
	Problem    string   `json:"what problem does the artcle propose to solve?"`
	Steps      []string `json:"step by step on how to solve it"`
	Conclusion string   `json:"conclusion"`
}

type canonicalExtraction struct {
	Problem    string   `json:"problem"`
	Steps      []string `json:"steps"`
	Conclusion string   `json:"conclusion"`
}

// FallbackExtraction is written when extraction fails for reason.
func FallbackExtraction(reason error) Extraction {
	return Extraction{
		Problem:    FallbackProblem,
		Steps:      []string{FallbackStep},
		Conclusion: fmt.Sprintf("Extraction failed: %v", reason),
		Fallback:   true,
	}
}

// ExtractionFromFields converts validated generation output through the
// field map.
func ExtractionFromFields(fields map[string]any) (Extraction, error) {
	if err := ExtractionSchema.Validate(fields); err != nil {
		return Extraction{}, err
	}
	var e Extraction
	for _, f := range fieldMap {
		v := fields[f.external]
		switch f.canonical {
		case "problem":
			e.Problem = v.(string)
		case "conclusion":
			e.Conclusion = v.(string)
		case "steps":
			switch s := v.(type) {
			case []string:
				e.Steps = s
			case []any:
				for _, item := range s {
					e.Steps = append(e.Steps, item.(string))
				}
			}
		}
	}
	if e.Steps == nil {
		e.Steps = []string{}
	}
	return e, nil
}

// MarshalJSON implements json.Marshaler.
func (e Extraction) MarshalJSON() ([]byte, error) {
	steps := e.Steps
	if steps == nil {
		steps = []string{}
	}
	if e.Fallback {
		return json.Marshal(canonicalExtraction{Problem: e.Problem, Steps: steps, Conclusion: e.Conclusion})
	}
	return json.Marshal(externalExtraction{Problem: e.Problem, Steps: steps, Conclusion: e.Conclusion})
}

// UnmarshalJSON accepts either key set. Canonical keys mark a fallback.
func (e *Extraction) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw["problem"]; ok {
		var c canonicalExtraction
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		*e = Extraction{Problem: c.Problem, Steps: c.Steps, Conclusion: c.Conclusion, Fallback: true}
		return nil
	}
	var x externalExtraction
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*e = Extraction{Problem: x.Problem, Steps: x.Steps, Conclusion: x.Conclusion}
	return nil
}
