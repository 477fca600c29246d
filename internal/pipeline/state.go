package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadySet is returned when a stage writes a field twice.
var ErrAlreadySet = errors.New("pipeline field already set")

// Stage is the pipeline position: Start, Classified, Extracted, Reviewed.
type Stage int

const (
	StageStart Stage = iota
	StageClassified
	StageExtracted
	StageReviewed
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageClassified:
		return "classified"
	case StageExtracted:
		return "extracted"
	case StageReviewed:
		return "reviewed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// State carries one article through the pipeline. Each output field is
// written once by its stage. Safe for concurrent use.
type State struct {
	InputText string

	mu         sync.Mutex
	area       *string
	extraction *Extraction
	review     *string
}

// NewState starts a pipeline run for text.
func NewState(text string) *State {
	return &State{InputText: text}
}

// SetArea records the classify stage output.
func (s *State) SetArea(area string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.area != nil {
		return fmt.Errorf("%w: area", ErrAlreadySet)
	}
	s.area = &area
	return nil
}

// SetExtraction records the extract stage output.
func (s *State) SetExtraction(e Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extraction != nil {
		return fmt.Errorf("%w: extraction", ErrAlreadySet)
	}
	s.extraction = &e
	return nil
}

// SetReview records the review stage output.
func (s *State) SetReview(md string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.review != nil {
		return fmt.Errorf("%w: review", ErrAlreadySet)
	}
	s.review = &md
	return nil
}

// Stage reports how far the run has progressed.
func (s *State) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.area == nil:
		return StageStart
	case s.extraction == nil:
		return StageClassified
	case s.review == nil:
		return StageExtracted
	default:
		return StageReviewed
	}
}

// Result returns the run output. It is complete once Stage is StageReviewed.
func (s *State) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r Result
	if s.area != nil {
		r.Area = *s.area
	}
	if s.extraction != nil {
		r.Extraction = *s.extraction
	}
	if s.review != nil {
		r.ReviewMarkdown = *s.review
	}
	return r
}

// Result is the pipeline output: exactly area, extraction and review_markdown.
type Result struct {
	Area           string     `json:"area"`
	Extraction     Extraction `json:"extraction"`
	ReviewMarkdown string     `json:"review_markdown"`
}
