package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/scireview/internal/generation"
)

const (
	HeadingPositives = "## Pontos positivos"
	HeadingFlaws     = "## Possíveis falhas"
)

const reviewSystemPrompt = `You are an experienced peer reviewer of scientific articles.
Evaluate the article against this rubric:
1. Novelty: is the contribution original with respect to prior work?
2. Methodology: is the method sound and adequately described?
3. Threats to validity: are limitations, biases and confounders addressed?
4. Replicability: could an independent group reproduce the results from the text?

Always write the review in Brazilian Portuguese, whatever the language of the article.
Answer only with a markdown document that follows this template exactly:

# Revisão

## Pontos positivos
- <one bullet per strength, citing the rubric item>

## Possíveis falhas
- <one bullet per weakness, citing the rubric item>

**Veredito:** <Aceitar | Aceitar com revisões | Rejeitar>: <one sentence of justification>`

var verdictLine = regexp.MustCompile(`(?im)^\s*(?:\*\*)?veredito(?:\*\*)?\s*:`)

// FallbackReview is written when the review stage fails for reason.
func FallbackReview(reason error) string {
	return fmt.Sprintf("Error during review: %v", reason)
}

func reviewPrompt(text string) string {
	return "Review the following article.\n\nArticle:\n" + text
}

// ValidateReview checks that md follows the review template: each section
// heading exactly once, positives before flaws, and a verdict line after them.
func ValidateReview(md string) error {
	invalid := func(reason string) error {
		return &generation.InvalidOutputError{Schema: "review", Reason: reason}
	}
	if strings.TrimSpace(md) == "" {
		return invalid("empty review")
	}
	pos := headingIndex(md, HeadingPositives)
	flaws := headingIndex(md, HeadingFlaws)
	switch {
	case pos < 0:
		return invalid("missing section " + HeadingPositives)
	case flaws < 0:
		return invalid("missing section " + HeadingFlaws)
	case pos > flaws:
		return invalid("sections out of order")
	}
	if strings.Count(md, HeadingPositives) != 1 || strings.Count(md, HeadingFlaws) != 1 {
		return invalid("sections must appear exactly once")
	}
	loc := verdictLine.FindStringIndex(md[flaws:])
	if loc == nil {
		return invalid("missing verdict")
	}
	return nil
}

func headingIndex(md, heading string) int {
	for offset := 0; ; {
		i := strings.Index(md[offset:], heading)
		if i < 0 {
			return -1
		}
		at := offset + i
		if at == 0 || md[at-1] == '\n' {
			return at
		}
		offset = at + len(heading)
	}
}
