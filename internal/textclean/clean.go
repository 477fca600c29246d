// Package textclean normalizes text extracted from scientific articles so that
// chunking and embedding see prose rather than layout artifacts.
package textclean

import (
	"regexp"
	"strings"
)

var (
	hyphenBreak    = regexp.MustCompile(`([\p{L}\p{N}_]+)-\n([\p{L}\p{N}_]+)`)
	numericCite    = regexp.MustCompile(`\[\d+(?:,\s*\d+|-\d+)*\]`)
	authorYearCite = regexp.MustCompile(`\([\p{L}\s.,&]+ \d{4}\)`)
	blankRun       = regexp.MustCompile(`[ \t]{2,}`)
	// A heading is the word at the start of the text, a line, or a sentence,
	// optionally numbered ("7 References", "7. Bibliography").
	referencesHeading = regexp.MustCompile(`(?i)(?:^|\n|[.!?:]\s)[ \t]*((?:\d+(?:\.\d+)*\.?[ \t]+)?(?:references|bibliography)\b)`)
)

// Clean applies, in order: de-hyphenation of line-broken words, folding of
// lone newlines into spaces, removal of numeric and author-year citations, and
// truncation at the first references heading. The result is trimmed.
// Clean is total and Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = foldNewlines(text)
	text = stripCitations(text)
	text = truncateReferences(text)
	return strings.TrimSpace(text)
}

// foldNewlines replaces each newline that has no newline neighbour with a
// space and keeps runs of two or more newlines as paragraph breaks.
func foldNewlines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '\n' {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == '\n' {
			j++
		}
		if j-i == 1 {
			b.WriteByte(' ')
		} else {
			b.WriteString(s[i:j])
		}
		i = j
	}
	return b.String()
}

// stripCitations removes citations until none remain, so nested forms such as
// "[[1]2]" do not survive a single pass.
func stripCitations(s string) string {
	for {
		next := numericCite.ReplaceAllString(s, "")
		next = authorYearCite.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	return blankRun.ReplaceAllString(s, " ")
}

func truncateReferences(s string) string {
	loc := referencesHeading.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[2]]
}
