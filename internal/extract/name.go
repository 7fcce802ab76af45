package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy names.
const (
	// StrategyTitleCase matches runs of capitalized words with an optional
	// honorific, e.g. "Dr. Alice B. Carter".
	StrategyTitleCase = "title-case"
	// StrategyLastFirst matches "Last, First" pairs and reorders them.
	StrategyLastFirst = "last-first"
)

// NameCandidate is a possible personal name found in container text.
type NameCandidate struct {
	// Name is the display form of the name.
	Name string

	// Offset is the rune offset of the match within the searched text.
	Offset int
}

// NameStrategy finds personal name candidates in text.
//
// Design decision: strategies are ordered values rather than one combined
// pattern so that a weaker heuristic only applies when the stronger one
// found nothing usable near the email.
type NameStrategy interface {
	// Name returns the strategy name for logging.
	Name() string

	// Candidates returns every candidate in text in order of appearance.
	Candidates(text string) []NameCandidate
}

// TitleCaseStrategy matches sequences of two or more capitalized words,
// allowing single-letter initials and a leading honorific.
type TitleCaseStrategy struct {
	re *regexp.Regexp
}

// NewTitleCaseStrategy creates a TitleCaseStrategy.
func NewTitleCaseStrategy() *TitleCaseStrategy {
	return &TitleCaseStrategy{
		re: regexp.MustCompile(`\b((?:(?:Dr|Mr|Ms|Mrs|Prof)\.?\s)?[A-Z][a-z']+(?:\s[A-Z][a-z']+|\s[A-Z]\.?)+)\b`),
	}
}

// Name returns the strategy name.
func (s *TitleCaseStrategy) Name() string {
	return StrategyTitleCase
}

// Candidates returns every title-case run in text.
func (s *TitleCaseStrategy) Candidates(text string) []NameCandidate {
	return findCandidates(s.re, text, strings.TrimSpace)
}

// LastFirstStrategy matches "Last, First" and formats it as "First Last".
type LastFirstStrategy struct {
	re *regexp.Regexp
}

// NewLastFirstStrategy creates a LastFirstStrategy.
func NewLastFirstStrategy() *LastFirstStrategy {
	return &LastFirstStrategy{
		re: regexp.MustCompile(`\b([A-Za-z']{2,},\s[A-Za-z']{2,})\b`),
	}
}

// Name returns the strategy name.
func (s *LastFirstStrategy) Name() string {
	return StrategyLastFirst
}

// Candidates returns every "Last, First" pair in text, reordered.
func (s *LastFirstStrategy) Candidates(text string) []NameCandidate {
	return findCandidates(s.re, text, reorderLastFirst)
}

// reorderLastFirst turns "Doe, Jane" into "Jane Doe".
func reorderLastFirst(raw string) string {
	last, first, ok := strings.Cut(raw, ",")
	if !ok {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(first) + " " + strings.TrimSpace(last)
}

// findCandidates runs re over text and converts byte offsets to rune offsets.
func findCandidates(re *regexp.Regexp, text string, format func(string) string) []NameCandidate {
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	candidates := make([]NameCandidate, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[2], loc[3]
		if start < 0 {
			continue
		}
		candidates = append(candidates, NameCandidate{
			Name:   format(text[start:end]),
			Offset: utf8.RuneCountInString(text[:start]),
		})
	}
	return candidates
}

// DefaultStrategies returns the built-in strategies in priority order.
func DefaultStrategies() []NameStrategy {
	return []NameStrategy{
		NewTitleCaseStrategy(),
		NewLastFirstStrategy(),
	}
}
