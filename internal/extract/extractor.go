package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxNameDistance is the exclusive upper bound, in runes, between a
// name candidate and the email it is attributed to.
const DefaultMaxNameDistance = 300

// defaultContainerClasses mark a div as a contact card.
var defaultContainerClasses = []string{"item", "card"}

// Extractor applies the contact heuristics.
// An Extractor is immutable after construction and safe for concurrent use.
type Extractor struct {
	emailRegex *regexp.Regexp
	phoneRegex *regexp.Regexp

	strategies       []NameStrategy
	maxNameDistance  int
	containerClasses []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxNameDistance sets the exclusive distance bound for name candidates.
// Non-positive values are ignored.
func WithMaxNameDistance(d int) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.maxNameDistance = d
		}
	}
}

// WithContainerClasses adds class substrings that mark a div as a container,
// in addition to "item" and "card".
func WithContainerClasses(classes ...string) Option {
	return func(e *Extractor) {
		for _, c := range classes {
			c = strings.TrimSpace(c)
			if c != "" {
				e.containerClasses = append(e.containerClasses, c)
			}
		}
	}
}

// WithStrategies replaces the name strategies. Order is priority.
func WithStrategies(strategies ...NameStrategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// New creates an Extractor with the built-in strategies.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		emailRegex:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		phoneRegex:       regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
		strategies:       DefaultStrategies(),
		maxNameDistance:  DefaultMaxNameDistance,
		containerClasses: append([]string(nil), defaultContainerClasses...),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register appends a name strategy with the lowest priority.
func (e *Extractor) Register(s NameStrategy) {
	e.strategies = append(e.strategies, s)
}

// Strategies returns the strategy names in priority order.
func (e *Extractor) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}
	return names
}

// MaxNameDistance returns the configured distance bound.
func (e *Extractor) MaxNameDistance() int {
	return e.maxNameDistance
}

// Emails returns every email-shaped token in text, in order, duplicates
// included.
func (e *Extractor) Emails(text string) []string {
	return e.emailRegex.FindAllString(text, -1)
}

// Phone returns the first phone-shaped token in text, trimmed, or "".
func (e *Extractor) Phone(text string) string {
	return strings.TrimSpace(e.phoneRegex.FindString(text))
}

// Container returns the nearest ancestor-or-self of owner that is a list
// item, a table row, or a div whose class attribute contains one of the
// container class hints. When none exists owner itself is returned.
func (e *Extractor) Container(owner *html.Node) *html.Node {
	if c := dom.Closest(owner, e.isContainer); c != nil {
		return c
	}
	return owner
}

func (e *Extractor) isContainer(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Li, atom.Tr:
		return true
	case atom.Div:
		class := dom.Attr(n, "class")
		for _, hint := range e.containerClasses {
			if strings.Contains(class, hint) {
				return true
			}
		}
	}
	return false
}

// NameMatch is the outcome of name selection.
type NameMatch struct {
	// Name is the chosen name, or model.UnknownName.
	Name string

	// Strategy is the strategy that produced Name, empty when unknown.
	Strategy string

	// Distance is the rune distance from the email, -1 when unknown.
	Distance int
}

// Found reports whether a name was attributed.
func (m NameMatch) Found() bool {
	return m.Strategy != ""
}

// Name picks the personal name attributed to email within text.
// When email does not occur in text, or no strategy has a candidate
// within the distance bound, the result is model.UnknownName.
func (e *Extractor) Name(text, email string) NameMatch {
	unknown := NameMatch{Name: model.UnknownName, Distance: -1}

	idx := strings.Index(text, email)
	if idx < 0 {
		return unknown
	}
	emailOffset := utf8.RuneCountInString(text[:idx])

	for _, s := range e.strategies {
		best, dist, ok := closest(s.Candidates(text), emailOffset, e.maxNameDistance)
		if ok {
			return NameMatch{Name: best.Name, Strategy: s.Name(), Distance: dist}
		}
	}
	return unknown
}

// closest returns the candidate nearest to offset with a distance below
// limit. Candidates containing '@' are never names. Ties keep the earlier
// candidate.
func closest(candidates []NameCandidate, offset, limit int) (NameCandidate, int, bool) {
	var (
		best     NameCandidate
		bestDist = limit
		found    bool
	)
	for _, c := range candidates {
		if strings.ContainsRune(c.Name, '@') || strings.TrimSpace(c.Name) == "" {
			continue
		}
		dist := c.Offset - offset
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist, found = c, dist, true
		}
	}
	return best, bestDist, found
}

// Extract assembles the contact for email found in a text segment owned by
// owner. The returned contact has not been validated.
// Callers hold the document read lock.
func (e *Extractor) Extract(owner *html.Node, email string) (model.Contact, NameMatch) {
	container := e.Container(owner)
	text := dom.InnerText(container)

	match := e.Name(text, email)
	return model.NewContact(email, match.Name, e.Phone(text)), match
}
