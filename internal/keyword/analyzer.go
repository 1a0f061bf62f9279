package keyword

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nao1215/kwcrawl/internal/model"
)

const (
	// DefaultContextRadius is the number of runes kept on each side of a
	// match in a context window.
	DefaultContextRadius = 100

	// DefaultNumberRadius is the number of runes searched on each side of
	// a match for numeric tokens.
	DefaultNumberRadius = 30
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	dmyPattern    = regexp.MustCompile(`\b\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}\b`)
	yearPattern   = regexp.MustCompile(`\b\d{4}\b`)
)

// Category is a labelled list of terms. A matched text that contains any
// of the terms is tagged with the label.
type Category struct {
	Label string
	Terms []string
}

// Analyzer scores text against a keyword.
type Analyzer struct {
	contextRadius int
	numberRadius  int
	categories    []Category
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithContextRadius sets the context window radius in runes.
// Non-positive values are ignored.
func WithContextRadius(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.contextRadius = n
		}
	}
}

// WithNumberRadius sets the radius searched for numbers near a match.
// Non-positive values are ignored.
func WithNumberRadius(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.numberRadius = n
		}
	}
}

// WithCategories sets the category term lists checked on matched text.
func WithCategories(categories []Category) Option {
	return func(a *Analyzer) {
		a.categories = categories
	}
}

// NewAnalyzer returns an Analyzer with default radii.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		contextRadius: DefaultContextRadius,
		numberRadius:  DefaultNumberRadius,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores text against keyword. The keyword is a literal and is
// matched case-insensitively. An empty keyword yields a zero match.
func (a *Analyzer) Analyze(text, keyword string) model.KeywordMatch {
	m := model.KeywordMatch{
		Keyword:     keyword,
		Contexts:    []string{},
		Sentences:   []string{},
		NumbersNear: []string{},
		DatesNear:   []string{},
	}
	if keyword == "" {
		return m
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(keyword))
	locs := re.FindAllStringIndex(text, -1)
	m.Occurrences = len(locs)
	if len(locs) == 0 {
		return m
	}

	contexts := newOrderedSet()
	numbers := newOrderedSet()
	for _, loc := range locs {
		start := backRunes(text, loc[0], a.contextRadius)
		end := forwardRunes(text, loc[1], a.contextRadius)
		contexts.add(strings.TrimSpace(text[start:end]))

		start = backRunes(text, loc[0], a.numberRadius)
		end = forwardRunes(text, loc[1], a.numberRadius)
		for _, n := range numberPattern.FindAllString(text[start:end], -1) {
			numbers.add(n)
		}
	}
	m.Contexts = contexts.items
	m.NumbersNear = numbers.items

	sentences := newOrderedSet()
	for _, s := range SplitSentences(text) {
		if re.MatchString(s) {
			sentences.add(s)
		}
	}
	m.Sentences = sentences.items

	m.DatesNear = FindDates(text)
	m.Categories = a.matchCategories(text)
	return m
}

func (a *Analyzer) matchCategories(text string) []string {
	var labels []string
	for _, c := range a.categories {
		if ContainsAny(text, c.Terms) {
			labels = append(labels, c.Label)
		}
	}
	return labels
}

// FindDates returns day-month-year tokens followed by bare four-digit
// years found anywhere in text, deduplicated in first-seen order.
func FindDates(text string) []string {
	dates := newOrderedSet()
	for _, d := range dmyPattern.FindAllString(text, -1) {
		dates.add(d)
	}
	for _, y := range yearPattern.FindAllString(text, -1) {
		dates.add(y)
	}
	return dates.items
}

// SplitSentences splits text on whitespace that follows '.', '!' or '?'.
// Sentences are trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
		prev  rune
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) && isTerminal(prev) {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, s)
			}
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			start = i
			prev = 0
			continue
		}
		prev = r
		i += size
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// ContainsAny reports whether text contains any of terms, ignoring case.
func ContainsAny(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, t := range terms {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// backRunes returns the byte offset n runes before i, clamped to 0.
func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}

// forwardRunes returns the byte offset n runes after i, clamped to len(s).
func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
