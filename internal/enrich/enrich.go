package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// EntityExtractor finds named entities in text.
// The result maps an entity label to its mentions in first-seen order.
type EntityExtractor interface {
	Extract(text string) map[string][]string
}

// Nop is an EntityExtractor that never finds anything.
type Nop struct{}

// Extract returns an empty map.
func (Nop) Extract(string) map[string][]string {
	return map[string][]string{}
}

// Pattern extracts entities with labelled regular expressions.
type Pattern struct {
	labels   []string
	patterns map[string][]*regexp.Regexp
}

// NewPattern compiles label → expressions. An invalid expression is an
// error naming its label.
func NewPattern(rules map[string][]string) (*Pattern, error) {
	p := &Pattern{patterns: make(map[string][]*regexp.Regexp, len(rules))}
	for label, exprs := range rules {
		for _, expr := range exprs {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("entity label %q: %w", label, err)
			}
			p.patterns[label] = append(p.patterns[label], re)
		}
		p.labels = append(p.labels, label)
	}
	sort.Strings(p.labels)
	return p, nil
}

// Extract returns the deduplicated mentions of each label found in text.
// Labels without mentions are omitted.
func (p *Pattern) Extract(text string) map[string][]string {
	out := make(map[string][]string)
	for _, label := range p.labels {
		seen := make(map[string]struct{})
		for _, re := range p.patterns[label] {
			for _, m := range re.FindAllString(text, -1) {
				m = strings.TrimSpace(m)
				if m == "" {
					continue
				}
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				out[label] = append(out[label], m)
			}
		}
	}
	return out
}

// New returns a Pattern extractor for rules, or Nop when rules is empty.
func New(rules map[string][]string) (EntityExtractor, error) {
	if len(rules) == 0 {
		return Nop{}, nil
	}
	return NewPattern(rules)
}
