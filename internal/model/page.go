package model

import (
	"strings"
	"unicode/utf8"
)

// snippetFallbackRunes is the length of the snippet taken from the start of
// the body text when a page has no keyword context.
const snippetFallbackRunes = 200

// PageRecord is one fetched and parsed page.
type PageRecord struct {
	// URL is the canonical URL of the page after redirects.
	URL string `json:"url"`

	// Title is the first heading, else the document title, else empty.
	Title string `json:"title"`

	// PublishDate is a best-effort date string. It is opaque: it is not
	// guaranteed to be parseable into a calendar date.
	PublishDate *string `json:"publish_date"`

	// Author is the best-effort author of the page.
	Author *string `json:"author"`

	// Tags is an ordered set of tags or keywords. Never nil.
	Tags []string `json:"tags"`

	// PrimaryImageURL is the absolute URL of the page's main image.
	PrimaryImageURL *string `json:"primary_image_url"`

	// BodyText is the whitespace-normalized text of the content region.
	BodyText string `json:"body_text"`

	// WordCount is the number of whitespace-separated words in BodyText.
	WordCount int `json:"word_count"`

	// Links holds the page's outbound links split by site scope.
	Links LinkSet `json:"links"`

	// Entities maps an entity label to its mentions.
	// Empty when no entity extractor is configured.
	Entities map[string][]string `json:"entities"`
}

// LinkSet partitions outbound links of a page. Only SameSite links are
// eligible for traversal; OffSite links are kept for inspection.
type LinkSet struct {
	SameSite []string `json:"same_site"`
	OffSite  []string `json:"off_site"`
}

// NewPageRecord returns an empty PageRecord for the given URL with all
// collections initialized.
func NewPageRecord(url string) *PageRecord {
	return &PageRecord{
		URL:      url,
		Tags:     make([]string, 0),
		Links:    LinkSet{SameSite: make([]string, 0), OffSite: make([]string, 0)},
		Entities: make(map[string][]string),
	}
}

// SetBodyText sets the body text and keeps WordCount consistent with it.
func (p *PageRecord) SetBodyText(text string) {
	p.BodyText = text
	p.WordCount = len(strings.Fields(text))
}

// ExcludeLinks removes the page's own URL and every URL for which seen
// returns true from both link sets.
func (p *PageRecord) ExcludeLinks(seen func(string) bool) {
	keep := func(links []string) []string {
		out := links[:0]
		for _, l := range links {
			if l == p.URL || (seen != nil && seen(l)) {
				continue
			}
			out = append(out, l)
		}
		return out
	}
	p.Links.SameSite = keep(p.Links.SameSite)
	p.Links.OffSite = keep(p.Links.OffSite)
}

// Snippet returns the first keyword context, or the start of the body text
// when there is none.
func (p *PageRecord) Snippet(match KeywordMatch) string {
	if len(match.Contexts) > 0 {
		return match.Contexts[0]
	}
	return TruncateRunes(p.BodyText, snippetFallbackRunes)
}

// StringValue dereferences an optional string, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptionalString returns a pointer to s, or nil when s is empty.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TruncateRunes returns at most n runes of s without splitting a
// multi-byte character.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
