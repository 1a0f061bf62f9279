package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy is one named heuristic that finds a value in a document.
// Find returns "" when the heuristic does not apply.
type Strategy struct {
	Name string
	Find func(doc *goquery.Document) string
}

// FirstNonEmpty applies strategies in order and returns the first
// non-empty result along with the name of the strategy that produced it.
func FirstNonEmpty(doc *goquery.Document, strategies []Strategy) (value, name string) {
	for _, s := range strategies {
		if v := normalizeSpace(s.Find(doc)); v != "" {
			return v, s.Name
		}
	}
	return "", ""
}

// TitleStrategies find the page title.
var TitleStrategies = []Strategy{
	{Name: "h1", Find: firstText("h1")},
	{Name: "title", Find: firstText("title")},
}

// DateStrategies find a best-effort publish date. The value is not parsed.
var DateStrategies = []Strategy{
	{Name: "time-datetime", Find: firstAttr("time[datetime]", "datetime")},
	{Name: "time-text", Find: firstText("time")},
	{Name: "date-hint", Find: hintedText("span, div, p, time", "date", "datum")},
	{Name: "meta-published", Find: firstAttr(`meta[property="article:published_time"]`, "content")},
	{Name: "meta-date", Find: firstAttr(`meta[name="date"]`, "content")},
}

// AuthorStrategies find a best-effort author.
var AuthorStrategies = []Strategy{
	{Name: "meta-author", Find: firstAttr(`meta[name="author"], meta[property="author"], meta[property="article:author"]`, "content")},
	{Name: "rel-author-link", Find: firstAttr(`link[rel~="author"]`, "href")},
	{Name: "rel-author-anchor", Find: firstText(`a[rel~="author"]`)},
	{Name: "author-hint", Find: hintedText("span, div, p, a", "author", "auteur")},
}

// firstText returns the text of the first element matching selector.
func firstText(selector string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().Text()
	}
}

// firstAttr returns attr of the first element matching selector that has
// a non-empty value for it.
func firstAttr(selector, attr string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		var out string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = strings.TrimSpace(s.AttrOr(attr, ""))
			return out == ""
		})
		return out
	}
}

// hintedText returns the text of the first element matching selector
// whose class or id contains one of hints.
func hintedText(selector string, hints ...string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		var out string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !hasHint(s, hints...) {
				return true
			}
			out = normalizeSpace(s.Text())
			return out == ""
		})
		return out
	}
}

// hasHint reports whether the class or id of s contains one of hints,
// ignoring case.
func hasHint(s *goquery.Selection, hints ...string) bool {
	attrs := strings.ToLower(s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
	for _, h := range hints {
		if strings.Contains(attrs, h) {
			return true
		}
	}
	return false
}

// tags returns meta keywords when present, else the text of tag-hinted
// anchors and spans. Duplicates are dropped.
func tags(doc *goquery.Document) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(t string) {
		t = normalizeSpace(t)
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if kw := strings.TrimSpace(doc.Find(`meta[name="keywords"]`).First().AttrOr("content", "")); kw != "" {
		for _, t := range strings.Split(kw, ",") {
			add(t)
		}
		return out
	}

	doc.Find("a, span").Each(func(_ int, s *goquery.Selection) {
		if hasHint(s, "tag", "keyword") {
			add(s.Text())
		}
	})
	return out
}
