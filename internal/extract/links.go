package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// skippedSchemes are href prefixes that never lead to a page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// ResolveLink resolves href against base and strips the fragment.
// It returns "" for empty hrefs, in-page anchors, non-HTTP schemes and
// unparseable values.
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, p := range skippedSchemes {
		if strings.HasPrefix(lower, p) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// outboundLinks collects the unique resolved links of doc, excluding self,
// in document order.
func outboundLinks(doc *goquery.Document, base *url.URL, self string) []string {
	out := make([]string, 0)
	seen := map[string]struct{}{self: {}}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		link := ResolveLink(base, s.AttrOr("href", ""))
		if link == "" {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	return out
}

// KeywordLinks returns the unique in-scope links of a search results page
// whose anchor text contains kw, ignoring case, in document order.
func KeywordLinks(raw []byte, baseURL string, scope *Scope, kw string) []string {
	out := make([]string, 0)
	kw = strings.ToLower(strings.TrimSpace(kw))
	if kw == "" {
		return out
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return out
	}
	base, _ := url.Parse(baseURL)
	if scope == nil {
		scope = ScopeFromURLs([]string{baseURL})
	}

	seen := map[string]struct{}{ResolveLink(base, baseURL): {}}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(strings.ToLower(visibleText(s)), kw) {
			return
		}
		link := ResolveLink(base, s.AttrOr("href", ""))
		if link == "" || !scope.Contains(link) {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	return out
}
