package extract

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/nao1215/kwcrawl/internal/model"
)

// containers are the elements that may hold the content region when it is
// found through a class or id hint.
const containers = "div, section"

// regionFinders locate the content region, tried in order.
var regionFinders = []func(*goquery.Document) *goquery.Selection{
	func(doc *goquery.Document) *goquery.Selection { return doc.Find("article").First() },
	containerHinted("class", "article"),
	containerHinted("id", "content"),
	func(doc *goquery.Document) *goquery.Selection { return doc.Find("main").First() },
}

// containerHinted returns a finder for the first container whose attr
// contains hint, ignoring case.
func containerHinted(attr, hint string) func(*goquery.Document) *goquery.Selection {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(containers).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.AttrOr(attr, "")), hint)
		}).First()
	}
}

// Extractor builds PageRecords from raw HTML.
//
// Design decision: extraction never fails. Every field is found by an
// ordered list of heuristics and the first non-empty result wins, so a
// page with unusual markup yields a sparse record instead of an error.
// The content region is an <article>, then a div or section whose class
// mentions "article", then one whose id mentions "content", then <main>.
// Only containers qualify through hints, so a nav link or date span
// carrying an article class never replaces the real body. Readability
// runs after these selectors because it is slower and guesses; the whole
// document is the last resort.
type Extractor struct {
	scope            *Scope
	titleStrategies  []Strategy
	dateStrategies   []Strategy
	authorStrategies []Strategy
	readability      bool
	logger           *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithReadability enables the readability content heuristic, tried after
// the selector heuristics and before falling back to the whole document.
func WithReadability(enabled bool) Option {
	return func(e *Extractor) {
		e.readability = enabled
	}
}

// WithDateStrategies replaces the date heuristics.
func WithDateStrategies(s []Strategy) Option {
	return func(e *Extractor) {
		e.dateStrategies = s
	}
}

// WithAuthorStrategies replaces the author heuristics.
func WithAuthorStrategies(s []Strategy) Option {
	return func(e *Extractor) {
		e.authorStrategies = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Extractor that partitions links using scope.
// A nil scope treats every link as off-site.
func New(scope *Scope, opts ...Option) *Extractor {
	if scope == nil {
		scope = NewScope()
	}
	e := &Extractor{
		scope:            scope,
		titleStrategies:  TitleStrategies,
		dateStrategies:   DateStrategies,
		authorStrategies: AuthorStrategies,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses raw HTML fetched from baseURL. It never fails.
func (e *Extractor) Extract(raw []byte, baseURL string) *model.PageRecord {
	rec := model.NewPageRecord(baseURL)

	base, _ := url.Parse(baseURL)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		e.logger.Debug("unreadable document", "url", baseURL, "error", err)
		return rec
	}

	rec.Title, _ = FirstNonEmpty(doc, e.titleStrategies)
	if v, name := FirstNonEmpty(doc, e.dateStrategies); v != "" {
		rec.PublishDate = &v
		e.logger.Debug("publish date found", "url", baseURL, "strategy", name)
	}
	if v, _ := FirstNonEmpty(doc, e.authorStrategies); v != "" {
		rec.Author = &v
	}
	rec.Tags = tags(doc)

	region, text := e.contentRegion(doc, raw, base)
	rec.SetBodyText(text)
	rec.PrimaryImageURL = primaryImage(doc, region, base)

	for _, link := range outboundLinks(doc, base, ResolveLink(base, baseURL)) {
		if e.scope.Contains(link) {
			rec.Links.SameSite = append(rec.Links.SameSite, link)
		} else {
			rec.Links.OffSite = append(rec.Links.OffSite, link)
		}
	}
	return rec
}

// contentRegion returns the content region and its body text. The region
// is nil when the text came from readability or the whole document.
func (e *Extractor) contentRegion(doc *goquery.Document, raw []byte, base *url.URL) (*goquery.Selection, string) {
	for _, find := range regionFinders {
		if region := find(doc); region.Length() > 0 {
			return region, visibleText(region)
		}
	}

	if e.readability && base != nil {
		if text := readableText(raw, base); text != "" {
			return nil, text
		}
	}

	return nil, visibleText(doc.Find("body"))
}

// readableText runs readability on raw and returns the text of the
// article it finds, or "" when it finds none.
func readableText(raw []byte, base *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(raw), base)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return ""
	}
	return visibleText(doc.Selection)
}

// primaryImage returns the og:image, else the first image in region, else
// the first image in the document, resolved against base.
func primaryImage(doc *goquery.Document, region *goquery.Selection, base *url.URL) *string {
	candidates := []string{
		doc.Find(`meta[property="og:image"]`).First().AttrOr("content", ""),
	}
	if region != nil {
		candidates = append(candidates, region.Find("img[src]").First().AttrOr("src", ""))
	}
	candidates = append(candidates, doc.Find("img[src]").First().AttrOr("src", ""))

	for _, c := range candidates {
		if abs := resolveImage(base, c); abs != "" {
			return &abs
		}
	}
	return nil
}

func resolveImage(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
		return ""
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
