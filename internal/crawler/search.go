package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/nao1215/kwcrawl/internal/extract"
)

// Search describes a site search page whose results become crawl seeds.
type Search struct {
	// URL is the search page, e.g. https://drimble.nl/zoeken.html.
	URL string

	// Keyword is sent as the query and must appear in a result's anchor text.
	Keyword string

	// Pages is the number of result pages read, starting at page 1.
	Pages int

	// QueryParam and PageParam name the keyword and page number parameters.
	QueryParam string
	PageParam  string
}

// pageURL returns the search URL of result page n.
func (s Search) pageURL(n int) (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(s.QueryParam, s.Keyword)
	q.Set(s.PageParam, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SearchSeeds reads up to s.Pages result pages of a site search and returns
// the in-scope links whose anchor text contains the keyword, deduplicated
// in page order. It stops early at a page that fails to load or yields no
// such link. Only a context error is returned, together with the seeds
// found so far.
func SearchSeeds(ctx context.Context, f Fetcher, scope *extract.Scope, s Search, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if scope == nil {
		scope = extract.ScopeFromURLs([]string{s.URL})
	}

	seeds := make([]string, 0)
	seen := make(map[string]struct{})
	for n := 1; n <= s.Pages; n++ {
		pageURL, err := s.pageURL(n)
		if err != nil {
			logger.Warn("invalid search URL", "url", s.URL, "error", err)
			break
		}

		resp, err := f.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return seeds, ctx.Err()
			}
			logger.Warn("search page failed", "url", pageURL, "error", err)
			break
		}

		base := pageURL
		if resp.FinalURL != "" {
			base = resp.FinalURL
		}
		links := extract.KeywordLinks(resp.Body, base, scope, s.Keyword)
		if len(links) == 0 {
			logger.Debug("no more search results", "page", n)
			break
		}

		added := 0
		for _, link := range links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			seeds = append(seeds, link)
			added++
		}
		logger.Info("search page read", "page", n, "results", len(links), "new", added)
	}
	return seeds, nil
}
