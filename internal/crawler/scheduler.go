package crawler

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/nao1215/kwcrawl/internal/fetch"
	"github.com/nao1215/kwcrawl/internal/model"
	"github.com/nao1215/kwcrawl/internal/pipeline"
)

// Fetcher retrieves pages. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// Processor runs the per-page steps. *pipeline.Pipeline implements it.
type Processor interface {
	Execute(ctx context.Context, page *pipeline.Page) error
}

// FrontierEntry is a URL waiting to be visited and its distance from a seed.
type FrontierEntry struct {
	URL   string
	Depth int
}

// crawlState is owned by a single Crawl call.
type crawlState struct {
	visited map[string]struct{}
	queue   []FrontierEntry

	// redirected holds post-redirect URLs that were not themselves
	// dequeued. They block later visits but are not in visited, so
	// len(visited) never exceeds the page budget.
	redirected map[string]struct{}

	// resultCount counts pages that reached the processor.
	resultCount int

	// pageBudgetRemaining is how many more URLs may be marked visited.
	pageBudgetRemaining int
}

func newCrawlState(maxPages int) *crawlState {
	return &crawlState{
		visited:             make(map[string]struct{}),
		redirected:          make(map[string]struct{}),
		queue:               make([]FrontierEntry, 0),
		pageBudgetRemaining: maxPages,
	}
}

func (s *crawlState) isVisited(u string) bool {
	if _, ok := s.visited[u]; ok {
		return true
	}
	_, ok := s.redirected[u]
	return ok
}

func (s *crawlState) markRedirected(u string) {
	s.redirected[u] = struct{}{}
}

func (s *crawlState) markVisited(u string) {
	if _, ok := s.visited[u]; ok {
		return
	}
	s.visited[u] = struct{}{}
	s.pageBudgetRemaining--
}

func (s *crawlState) pop() FrontierEntry {
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e
}

// Scheduler runs a breadth-first crawl from seed URLs, sending each fetched
// page through a Processor and following the same-site links it found.
// A Scheduler is not safe for concurrent Crawl calls.
//
// Design decision: the frontier is a plain FIFO slice and every URL is
// marked visited before it is fetched, so a failing URL is never retried
// and the page budget bounds network work, not only successful pages.
// The budget counts dequeued URLs only. When a fetch ends on a different
// URL after redirects, that final URL is remembered apart from the visited
// set: it is deduplicated against later links and seeds but never spends
// budget, so Visited stays at or below MaxPages. robots.txt is checked
// before a URL is marked visited, so disallowed URLs cost nothing.
// Links are capped per page at enqueue time, after the visited and pattern
// filters, so the cap counts only links that will be crawled.
type Scheduler struct {
	fetcher   Fetcher
	processor Processor
	logger    *slog.Logger

	keyword         string
	maxPages        int
	maxDepth        int
	maxLinksPerPage int

	patterns  func(rawURL string) Patterns
	robots    bool
	userAgent string
	onVisit   func(FrontierEntry)

	frontier []FrontierEntry
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithKeyword sets the keyword recorded in the run summary.
func WithKeyword(kw string) Option {
	return func(s *Scheduler) {
		s.keyword = kw
	}
}

// WithMaxPages bounds the number of visited URLs, including failed ones.
func WithMaxPages(n int) Option {
	return func(s *Scheduler) {
		s.maxPages = n
	}
}

// WithMaxDepth sets the highest depth whose links are followed.
// 0 = only the seeds, 1 = seeds plus the pages they link to, etc.
func WithMaxDepth(depth int) Option {
	return func(s *Scheduler) {
		s.maxDepth = depth
	}
}

// WithMaxLinksPerPage bounds the links one page adds to the frontier.
func WithMaxLinksPerPage(n int) Option {
	return func(s *Scheduler) {
		s.maxLinksPerPage = n
	}
}

// WithPatterns applies the same ignore and follow patterns to every URL.
func WithPatterns(p Patterns) Option {
	return func(s *Scheduler) {
		s.patterns = func(string) Patterns { return p }
	}
}

// WithPatternsFor selects the patterns per URL, for per-site settings.
func WithPatternsFor(fn func(rawURL string) Patterns) Option {
	return func(s *Scheduler) {
		s.patterns = fn
	}
}

// WithRobots enables robots.txt checks for userAgent. Each host's
// robots.txt is fetched once, through the scheduler's Fetcher.
func WithRobots(enabled bool, userAgent string) Option {
	return func(s *Scheduler) {
		s.robots = enabled
		s.userAgent = userAgent
	}
}

// WithOnVisit registers fn to be called when a URL is marked visited.
func WithOnVisit(fn func(FrontierEntry)) Option {
	return func(s *Scheduler) {
		s.onVisit = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler returns a Scheduler fetching with f and processing with p.
func NewScheduler(f Fetcher, p Processor, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:         f,
		processor:       p,
		logger:          slog.Default(),
		maxPages:        100,
		maxDepth:        2,
		maxLinksPerPage: 10,
		patterns:        func(string) Patterns { return Patterns{} },
		userAgent:       "kwcrawl",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Frontier returns the URLs still queued when the last Crawl returned.
func (s *Scheduler) Frontier() []FrontierEntry {
	return append([]FrontierEntry(nil), s.frontier...)
}

// Crawl visits seeds and the same-site pages reachable from them in FIFO
// order until the frontier is empty or the page budget is spent.
// Fetch and processing failures are logged and counted, never returned.
// When ctx is cancelled the summary so far is returned with ctx's error.
func (s *Scheduler) Crawl(ctx context.Context, seeds []string) (*model.RunSummary, error) {
	target := ""
	if len(seeds) > 0 {
		target = seeds[0]
	}
	summary := model.NewRunSummary(model.ModeCrawl, s.keyword, target)
	state := newCrawlState(s.maxPages)

	var robots *robotsRules
	if s.robots {
		robots = newRobotsRules(s.fetcher, s.userAgent)
	}

	finish := func(err error) (*model.RunSummary, error) {
		s.frontier = append([]FrontierEntry(nil), state.queue...)
		summary.Visited = len(state.visited)
		summary.Interrupted = err != nil
		summary.Finish()
		return summary, err
	}

	for _, seed := range seeds {
		if !validSeed(seed) {
			s.logger.Warn("invalid seed dropped", "seed", seed)
			continue
		}
		state.queue = append(state.queue, FrontierEntry{URL: seed, Depth: 0})
	}

	for len(state.queue) > 0 && state.pageBudgetRemaining > 0 {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		entry := state.pop()
		if state.isVisited(entry.URL) {
			continue
		}

		if robots != nil {
			ok, err := robots.allowed(ctx, entry.URL)
			if err != nil {
				return finish(err)
			}
			if !ok {
				s.logger.Debug("disallowed by robots.txt", "url", entry.URL)
				continue
			}
		}

		state.markVisited(entry.URL)
		if s.onVisit != nil {
			s.onVisit(entry)
		}

		resp, err := s.fetcher.Fetch(ctx, entry.URL)
		if err != nil {
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
			summary.FetchFailures++
			s.logger.Warn("fetch failed", "url", entry.URL, "depth", entry.Depth, "error", err)
			continue
		}

		pageURL := entry.URL
		if resp.FinalURL != "" && resp.FinalURL != entry.URL {
			if state.isVisited(resp.FinalURL) {
				s.logger.Debug("redirect to visited page dropped", "url", entry.URL, "final_url", resp.FinalURL)
				continue
			}
			state.markRedirected(resp.FinalURL)
			pageURL = resp.FinalURL
		}
		summary.Processed++
		state.resultCount++

		page := &pipeline.Page{
			URL:      pageURL,
			Depth:    entry.Depth,
			Response: resp,
			Seen:     state.isVisited,
		}
		if err := s.processor.Execute(ctx, page); err != nil {
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
			summary.PersistFailures++
			s.logger.Warn("page processing failed", "url", pageURL, "error", err)
		}
		if page.Match.Matched() {
			summary.Matches++
		}
		s.logger.Info("page processed",
			"url", pageURL,
			"depth", entry.Depth,
			"occurrences", page.Match.Occurrences,
			"visited", len(state.visited))

		if entry.Depth >= s.maxDepth || page.Record == nil {
			continue
		}
		added := 0
		for _, link := range page.Record.Links.SameSite {
			if added >= s.maxLinksPerPage {
				break
			}
			if state.isVisited(link) || !s.patterns(link).allows(link) {
				continue
			}
			state.queue = append(state.queue, FrontierEntry{URL: link, Depth: entry.Depth + 1})
			added++
		}
	}

	return finish(nil)
}

func validSeed(seed string) bool {
	u, err := url.Parse(seed)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
