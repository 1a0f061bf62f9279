// Package crawler provides the breadth-first crawl scheduler.
//
// # Architecture
//
// A Scheduler owns the frontier of one crawl: a FIFO queue of URLs with
// their depth and the set of URLs already visited. Each dequeued URL is
// marked visited before it is fetched, so a URL is fetched at most once
// even when the fetch fails. Fetched pages go through a Processor (the
// page pipeline) and the same-site links of the resulting record are
// appended to the queue one level deeper.
//
// # Politeness
//
//   - The Fetcher sleeps before every request
//   - Only one request is in flight at a time
//   - robots.txt is honoured when enabled
//   - Ignore and follow patterns limit which paths are crawled
//
// # Usage
//
//	sched := crawler.NewScheduler(fetcher, pipe, crawler.WithMaxDepth(2))
//	summary, err := sched.Crawl(ctx, []string{"https://www.politie.nl/nieuws"})
package crawler
