// Package database stores crawl history in SQLite.
//
// The CrawlDB keeps:
//   - one row per run (crawl or dataset scan) with its counters
//   - the matching pages of each run
//   - the matching structured resources of each run
//
// The history lets `kwcrawl history` list previous runs and show how the
// keyword coverage of a URL changed between runs. The database is a single
// file in the XDG data directory, opened through the CGO-free
// modernc.org/sqlite driver in WAL mode.
//
// A Recorder bound to one run implements the sink.Sink interface, so the
// database can be written alongside the CSV output through sink.Multi.
package database
