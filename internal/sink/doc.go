// Package sink persists keyword matches.
//
// A Sink receives every processed page (or structured resource) together
// with its keyword match. FileSink writes one CSV row per matching item
// and, optionally, one JSON side-file per item with a stable, content
// derived file name:
//
//	0001_Illegaal_vuurwerk_in_beslag_genomen_3f2a9c1d.json
//
// The CSV header is written as soon as the sink is opened, so a run
// without matches still leaves a valid, empty CSV behind. Rows are
// flushed one at a time so that an interrupted run keeps everything
// recorded so far.
//
// Multi fans a record out to several sinks, such as a FileSink and the
// SQLite history database.
package sink
