// Package model defines the core data structures used throughout kwcrawl.
//
// This package contains the following main types:
//   - PageRecord: One fetched and parsed web page
//   - KeywordMatch: The result of scoring text against a keyword
//   - ResourceRecord: One structured resource of a dataset (CKAN variant)
//   - RunSummary: Counters and output locations of a single run
//
// Multiple packages (crawler, extract, sink, database, ckan) share these
// types, so they live in their own package to avoid import cycles.
//
// The models are serializable to JSON for side-file output and database
// storage. Best-effort fields scraped from pages (publish date, author,
// primary image) are pointers: nil means "not found", never "invalid".
package model
