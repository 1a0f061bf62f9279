// Package pipeline runs the per-page processing steps of a crawl.
//
// After a page is fetched, the crawler hands it to a Pipeline that runs
// its steps in order: extract the PageRecord, enrich it with entities,
// score it against the keyword, and persist the result. Each step reads
// and writes the shared Page value.
//
// Extraction, enrichment and analysis never fail. Persistence can, and a
// persist failure is returned to the caller, which logs it and moves on
// to the next page.
package pipeline
