// Package main provides the entry point for the kwcrawl CLI.
//
// kwcrawl crawls a news site breadth-first from seed URLs, or scans the
// resources of an open-data dataset, and records where a keyword occurs.
//
// Usage:
//
//	kwcrawl crawl https://www.politie.nl/nieuws
//	kwcrawl dataset <dataset-id|url>
//	kwcrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
