package config

import "errors"

// Configuration errors returned by the Validate methods. They are fatal
// and reported before any request is made.
var (
	// ErrNoSeeds is returned when a crawl has no seed URL.
	ErrNoSeeds = errors.New("no seed URL specified: pass seeds as arguments or set seeds in the config file")

	// ErrNoDataset is returned when a dataset scan has no dataset identifier.
	ErrNoDataset = errors.New("no dataset specified: pass a dataset id or URL")

	// ErrEmptyKeyword is returned when the keyword is empty.
	ErrEmptyKeyword = errors.New("keyword must not be empty")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidDepth is returned when the maximum depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidMaxLinks is returned when the per-page link cap is negative.
	ErrInvalidMaxLinks = errors.New("invalid max links per page: must be non-negative")

	// ErrInvalidDelay is returned when the request delay is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBytes is returned when the resource byte cap is not positive.
	ErrInvalidMaxBytes = errors.New("invalid max bytes: must be positive")

	// ErrInvalidContextRadius is returned when the context radius is outside 80..120.
	ErrInvalidContextRadius = errors.New("invalid context radius: must be between 80 and 120")

	// ErrInvalidSummaryFormat is returned for an unknown summary file format.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: must be markdown or json")

	// ErrInvalidSearchURL is returned when the search URL is not an absolute HTTP(S) URL.
	ErrInvalidSearchURL = errors.New("invalid search URL: must be an absolute http or https URL")

	// ErrInvalidSearchPages is returned when fewer than one search page is requested.
	ErrInvalidSearchPages = errors.New("invalid search pages: must be positive")

	// ErrInvalidSearchParam is returned when a search parameter name is empty.
	ErrInvalidSearchParam = errors.New("invalid search parameter: names must not be empty")
)
