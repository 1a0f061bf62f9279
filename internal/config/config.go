package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "kwcrawl"

	// DefaultKeyword is the keyword searched for when none is given.
	DefaultKeyword = "vuurwerk"

	// DefaultMaxPages bounds the number of URLs visited in one crawl.
	DefaultMaxPages = 100

	// DefaultMaxDepth is the number of link hops followed from a seed.
	// Depth 0 fetches only the seeds.
	DefaultMaxDepth = 2

	// DefaultMaxLinksPerPage bounds how many new links one page may add
	// to the frontier.
	DefaultMaxLinksPerPage = 10

	// DefaultDelay is the pause before every request.
	DefaultDelay = 1 * time.Second

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultJSONSubdir is the directory, next to the CSV file, that
	// receives one JSON file per persisted record.
	DefaultJSONSubdir = "pages"

	// DefaultMaxResourceBytes caps how much of a dataset resource is read.
	DefaultMaxResourceBytes = 200000

	// DefaultContextRadius is the number of characters kept on each side
	// of a keyword occurrence.
	DefaultContextRadius = 100

	// DefaultPagesCSV is the output file of a crawl.
	DefaultPagesCSV = "kwcrawl_pages.csv"

	// DefaultResourcesCSV is the output file of a dataset scan.
	DefaultResourcesCSV = "kwcrawl_resources.csv"

	// DefaultCKANAPIBase is the CKAN action API of data.politie.nl.
	DefaultCKANAPIBase = "https://data.politie.nl/api/3/action"

	// DefaultCKANSiteURL is the CKAN web frontend used when the API fails.
	DefaultCKANSiteURL = "https://data.politie.nl"

	// DefaultSearchPages is the number of search result pages read.
	DefaultSearchPages = 1

	// DefaultSearchQueryParam carries the keyword in a search URL.
	DefaultSearchQueryParam = "q"

	// DefaultSearchPageParam carries the 1-based result page number.
	DefaultSearchPageParam = "page"

	// DefaultUserAgent identifies kwcrawl in HTTP requests.
	DefaultUserAgent = "kwcrawl/1.0 (+https://github.com/nao1215/kwcrawl)"
)

// Summary file formats.
const (
	SummaryMarkdown = "markdown"
	SummaryJSON     = "json"
)

// Context radius bounds accepted by Validate.
const (
	MinContextRadius = 80
	MaxContextRadius = 120
)

// Config holds all options of one crawl or dataset scan.
// It is built from defaults, then the config file, then CLI flags, and is
// passed to components at construction.
type Config struct {
	// Keyword is matched literally and case-insensitively.
	Keyword string

	// Seeds are the start URLs of a crawl.
	Seeds []string

	// Scope lists the hosts treated as the same site. Subdomains of a
	// scope host are included. When empty, the seed hosts are used.
	Scope []string

	// MaxPages bounds the number of visited URLs, including failed ones.
	MaxPages int

	// MaxDepth is the highest depth whose links are still followed.
	MaxDepth int

	// MaxLinksPerPage bounds the links one page adds to the frontier.
	MaxLinksPerPage int

	// Delay is slept before every request.
	Delay time.Duration

	// Timeout applies to each request.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// SaveJSON enables one JSON side-file per persisted record.
	SaveJSON bool

	// JSONSubdir is the side-file directory, relative to the CSV file.
	JSONSubdir string

	// MaxResourceBytes caps the bytes read from one dataset resource.
	MaxResourceBytes int64

	// ContextRadius is the keyword context window on each side.
	ContextRadius int

	// AlwaysPersist writes pages even when the keyword does not occur.
	AlwaysPersist bool

	// RespectRobots skips URLs disallowed by the host's robots.txt.
	RespectRobots bool

	// Readability enables the readability content strategy.
	Readability bool

	// Output is the CSV file path. Empty means the mode's default.
	Output string

	// SummaryPath, when set, receives a run summary file.
	SummaryPath string

	// SummaryFormat is SummaryMarkdown or SummaryJSON.
	SummaryFormat string

	// SearchURL is a site search page whose keyword-titled results are
	// added to the seeds. Empty disables search seeding.
	SearchURL string

	// SearchPages is the number of result pages read from SearchURL.
	SearchPages int

	// SearchQueryParam and SearchPageParam name the query parameters of
	// SearchURL that carry the keyword and the page number.
	SearchQueryParam string
	SearchPageParam  string

	// SaveToDB records runs and matches in the SQLite history.
	SaveToDB bool

	// DBDir is the directory of the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON lines.
	JSONLog bool

	// DatasetID identifies the CKAN dataset of a dataset scan.
	DatasetID string

	// CKANAPIBase is the CKAN action API root.
	CKANAPIBase string

	// CKANSiteURL is the CKAN web frontend root used for page scraping.
	CKANSiteURL string

	// CKANAPIKey is sent as the Authorization header to the CKAN host.
	CKANAPIKey string

	// Categories maps a label to terms; a matching page gets the label.
	Categories map[string][]string

	// Entities maps an entity label to regular expressions.
	Entities map[string][]string

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string

	// SiteConfigs holds per-host settings from the config file.
	SiteConfigs *File
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Keyword:          DefaultKeyword,
		MaxPages:         DefaultMaxPages,
		MaxDepth:         DefaultMaxDepth,
		MaxLinksPerPage:  DefaultMaxLinksPerPage,
		Delay:            DefaultDelay,
		Timeout:          DefaultTimeout,
		UserAgent:        DefaultUserAgent,
		SaveJSON:         true,
		JSONSubdir:       DefaultJSONSubdir,
		MaxResourceBytes: DefaultMaxResourceBytes,
		ContextRadius:    DefaultContextRadius,
		SaveToDB:         true,
		DBDir:            XDGDataDir(),
		CKANAPIBase:      DefaultCKANAPIBase,
		CKANSiteURL:      DefaultCKANSiteURL,
		SummaryFormat:    SummaryMarkdown,
		SearchPages:      DefaultSearchPages,
		SearchQueryParam: DefaultSearchQueryParam,
		SearchPageParam:  DefaultSearchPageParam,
		SiteConfigs:      &File{Sites: make(map[string]SiteConfig)},
	}
}

// XDGDataDir returns the XDG data directory for kwcrawl.
// On Linux: ~/.local/share/kwcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for kwcrawl.
// On Linux: ~/.config/kwcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Apply overlays the settings present in f onto c.
// Unset file values leave c unchanged.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	if f.Keyword != "" {
		c.Keyword = f.Keyword
	}
	if len(f.Seeds) > 0 {
		c.Seeds = append([]string(nil), f.Seeds...)
	}
	if len(f.Scope) > 0 {
		c.Scope = append([]string(nil), f.Scope...)
	}
	if f.MaxPages != nil {
		c.MaxPages = *f.MaxPages
	}
	if f.MaxDepth != nil {
		c.MaxDepth = *f.MaxDepth
	}
	if f.MaxLinksPerPage != nil {
		c.MaxLinksPerPage = *f.MaxLinksPerPage
	}
	if f.RequestDelaySeconds != nil {
		c.Delay = time.Duration(*f.RequestDelaySeconds * float64(time.Second))
	}
	if f.TimeoutSeconds != nil {
		c.Timeout = time.Duration(*f.TimeoutSeconds * float64(time.Second))
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.SaveJSON != nil {
		c.SaveJSON = *f.SaveJSON
	}
	if f.JSONOutputSubdirectory != "" {
		c.JSONSubdir = f.JSONOutputSubdirectory
	}
	if f.MaxResourceBytes != nil {
		c.MaxResourceBytes = *f.MaxResourceBytes
	}
	if f.ContextRadius != nil {
		c.ContextRadius = *f.ContextRadius
	}
	if f.AlwaysPersist != nil {
		c.AlwaysPersist = *f.AlwaysPersist
	}
	if f.RespectRobots != nil {
		c.RespectRobots = *f.RespectRobots
	}
	if f.Readability != nil {
		c.Readability = *f.Readability
	}
	if f.Output != "" {
		c.Output = f.Output
	}
	if f.SummaryFormat != "" {
		c.SummaryFormat = f.SummaryFormat
	}
	if f.Search.URL != "" {
		c.SearchURL = f.Search.URL
	}
	if f.Search.Pages != nil {
		c.SearchPages = *f.Search.Pages
	}
	if f.Search.QueryParam != "" {
		c.SearchQueryParam = f.Search.QueryParam
	}
	if f.Search.PageParam != "" {
		c.SearchPageParam = f.Search.PageParam
	}
	if f.Dataset.ID != "" {
		c.DatasetID = f.Dataset.ID
	}
	if f.Dataset.APIBase != "" {
		c.CKANAPIBase = f.Dataset.APIBase
	}
	if f.Dataset.SiteURL != "" {
		c.CKANSiteURL = f.Dataset.SiteURL
	}
	if f.Dataset.APIKey != "" {
		c.CKANAPIKey = f.Dataset.APIKey
	}
	if len(f.Categories) > 0 {
		c.Categories = f.Categories
	}
	if len(f.Entities) > 0 {
		c.Entities = f.Entities
	}
	c.SiteConfigs = f
}

// ValidateCrawl checks the options of a crawl run.
// It is called before any network I/O. A search URL may stand in for seeds.
func (c *Config) ValidateCrawl() error {
	if len(c.Seeds) == 0 && c.SearchURL == "" {
		return ErrNoSeeds
	}
	if c.SearchURL != "" {
		u, err := url.Parse(c.SearchURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidSearchURL
		}
		if c.SearchPages <= 0 {
			return ErrInvalidSearchPages
		}
		if c.SearchQueryParam == "" || c.SearchPageParam == "" {
			return ErrInvalidSearchParam
		}
	}
	return c.Validate()
}

// ValidateDataset checks the options of a dataset scan.
func (c *Config) ValidateDataset() error {
	if c.DatasetID == "" {
		return ErrNoDataset
	}
	return c.Validate()
}

// Validate checks the options shared by all run modes and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Keyword == "" {
		return ErrEmptyKeyword
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.MaxLinksPerPage < 0 {
		return ErrInvalidMaxLinks
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxResourceBytes <= 0 {
		return ErrInvalidMaxBytes
	}
	if c.ContextRadius < MinContextRadius || c.ContextRadius > MaxContextRadius {
		return ErrInvalidContextRadius
	}
	if c.SummaryFormat != SummaryMarkdown && c.SummaryFormat != SummaryJSON {
		return ErrInvalidSummaryFormat
	}
	return nil
}
