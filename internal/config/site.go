package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds per-host request and crawl settings.
type SiteConfig struct {
	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to the host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are glob patterns of URL paths that are never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict crawling to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// RequestHeaders returns Headers plus the Cookie header, if any.
func (s SiteConfig) RequestHeaders() map[string]string {
	if len(s.Headers) == 0 && s.Cookie == "" {
		return nil
	}
	out := make(map[string]string, len(s.Headers)+1)
	for k, v := range s.Headers {
		out[k] = v
	}
	if s.Cookie != "" {
		out["Cookie"] = s.Cookie
	}
	return out
}

// DatasetFile is the dataset section of the config file.
type DatasetFile struct {
	ID      string `yaml:"id,omitempty"`
	APIBase string `yaml:"apiBase,omitempty"`
	SiteURL string `yaml:"siteURL,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// SearchFile is the search section of the config file.
type SearchFile struct {
	URL        string `yaml:"url,omitempty"`
	Pages      *int   `yaml:"pages,omitempty"`
	QueryParam string `yaml:"queryParam,omitempty"`
	PageParam  string `yaml:"pageParam,omitempty"`
}

// File represents the structure of the .kwcrawl configuration file.
// Pointer fields distinguish an explicit zero from an absent value.
type File struct {
	Keyword                string              `yaml:"keyword,omitempty"`
	Seeds                  []string            `yaml:"seeds,omitempty"`
	Scope                  []string            `yaml:"scope,omitempty"`
	MaxPages               *int                `yaml:"maxPages,omitempty"`
	MaxDepth               *int                `yaml:"maxDepth,omitempty"`
	MaxLinksPerPage        *int                `yaml:"maxLinksPerPage,omitempty"`
	RequestDelaySeconds    *float64            `yaml:"requestDelaySeconds,omitempty"`
	TimeoutSeconds         *float64            `yaml:"timeoutSeconds,omitempty"`
	UserAgent              string              `yaml:"userAgent,omitempty"`
	SaveJSON               *bool               `yaml:"saveJson,omitempty"`
	JSONOutputSubdirectory string              `yaml:"jsonOutputSubdirectory,omitempty"`
	MaxResourceBytes       *int64              `yaml:"maxResourceBytes,omitempty"`
	ContextRadius          *int                `yaml:"contextRadius,omitempty"`
	AlwaysPersist          *bool               `yaml:"alwaysPersist,omitempty"`
	RespectRobots          *bool               `yaml:"respectRobots,omitempty"`
	Readability            *bool               `yaml:"readability,omitempty"`
	Output                 string              `yaml:"output,omitempty"`
	SummaryFormat          string              `yaml:"summaryFormat,omitempty"`
	Search                 SearchFile          `yaml:"search,omitempty"`
	Dataset                DatasetFile         `yaml:"dataset,omitempty"`
	Categories             map[string][]string `yaml:"categories,omitempty"`
	Entities               map[string][]string `yaml:"entities,omitempty"`

	// Sites maps a host name to its settings. A site entry also applies
	// to subdomains of the host.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for host, merging the matching site
// entry over the defaults. A "www." prefix on host is ignored.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	siteConfig, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if len(siteConfig.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(siteConfig.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range siteConfig.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	return result
}

// SiteConfigForURL returns the settings for the host of rawURL.
func (cf *File) SiteConfigForURL(rawURL string) SiteConfig {
	u, err := url.Parse(rawURL)
	if err != nil {
		return cf.Defaults
	}
	return cf.GetSiteConfig(u.Hostname())
}

// lookup finds the most specific site entry for host: the host itself,
// then each parent domain.
func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for host != "" {
		for name, sc := range cf.Sites {
			if strings.TrimPrefix(strings.ToLower(name), "www.") == host {
				return sc, true
			}
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return SiteConfig{}, false
}
