package extract

import (
	"net/url"
	"strings"
)

// Scope decides which hosts count as the crawled site.
// A host is in scope when it equals a scope host or is a subdomain of one.
// Scope hosts written with a port only match that exact host:port.
type Scope struct {
	hosts []string
}

// NewScope returns a Scope for hosts. A leading "www." is dropped so that
// "www.politie.nl" also covers "politie.nl" and "data.politie.nl".
func NewScope(hosts ...string) *Scope {
	s := &Scope{}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.TrimPrefix(h, "www.")
		if h != "" {
			s.hosts = append(s.hosts, h)
		}
	}
	return s
}

// ScopeFromURLs returns a Scope made of the hosts of urls.
// Unparseable URLs are ignored.
func ScopeFromURLs(urls []string) *Scope {
	hosts := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return NewScope(hosts...)
}

// Hosts returns the scope hosts.
func (s *Scope) Hosts() []string {
	return append([]string(nil), s.hosts...)
}

// Contains reports whether rawURL is on a host in scope.
func (s *Scope) Contains(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return s.ContainsHost(u.Host)
}

// ContainsHost reports whether host (optionally with port) is in scope.
func (s *Scope) ContainsHost(host string) bool {
	host = strings.ToLower(host)
	name := host
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.HasSuffix(host, "]") {
		name = host[:i]
	}
	for _, h := range s.hosts {
		target := name
		if strings.Contains(h, ":") {
			target = host
		}
		if target == h || strings.HasSuffix(target, "."+h) {
			return true
		}
	}
	return false
}
