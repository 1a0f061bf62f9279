package crawler

import (
	"net/url"
	"path"
	"strings"
)

// Patterns restricts which URLs are followed.
//
// A pattern is a path glob, optionally followed by query conditions:
//   - "/nieuws/*" matches /nieuws and everything below it
//   - "*.pdf" or "print*" (no slash) match the last path segment
//   - "/api/v?/items" is a plain glob over the whole path
//   - "/zoeken.html?page=*" also requires a page parameter matching "*"
//   - "?replytocom=*" matches any path carrying that parameter
//
// A "?" starts the query part only when an "=" follows it; otherwise it is
// the single-character wildcard.
type Patterns struct {
	// Ignore lists patterns of URLs that are never crawled.
	Ignore []string

	// Follow, when set, restricts crawling to URLs matching one pattern.
	Follow []string
}

// allows reports whether targetURL passes the patterns.
// Ignore patterns win over follow patterns.
func (p Patterns) allows(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	for _, pattern := range p.Ignore {
		if parseRule(pattern).matches(u) {
			return false
		}
	}

	if len(p.Follow) == 0 {
		return true
	}
	for _, pattern := range p.Follow {
		if parseRule(pattern).matches(u) {
			return true
		}
	}
	return false
}

// rule is a parsed pattern.
type rule struct {
	path  string
	query [][2]string
}

func parseRule(pattern string) rule {
	i := strings.Index(pattern, "?")
	if i < 0 || !strings.Contains(pattern[i+1:], "=") {
		return rule{path: pattern}
	}

	r := rule{path: pattern[:i]}
	for _, cond := range strings.Split(pattern[i+1:], "&") {
		key, glob, _ := strings.Cut(cond, "=")
		if key != "" {
			r.query = append(r.query, [2]string{key, glob})
		}
	}
	return r
}

func (r rule) matches(u *url.URL) bool {
	p := u.Path
	if p == "" {
		p = "/"
	}
	if r.path != "" && !matchPath(r.path, p) {
		return false
	}
	if len(r.query) == 0 {
		return true
	}

	values := u.Query()
	for _, cond := range r.query {
		if !anyMatch(cond[1], values[cond[0]]) {
			return false
		}
	}
	return true
}

// matchPath matches a slash-separated URL path against a path glob.
func matchPath(pattern, p string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/*"); ok {
		// Compare dir with as many leading segments of p.
		n := strings.Count(dir, "/")
		parts := strings.SplitAfterN(p, "/", n+2)
		if len(parts) < n+1 {
			return false
		}
		head := strings.TrimSuffix(strings.Join(parts[:n+1], ""), "/")
		ok, err := path.Match(dir, head)
		return err == nil && ok
	}
	if !strings.Contains(pattern, "/") {
		ok, err := path.Match(pattern, path.Base(p))
		return err == nil && ok
	}
	ok, err := path.Match(pattern, p)
	return err == nil && ok
}

func anyMatch(glob string, values []string) bool {
	for _, v := range values {
		if ok, err := path.Match(glob, v); err == nil && ok {
			return true
		}
	}
	return false
}
