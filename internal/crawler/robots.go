package crawler

import (
	"context"
	"errors"
	"net/url"

	"github.com/nao1215/kwcrawl/internal/fetch"
	"github.com/temoto/robotstxt"
)

// robotsRules caches the robots.txt group of each host for one user agent.
// A nil group allows everything.
type robotsRules struct {
	fetcher   Fetcher
	userAgent string
	groups    map[string]*robotstxt.Group
}

func newRobotsRules(f Fetcher, userAgent string) *robotsRules {
	return &robotsRules{
		fetcher:   f,
		userAgent: userAgent,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// allowed reports whether rawURL may be crawled. The host's robots.txt is
// fetched on first use. A missing or unreachable robots.txt allows all;
// a server error disallows all.
func (r *robotsRules) allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false, nil
	}

	key := u.Scheme + "://" + u.Host
	group, ok := r.groups[key]
	if !ok {
		group, err = r.load(ctx, key+"/robots.txt")
		if err != nil {
			return false, err
		}
		r.groups[key] = group
	}
	if group == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path), nil
}

// load fetches and parses one robots.txt. Only context errors are returned.
func (r *robotsRules) load(ctx context.Context, robotsURL string) (*robotstxt.Group, error) {
	resp, err := r.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var ferr *fetch.Error
		if errors.As(err, &ferr) && ferr.Kind == fetch.KindStatus {
			data, perr := robotstxt.FromStatusAndBytes(ferr.StatusCode, nil)
			if perr != nil {
				return nil, nil
			}
			return data.FindGroup(r.userAgent), nil
		}
		return nil, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		return nil, nil
	}
	return data.FindGroup(r.userAgent), nil
}
