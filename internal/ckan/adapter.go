package ckan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/kwcrawl/internal/extract"
	"github.com/nao1215/kwcrawl/internal/fetch"
	"github.com/nao1215/kwcrawl/internal/keyword"
	"github.com/nao1215/kwcrawl/internal/model"
	"github.com/nao1215/kwcrawl/internal/sink"
)

// DatastoreLimit is the number of records requested from datastore_search.
const DatastoreLimit = 1000

var (
	// ErrNoResources is returned when none of the lookups found the dataset.
	ErrNoResources = errors.New("dataset resources not found")

	// ErrUnsuccessful is returned when the API answered with success=false.
	ErrUnsuccessful = errors.New("api returned success=false")
)

// Fetcher retrieves API responses and resources. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Response, error)
	FetchJSON(ctx context.Context, rawURL string) (*fetch.Response, error)
	FetchLimited(ctx context.Context, rawURL string, maxBytes int64) (*fetch.Response, error)
}

// Adapter scans the resources of a CKAN dataset for a keyword.
//
// Design decision: portals differ in which actions they expose and in how
// their dataset identifiers look, so resources are listed through three
// lookups tried in order: package_show with the id, the first
// package_search hit for the id, and finally the download links scraped
// from the dataset's web page. An HTTP error and a "success": false
// envelope are treated alike and move on to the next lookup. A failing
// resource is logged and counted but never ends the scan, and every
// payload read is capped so one large file cannot stall it.
type Adapter struct {
	fetcher  Fetcher
	out      sink.Sink
	analyzer *keyword.Analyzer
	logger   *slog.Logger

	apiBase  string
	siteURL  string
	maxBytes int64
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithAPIBase sets the action API root, e.g. https://host/api/3/action.
func WithAPIBase(base string) Option {
	return func(a *Adapter) {
		a.apiBase = strings.TrimRight(base, "/")
	}
}

// WithSiteURL sets the web frontend root used to scrape dataset pages.
func WithSiteURL(site string) Option {
	return func(a *Adapter) {
		a.siteURL = strings.TrimRight(site, "/")
	}
}

// WithMaxBytes caps the bytes read from each resource.
func WithMaxBytes(n int64) Option {
	return func(a *Adapter) {
		a.maxBytes = n
	}
}

// WithAnalyzer sets the keyword analyzer.
func WithAnalyzer(an *keyword.Analyzer) Option {
	return func(a *Adapter) {
		if an != nil {
			a.analyzer = an
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Adapter that fetches with f and records matches to out.
func New(f Fetcher, out sink.Sink, opts ...Option) *Adapter {
	a := &Adapter{
		fetcher:  f,
		out:      out,
		analyzer: keyword.NewAnalyzer(),
		logger:   slog.Default(),
		apiBase:  "https://data.politie.nl/api/3/action",
		siteURL:  "https://data.politie.nl",
		maxBytes: 200000,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var (
	datasetPathRe     = regexp.MustCompile(`/dataset/([^/?#]+)`)
	datasetFragmentRe = regexp.MustCompile(`#/.*?/dataset/([^/?#]+)`)
)

// DatasetIDFromURL extracts the dataset identifier from a dataset URL,
// including single-page-app URLs that carry it in the fragment.
func DatasetIDFromURL(rawURL string) (string, bool) {
	if m := datasetPathRe.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	if m := datasetFragmentRe.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	return "", false
}

// Scan lists the resources of datasetID and scores each datastore record
// and each resource payload against kw. Per-resource failures are logged
// and counted. An error is returned only when the dataset cannot be found
// or ctx is cancelled; the summary is returned in both cases.
func (a *Adapter) Scan(ctx context.Context, datasetID, kw string) (*model.RunSummary, error) {
	summary := model.NewRunSummary(model.ModeDataset, kw, datasetID)
	finish := func(err error) (*model.RunSummary, error) {
		summary.Interrupted = err != nil && ctx.Err() != nil
		summary.Finish()
		return summary, err
	}

	resources, err := a.ListResources(ctx, datasetID)
	if err != nil {
		return finish(err)
	}
	a.logger.Info("dataset resources listed", "dataset", datasetID, "resources", len(resources))

	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		summary.Visited++
		a.logger.Info("inspecting resource", "resource", res.ResourceName, "format", res.Format, "url", res.SourceURL)

		processed := false
		if res.DatastoreActive && res.ResourceID != "" {
			records, err := a.datastoreRecords(ctx, res.ResourceID)
			switch {
			case err != nil && ctx.Err() != nil:
				return finish(ctx.Err())
			case err != nil:
				summary.FetchFailures++
				a.logger.Warn("datastore_search failed", "resource", res.ResourceID, "error", err)
			default:
				processed = true
				for i, text := range records {
					a.record(ctx, summary, res, i, text, kw)
				}
			}
		}

		if res.SourceURL != "" {
			resp, err := a.fetcher.FetchLimited(ctx, res.SourceURL, a.maxBytes)
			switch {
			case err != nil && ctx.Err() != nil:
				return finish(ctx.Err())
			case err != nil:
				summary.FetchFailures++
				a.logger.Warn("could not fetch resource", "url", res.SourceURL, "error", err)
			default:
				processed = true
				res.Payload = resp.Body
				res.Truncated = resp.Truncated
				text := strings.ToValidUTF8(resp.Text(), "\uFFFD")
				a.record(ctx, summary, res, model.WholePayload, text, kw)
			}
		}

		if processed {
			summary.Processed++
		}
	}
	return finish(nil)
}

func (a *Adapter) record(ctx context.Context, summary *model.RunSummary, res model.ResourceRecord, index int, text, kw string) {
	match := a.analyzer.Analyze(text, kw)
	if match.Matched() {
		summary.Matches++
	}
	m := model.ResourceMatch{Resource: res, RecordIndex: index, Text: text, Match: match}
	if err := a.out.RecordResource(ctx, m); err != nil {
		summary.PersistFailures++
		a.logger.Warn("could not record resource match", "resource", res.ResourceID, "record", index, "error", err)
	}
}

// ListResources returns the resources of datasetID. It tries package_show,
// then the first package_search result, then links scraped from the
// dataset's web page.
func (a *Adapter) ListResources(ctx context.Context, datasetID string) ([]model.ResourceRecord, error) {
	pkg, err := a.packageShow(ctx, datasetID)
	if err == nil {
		return pkg.records(datasetID), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	a.logger.Warn("package_show failed, trying package_search", "dataset", datasetID, "error", err)

	pkg, err = a.packageSearch(ctx, datasetID)
	if err == nil {
		return pkg.records(datasetID), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	a.logger.Warn("package_search failed, trying dataset page", "dataset", datasetID, "error", err)

	records, err := a.scrapeDatasetPage(ctx, datasetID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrNoResources, datasetID, err)
	}
	a.logger.Info("found candidate resource links on dataset page", "dataset", datasetID, "resources", len(records))
	return records, nil
}

func (a *Adapter) packageShow(ctx context.Context, datasetID string) (*packageResult, error) {
	var pkg packageResult
	if err := a.call(ctx, "package_show", url.Values{"id": {datasetID}}, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (a *Adapter) packageSearch(ctx context.Context, datasetID string) (*packageResult, error) {
	var sr searchResult
	if err := a.call(ctx, "package_search", url.Values{"q": {datasetID}}, &sr); err != nil {
		return nil, err
	}
	if len(sr.Results) == 0 {
		return nil, fmt.Errorf("package_search: no results for %s", datasetID)
	}
	return &sr.Results[0], nil
}

// datastoreRecords returns each datastore record serialized as JSON text.
func (a *Adapter) datastoreRecords(ctx context.Context, resourceID string) ([]string, error) {
	params := url.Values{"resource_id": {resourceID}, "limit": {fmt.Sprint(DatastoreLimit)}}
	var ds datastoreResult
	if err := a.call(ctx, "datastore_search", params, &ds); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(ds.Records))
	for _, raw := range ds.Records {
		text, err := recordText(raw)
		if err != nil {
			return nil, fmt.Errorf("datastore record: %w", err)
		}
		out = append(out, text)
	}
	return out, nil
}

// call invokes an action and decodes the result of a successful envelope
// into v.
func (a *Adapter) call(ctx context.Context, action string, params url.Values, v any) error {
	endpoint := a.apiBase + "/" + action + "?" + params.Encode()
	a.logger.Debug("calling ckan api", "url", endpoint)

	resp, err := a.fetcher.FetchJSON(ctx, endpoint)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	if !env.Success {
		if env.Error != nil && env.Error.Message != "" {
			return fmt.Errorf("%s: %w: %s", action, ErrUnsuccessful, env.Error.Message)
		}
		return fmt.Errorf("%s: %w", action, ErrUnsuccessful)
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return fmt.Errorf("%s: empty result", action)
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		return fmt.Errorf("%s: decode result: %w", action, err)
	}
	return nil
}

// scrapeDatasetPage collects resource-like links from the dataset page.
func (a *Adapter) scrapeDatasetPage(ctx context.Context, datasetID string) ([]model.ResourceRecord, error) {
	pageURL := a.siteURL + "/dataset/" + url.PathEscape(datasetID)
	resp, err := a.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(resp.Text())))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(resp.FinalURL)
	if err != nil || resp.FinalURL == "" {
		base, _ = url.Parse(pageURL)
	}

	seen := make(map[string]struct{})
	records := make([]model.ResourceRecord, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if !isResourceLink(href) {
			return
		}
		link := extract.ResolveLink(base, href)
		if link == "" {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}

		name := path.Base(link)
		if u, err := url.Parse(link); err == nil {
			name = path.Base(u.Path)
		}
		records = append(records, model.ResourceRecord{
			ResourceID:   fmt.Sprintf("link%d", len(records)+1),
			ResourceName: name,
			Format:       strings.TrimPrefix(strings.ToLower(path.Ext(name)), "."),
			SourceURL:    link,
			DatasetID:    datasetID,
			DatasetTitle: datasetID,
		})
	})
	return records, nil
}

func isResourceLink(href string) bool {
	lower := strings.ToLower(href)
	return strings.Contains(href, "/resource/") ||
		strings.HasSuffix(lower, ".csv") ||
		strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".zip") ||
		strings.Contains(lower, "download")
}

// recordText serializes a datastore record with non-ASCII and HTML
// characters written literally. Numbers keep their original form.
func recordText(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
