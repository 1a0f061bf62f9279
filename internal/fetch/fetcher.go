package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	// DefaultUserAgent identifies kwcrawl in HTTP requests.
	DefaultUserAgent = "kwcrawl/1.0 (+https://github.com/nao1215/kwcrawl)"

	// DefaultTimeout is the per-request client timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultDelay is the pause before every request.
	DefaultDelay = 1 * time.Second

	// DefaultMaxBodySize caps full page reads.
	DefaultMaxBodySize = 5 * 1024 * 1024

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptJSON     = "application/json"
	acceptLanguage = "nl-NL,nl;q=0.9,en;q=0.8"
)

// Response is a successfully fetched resource.
type Response struct {
	// Body is the raw response body, possibly truncated.
	Body []byte

	// FinalURL is the URL after following redirects.
	FinalURL string

	// ContentType is the Content-Type header value.
	ContentType string

	// Encoding is the character set name of Body, from the Content-Type
	// header or sniffed from the content.
	Encoding string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Truncated is true when Body was cut at the byte ceiling.
	Truncated bool
}

// Text returns Body decoded to UTF-8. Undecodable bodies are returned as is.
func (r *Response) Text() string {
	if r.Encoding == "" || strings.EqualFold(r.Encoding, "utf-8") {
		return string(r.Body)
	}
	rd, err := charset.NewReaderLabel(r.Encoding, bytes.NewReader(r.Body))
	if err != nil {
		return string(r.Body)
	}
	decoded, err := io.ReadAll(rd)
	if err != nil {
		return string(r.Body)
	}
	return string(decoded)
}

// Fetcher performs rate-limited HTTP GET requests.
// A Fetcher is not safe for concurrent use; a crawl owns one.
//
// Design decision: the politeness delay is slept before every request,
// robots.txt and search pages included, rather than tracked per host.
// A crawl is sequential, so this bounds the request rate to any host
// without shared state. Request failures are returned as *Error with a Kind
// and cancellation as the bare context error, so callers can tell them apart.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	delay       time.Duration
	maxBodySize int64
	hostHeaders map[string]map[string]string
	logger      *slog.Logger

	// sleep waits before each request. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client. The client is copied and its Timeout
// replaced by the fetcher timeout.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithDelay sets the pause before every request. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithMaxBodySize sets the byte ceiling for Fetch.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithHostHeaders adds headers sent to host and its subdomains only.
func WithHostHeaders(host string, headers map[string]string) Option {
	return func(f *Fetcher) {
		host = strings.ToLower(host)
		if f.hostHeaders[host] == nil {
			f.hostHeaders[host] = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			f.hostHeaders[host][k] = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New returns a Fetcher with default settings.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		delay:       DefaultDelay,
		maxBodySize: DefaultMaxBodySize,
		hostHeaders: make(map[string]map[string]string),
		logger:      slog.Default(),
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	client := *f.client
	if f.timeout > 0 {
		client.Timeout = f.timeout
	}
	f.client = &client
	return f
}

// Delay returns the configured pause before each request.
func (f *Fetcher) Delay() time.Duration {
	return f.delay
}

// Fetch retrieves an HTML page, reading at most the configured body size.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	return f.get(ctx, rawURL, f.maxBodySize, acceptHTML)
}

// FetchLimited retrieves a resource, reading at most maxBytes of its body.
func (f *Fetcher) FetchLimited(ctx context.Context, rawURL string, maxBytes int64) (*Response, error) {
	if maxBytes <= 0 {
		maxBytes = f.maxBodySize
	}
	return f.get(ctx, rawURL, maxBytes, "*/*")
}

// FetchJSON retrieves an API response, asking for JSON.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string) (*Response, error) {
	return f.get(ctx, rawURL, f.maxBodySize, acceptJSON)
}

func (f *Fetcher) get(ctx context.Context, rawURL string, limit int64, accept string) (*Response, error) {
	if err := f.sleep(ctx, f.delay); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", acceptLanguage)
	for k, v := range f.headersFor(req.URL) {
		req.Header.Set(k, v)
	}

	f.logger.Debug("fetching", "url", rawURL)
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: KindStatus, URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, truncated, err := readCapped(resp.Body, limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify(rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	_, encoding, _ := charset.DetermineEncoding(body, contentType)

	return &Response{
		Body:        body,
		FinalURL:    resp.Request.URL.String(),
		ContentType: contentType,
		Encoding:    encoding,
		StatusCode:  resp.StatusCode,
		Truncated:   truncated,
	}, nil
}

func (f *Fetcher) headersFor(u *url.URL) map[string]string {
	if len(f.hostHeaders) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	out := make(map[string]string)
	for h, headers := range f.hostHeaders {
		if host == h || strings.HasSuffix(host, "."+h) {
			for k, v := range headers {
				out[k] = v
			}
		}
	}
	return out
}

// readCapped reads at most limit bytes and reports whether more remained.
func readCapped(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

func classify(rawURL string, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindNetwork, URL: rawURL, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
