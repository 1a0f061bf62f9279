package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestFetcher(srv *httptest.Server, opts ...Option) *Fetcher {
	base := []Option{WithClient(srv.Client()), WithDelay(0)}
	return New(append(base, opts...)...)
}

func TestFetcherFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and identification headers are sent", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotAccept, gotLang string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAccept = r.Header.Get("Accept")
			gotLang = r.Header.Get("Accept-Language")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>vuurwerk</body></html>"))
		}))
		defer srv.Close()

		resp, err := newTestFetcher(srv).Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if !strings.Contains(string(resp.Body), "vuurwerk") {
			t.Errorf("unexpected body: %s", resp.Body)
		}
		if gotUA != DefaultUserAgent {
			t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
		}
		if gotAccept == "" || gotLang == "" {
			t.Error("expected Accept and Accept-Language headers")
		}
		if resp.Encoding != "utf-8" {
			t.Errorf("Encoding = %q, want utf-8", resp.Encoding)
		}
		if resp.Truncated {
			t.Error("expected untruncated body")
		}
	})

	t.Run("non-2xx is a status error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := newTestFetcher(srv).Fetch(context.Background(), srv.URL+"/missing")
		if !errors.Is(err, ErrStatus) {
			t.Fatalf("expected ErrStatus, got %v", err)
		}
		var fe *Error
		if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
			t.Errorf("expected *Error with status 404, got %#v", err)
		}
		if errors.Is(err, ErrTimeout) {
			t.Error("status error must not match ErrTimeout")
		}
	})

	t.Run("slow server is a timeout error", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := newTestFetcher(srv, WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("redirect reports final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		resp, err := newTestFetcher(srv).Fetch(context.Background(), srv.URL+"/old")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if resp.FinalURL != srv.URL+"/new" {
			t.Errorf("FinalURL = %q, want %q", resp.FinalURL, srv.URL+"/new")
		}
	})

	t.Run("host headers are scoped", func(t *testing.T) {
		t.Parallel()

		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
		}))
		defer srv.Close()

		f := newTestFetcher(srv, WithHostHeaders("elsewhere.test", map[string]string{"Authorization": "k"}))
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if got != "" {
			t.Errorf("header leaked to other host: %q", got)
		}

		f = newTestFetcher(srv, WithHostHeaders("127.0.0.1", map[string]string{"Authorization": "k"}))
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if got != "k" {
			t.Errorf("Authorization = %q, want %q", got, "k")
		}
	})
}

func TestFetcherFetchLimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	t.Cleanup(srv.Close)

	f := newTestFetcher(srv)

	t.Run("truncates at the ceiling", func(t *testing.T) {
		t.Parallel()

		resp, err := f.FetchLimited(context.Background(), srv.URL, 100)
		if err != nil {
			t.Fatalf("FetchLimited failed: %v", err)
		}
		if len(resp.Body) != 100 || !resp.Truncated {
			t.Errorf("len = %d truncated = %v, want 100 true", len(resp.Body), resp.Truncated)
		}
	})

	t.Run("exact size is not truncated", func(t *testing.T) {
		t.Parallel()

		resp, err := f.FetchLimited(context.Background(), srv.URL, 1000)
		if err != nil {
			t.Fatalf("FetchLimited failed: %v", err)
		}
		if len(resp.Body) != 1000 || resp.Truncated {
			t.Errorf("len = %d truncated = %v, want 1000 false", len(resp.Body), resp.Truncated)
		}
	})
}

func TestFetcherDelay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	t.Run("sleeps before every call", func(t *testing.T) {
		t.Parallel()

		f := newTestFetcher(srv, WithDelay(2*time.Second))
		var slept []time.Duration
		f.sleep = func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}

		for range 3 {
			if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
		}
		if len(slept) != 3 {
			t.Fatalf("slept %d times, want 3", len(slept))
		}
		for _, d := range slept {
			if d != 2*time.Second {
				t.Errorf("slept %v, want 2s", d)
			}
		}
	})

	t.Run("cancelled context interrupts the sleep", func(t *testing.T) {
		t.Parallel()

		f := newTestFetcher(srv, WithDelay(time.Hour))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.Fetch(ctx, srv.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestResponseText(t *testing.T) {
	t.Parallel()

	t.Run("decodes latin-1", func(t *testing.T) {
		t.Parallel()

		r := &Response{Body: []byte{'c', 'a', 'f', 0xe9}, Encoding: "windows-1252"}
		if got := r.Text(); got != "café" {
			t.Errorf("Text() = %q, want %q", got, "café")
		}
	})

	t.Run("utf-8 passes through", func(t *testing.T) {
		t.Parallel()

		r := &Response{Body: []byte("café"), Encoding: "utf-8"}
		if got := r.Text(); got != "café" {
			t.Errorf("Text() = %q, want %q", got, "café")
		}
	})
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *Error
		want string
	}{
		{err: &Error{Kind: KindStatus, URL: "u", StatusCode: 500}, want: "HTTP 500"},
		{err: &Error{Kind: KindTimeout, URL: "u"}, want: "timed out"},
		{err: &Error{Kind: KindNetwork, URL: "u", Err: errors.New("refused")}, want: "refused"},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.err.Error(), tt.want) {
			t.Errorf("%q does not contain %q", tt.err.Error(), tt.want)
		}
	}
}
