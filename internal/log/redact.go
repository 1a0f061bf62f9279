package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Mask replaces redacted values.
const Mask = "***REDACTED***"

// secretKeys are attribute keys whose values are always masked.
var secretKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-ckan-api-key":      true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"token":               true,
	"access_token":        true,
	"refresh_token":       true,
	"session_id":          true,
	"sessionid":           true,
}

// secretKeyFragments mask any key that contains one of them.
var secretKeyFragments = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "apikey", "api_key",
}

// secretValues mask string values regardless of key.
var secretValues = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// secretQueryParams are URL query parameters whose values are masked
// when a logged string parses as an absolute URL.
var secretQueryParams = []string{"api_key", "apikey", "key", "token", "access_token", "auth"}

// RedactHandler wraps an slog.Handler and masks credentials in every
// attribute before the record reaches it.
type RedactHandler struct {
	next slog.Handler
}

// NewRedactHandler wraps next. A nil next wraps slog.Default().Handler().
func NewRedactHandler(next slog.Handler) *RedactHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &RedactHandler{next: next}
}

// Enabled delegates to the wrapped handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs masks attrs before attaching them.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redactAttr(a)
	}
	return &RedactHandler{next: h.next.WithAttrs(masked)}
}

// WithGroup delegates to the wrapped handler.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{next: h.next.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, g := range group {
			masked[i] = redactAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSecretKey(a.Key) {
		return slog.String(a.Key, Mask)
	}
	if a.Value.Kind() != slog.KindString {
		return a
	}
	s := a.Value.String()
	if isSecretValue(s) {
		return slog.String(a.Key, Mask)
	}
	if masked, ok := redactURL(s); ok {
		return slog.String(a.Key, masked)
	}
	return a
}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	if secretKeys[k] {
		return true
	}
	for _, f := range secretKeyFragments {
		if strings.Contains(k, f) {
			return true
		}
	}
	return false
}

func isSecretValue(s string) bool {
	for _, re := range secretValues {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// redactURL masks credential query parameters and userinfo passwords of an
// absolute URL. It reports false when s is not a URL or nothing changed.
func redactURL(s string) (string, bool) {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}

	changed := false
	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), Mask)
			changed = true
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		for _, p := range secretQueryParams {
			for k := range q {
				if strings.EqualFold(k, p) {
					q.Set(k, Mask)
					changed = true
				}
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	if !changed {
		return "", false
	}
	return u.String(), true
}

// Options configures New.
type Options struct {
	// Verbose enables Debug output. The default level is Info.
	Verbose bool

	// JSON selects the JSON handler instead of the text handler.
	JSON bool
}

// New returns a logger writing to w with credential redaction.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(NewRedactHandler(h))
}

// Discard returns a logger that drops every record. Used as the default
// for components constructed without a logger in tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
