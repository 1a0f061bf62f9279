// Package log builds the slog loggers used by kwcrawl.
//
// Every logger returned by this package wraps its output handler in a
// RedactHandler, which masks credentials before they reach the log:
//   - request headers such as Authorization, Cookie and X-CKAN-API-Key
//   - attributes whose key names a secret (password, token, api key)
//   - bearer/basic credentials and JWTs detected by value
//   - credential-like query parameters inside logged URLs
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: verbose})
//	slog.SetDefault(logger)
//
//	logger.Info("fetched", "url", u, "status", 200)
//
// Crawl progress is logged at Info, skipped pages at Warn, and per-link
// decisions at Debug, which is only enabled in verbose mode.
package log
