// Package log provides structured logging with automatic sanitization of
// credentials, built on top of the standard slog package.
//
// docmirror sends user-supplied Authorization and cookie headers to
// protected documentation sites, and those values flow through request
// logging. The SecureHandler masks them before they reach the log output:
//   - HTTP headers (Authorization, Cookie, X-Api-Key and friends)
//   - Secret-looking values detected by pattern matching (bearer and JWT
//     tokens, basic auth, long API keys)
//
// Even in verbose mode, credentials are masked so debug logs can be shared
// in bug reports without scrubbing.
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("navigating", "url", u, "authorization", header) // masked
//	slog.SetDefault(logger)
package log
