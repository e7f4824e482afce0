// Package logging provides a minimal logging interface and adapters for umf.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the router and the event log writer use. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping any *slog.Logger
//   - UMFLogger, a configurable logger with json, text and colored console
//     (tint) output
//   - NoOpLogger for silent operation (the default everywhere)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelDebug, logging.FormatConsole, false)
//	r := router.New(func(o *router.Options) { o.Logger = logger })
package logging
