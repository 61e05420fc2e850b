// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

// Package logging provides zerolog-based structured logging for Churnscope.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("range", "2025-01..2025-06").Msg("Analysis started")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Cache write failed")
//
// # Context Fields
//
// Request handlers attach a request ID with ContextWithRequestID, and the
// analysis service attaches the analysis ID with ContextWithAnalysisID. Ctx
// copies both onto every event logged through it.
//
// # Adapters
//
// Two adapters route third-party logging into the same zerolog sink:
//
//   - SlogHandler implements slog.Handler, used by sutureslog for supervisor events
//   - WatermillAdapter implements watermill.LoggerAdapter for the router and pub/sub
//
// # Configuration
//
// Level, Format and Caller come from the logging section of the application
// config (LOG_LEVEL, LOG_FORMAT, LOG_CALLER).
package logging
