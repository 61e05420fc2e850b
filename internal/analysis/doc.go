// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

// Package analysis is the request-scoped orchestration layer between the HTTP
// API and the churn engine.
//
// A full analysis (Service.Run) proceeds as:
//
//  1. validate the request and resolve configured defaults
//  2. look the result up in the cache (namespace churn_analysis)
//  3. load an event snapshot from the store, bounded by the end of the range
//     or the reference instant, whichever is later
//  4. run churn.Engine.Compute
//  5. attach insights from the configured generator
//  6. cache the result and publish an analysis.completed event
//
// Concurrent identical requests are coalesced with singleflight. Cache,
// insight and publish failures are logged and never fail the request.
//
// Segments, Trends and Metrics are cached partial views over the configured
// default dimensions. Uploading events clears every cached namespace.
package analysis
