// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

// Package insights turns a computed churn analysis into short narrative
// findings and recommended actions.
//
// Two generators are available:
//
//   - RuleGenerator applies fixed thresholds: a month-over-month churn change
//     above 2 percentage points, a spread above 5 points between the highest and
//     lowest churn value of a dimension, and a long-term inactive share above 15%.
//     It never fails.
//   - OpenAIClient calls an OpenAI-compatible chat completions endpoint in JSON
//     mode. Calls go through a gobreaker circuit breaker so a failing provider is
//     skipped for BreakerTimeout after BreakerFailures consecutive errors.
//
// New wraps the remote client in a FallbackGenerator, so an analysis always
// receives insights. Fallback results carry Fallback=true.
//
// Both lists are capped at three entries. Model output entries shorter than 10
// or longer than 500 characters are dropped.
package insights
