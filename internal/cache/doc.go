// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package cache stores computed churn results so repeated requests for the same
month range skip the event load and the engine run.

# Backends

  - memory: process-local TTL map with a background cleanup loop
  - redis: shared cache via redis/go-redis v9, keys under a configurable prefix
  - badger: on-disk cache via dgraph-io/badger v4, entries expire with Badger TTLs
  - none: every lookup misses

All backends store JSON bytes. GetJSON and SetJSON encode with goccy/go-json.

# Keys

Keys have the form "<namespace>:<hash>", where the hash covers the JSON form of
the request parameters (see GenerateKey). Namespaces match the result kinds:

	churn_analysis  full analysis runs
	metrics         single-month metrics
	segments        segment breakdowns
	trends          trend series

Ingesting events changes every result, so the service clears all namespaces
with DeletePrefix after a bulk upload.

# Errors

Get returns ErrNotFound for a missing or expired key. Other errors come from
the backend and are wrapped with the operation name.
*/
package cache
