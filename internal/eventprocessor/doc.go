// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

// Package eventprocessor carries analysis.completed messages from the
// analysis service to the run history store using Watermill.
//
// # Architecture
//
//	analysis.Service --> Publisher --(analysis.completed)--> Router --> RunConsumer --> database.SaveAnalysisRun
//	                        |                                  |
//	                  circuit breaker               retry, recoverer, poison queue
//
// # Transports
//
// NewBus selects the transport:
//
//   - NATS JetStream (watermill-nats) when nats.enabled is true. Publishers set
//     Nats-Msg-Id to the analysis ID so the broker drops duplicate publishes;
//     subscribers are durable and queue-grouped.
//   - An in-process persistent gochannel otherwise. This keeps run history
//     working on a single node without a broker.
//
// # Delivery
//
// The consumer is idempotent on AnalysisID (the store ignores duplicate
// inserts), so at-least-once delivery is sufficient. Store failures are
// retried with exponential backoff and then routed to the poison queue.
// Malformed payloads are acknowledged and dropped.
//
// # Failure isolation
//
// Publishing never fails an analysis. The Publisher wraps the transport in a
// gobreaker circuit breaker; while it is open, publishes are rejected
// immediately and counted under circuit_breaker_requests_total.
package eventprocessor
