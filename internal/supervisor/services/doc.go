// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package services provides suture.Service wrappers for Churnscope components.

Each wrapper translates a component lifecycle (ListenAndServe, Run, a
ticker loop) into suture's context-aware Serve:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Shutdown timeout bounds connection draining

Message Router (RouterService):
  - Runs the Watermill router that records completed analyses
  - Exits with suture.ErrDoNotRestart since a router cannot be rerun

Cache Maintenance (CacheMaintenanceService):
  - Calls cache.Maintainer.Maintain on a ticker
  - Used for Badger value log garbage collection

# Usage Example

	server := &http.Server{Addr: ":8080", Handler: router.SetupChi()}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMessagingService(services.NewRouterService(msgRouter))
	if m, ok := store.(cache.Maintainer); ok {
	    tree.AddDataService(services.NewCacheMaintenanceService(m, 10*time.Minute))
	}
*/
package services
