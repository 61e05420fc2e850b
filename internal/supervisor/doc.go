// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

/*
Package supervisor provides process supervision for Churnscope using suture v4.

Long-running services are organized into three layers so a failure in one
does not stop the others:

	RootSupervisor ("churnscope")
	├── DataSupervisor ("data-layer")
	│   └── CacheMaintenanceService (badger backend only)
	├── MessagingSupervisor ("messaging-layer")
	│   └── RouterService (analysis run recorder)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's failure counting: each failure
increments a counter that decays over FailureDecay seconds, and exceeding
FailureThreshold pauses restarts for FailureBackoff. Supervisor events are
logged through sutureslog into the zerolog pipeline.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Configuration

TreeConfig zero values fall back to suture's defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds
*/
package supervisor
