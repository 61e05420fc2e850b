// Churnscope - User Retention and Churn Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/churnscope

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// MessageRouter is the lifecycle of *eventprocessor.Router.
type MessageRouter interface {
	Run(ctx context.Context) error
}

// RouterService runs the Watermill message router under supervision.
//
// A Watermill router cannot be started again once Run has returned, so an
// unexpected exit is reported with suture.ErrDoNotRestart instead of
// triggering a restart loop. Health checks then report the router as down.
type RouterService struct {
	router MessageRouter
	name   string
}

// NewRouterService wraps router.
func NewRouterService(router MessageRouter) *RouterService {
	return &RouterService{router: router, name: "message-router"}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: message router failed: %v", suture.ErrDoNotRestart, err)
	}
	return fmt.Errorf("%w: message router stopped", suture.ErrDoNotRestart)
}

// String implements fmt.Stringer for suture's logs.
func (s *RouterService) String() string {
	return s.name
}
